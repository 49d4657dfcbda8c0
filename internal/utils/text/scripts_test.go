package text

import "testing"

func TestFoldMixedScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"latin only", "buy crypto now", "buy crypto now"},
		{"cyrillic only", "купи крипту", "купи крипту"},
		{"latin lookalikes in cyrillic word", "скaм тут", "скам тут"},
		{"cyrillic lookalikes in latin word", "sсam here", "scam here"},
		{"punctuation kept", "сkам!, ok", "скам!, ok"},
		{"separate words untouched", "scam скам", "scam скам"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FoldMixedScript(tt.in); got != tt.want {
				t.Fatalf("FoldMixedScript(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHasCyrillics(t *testing.T) {
	t.Parallel()

	if HasCyrillics("hello") {
		t.Fatal("latin text reported as cyrillic")
	}
	if !HasCyrillics("привет") {
		t.Fatal("cyrillic text not detected")
	}
}
