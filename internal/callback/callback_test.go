package callback

import (
	"regexp"
	"strings"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	cases := []Command{
		{Kind: KindToggle, ChatID: -1001234567890, Payload: "links"},
		{Kind: KindMute, ChatID: -100500, TargetID: 987654321, Payload: "1h"},
		{Kind: KindBan, ChatID: -1, TargetID: 1},
		{Kind: KindResolve, ChatID: 42, TargetID: 7, Payload: "123456"},
	}
	for _, cmd := range cases {
		data, err := Encode(cmd)
		if err != nil {
			t.Fatalf("Encode(%+v) failed: %v", cmd, err)
		}
		if len(data) > MaxDataLen {
			t.Fatalf("encoded data %q exceeds limit", data)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", data, err)
		}
		if got != cmd {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, cmd)
		}
	}
}

func TestEncodedIDsUseURLSafeCharset(t *testing.T) {
	re := regexp.MustCompile(`^~?[A-Za-z0-9_-]+$`)
	for _, chatID := range []int64{123, -123, -1001234567890} {
		encoded := encodeChatID(chatID)
		if !re.MatchString(encoded) {
			t.Fatalf("encoded chat id %q contains unsupported chars", encoded)
		}
	}
}

func TestDecodeRejectsLegacyAndMalformedData(t *testing.T) {
	for _, data := range []string{
		"",
		"toggle_links_123456",
		"x|AQ|AQ|",
		"t|!!|AQ|links",
		"t|AQ|AQ",
	} {
		if _, err := Decode(data); err == nil {
			t.Fatalf("Decode(%q) expected error", data)
		}
	}
}

func TestEncodeRejectsInvalidCommands(t *testing.T) {
	if _, err := Encode(Command{Kind: "zz", ChatID: 1}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := Encode(Command{Kind: KindToggle, ChatID: 1, Payload: "a|b"}); err == nil {
		t.Fatal("expected error for payload with separator")
	}
	if _, err := Encode(Command{Kind: KindToggle, ChatID: 1, Payload: strings.Repeat("x", MaxDataLen)}); err == nil {
		t.Fatal("expected error for oversized payload")
	}
}
