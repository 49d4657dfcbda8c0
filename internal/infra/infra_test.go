package infra

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetWorkDirCreatesNestedDirectory(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	dir, err := GetWorkDir(base, "data", "db")
	if err != nil {
		t.Fatalf("get work dir: %v", err)
	}
	if dir != filepath.Join(base, "data", "db") {
		t.Fatalf("unexpected dir %s", dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("work dir was not created: %v", err)
	}
}

func TestGoRecoverableRestartsAfterPanic(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	done := make(chan struct{})
	go GoRecoverable(1, "test", func() {
		if runs.Add(1) == 1 {
			panic("first run")
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job was not restarted")
	}
	if runs.Load() != 2 {
		t.Fatalf("expected two runs, got %d", runs.Load())
	}
}
