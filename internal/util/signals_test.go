package util

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/jzx17/goexecutor/internal/logging"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSetupSignalHandler(t *testing.T) {
	var buf lockedBuffer
	ctx := SetupSignalHandler(logging.New(&logging.Options{Writer: &buf, Level: logiface.LevelInformational}))

	select {
	case <-ctx.Done():
		t.Fatal("Context should not be cancelled initially")
	default:
	}

	// Note: this sends a signal to the current process, which the handler intercepts
	go func() {
		time.Sleep(10 * time.Millisecond)
		syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", ctx.Err())
		}
	case <-time.After(time.Second):
		t.Fatal("Context was not cancelled after SIGTERM")
	}

	deadline := time.Now().Add(time.Second)
	for !strings.Contains(buf.String(), "received shutdown signal") {
		if time.Now().After(deadline) {
			t.Fatalf("missing signal log, got %q", buf.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
