package cli

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandler_Signal(t *testing.T) {
	ctx, stop := SetupSignalHandler(context.Background())
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("send SIGTERM: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}

func TestSetupSignalHandler_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SetupSignalHandler(parent)
	defer stop()

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with its parent")
	}
}

func TestSetupSignalHandler_Stop(t *testing.T) {
	ctx, stop := SetupSignalHandler(context.Background())
	stop()

	if ctx.Err() == nil {
		t.Error("stop should cancel the context")
	}
}
