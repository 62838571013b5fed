package command

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDualWrite(t *testing.T) {
	errPub := errors.New("broker down")
	errStore := errors.New("disk full")

	tests := []struct {
		name      string
		pubErr    error
		storeErr  error
		wantNil   bool
		wantPub   bool
		wantStore bool
	}{
		{name: "both succeed", wantNil: true},
		{name: "publish fails", pubErr: errPub, wantPub: true},
		{name: "store fails", storeErr: errStore, wantStore: true},
		{name: "both fail", pubErr: errPub, storeErr: errStore, wantPub: true, wantStore: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ran atomic.Int32
			err := DualWrite(context.Background(),
				func(context.Context) error { ran.Add(1); return tt.pubErr },
				func(context.Context) error { ran.Add(1); return tt.storeErr },
			)
			if ran.Load() != 2 {
				t.Errorf("ran %d sides, want 2", ran.Load())
			}
			if tt.wantNil {
				if err != nil {
					t.Fatalf("DualWrite() = %v", err)
				}
				return
			}

			var dw *DualWriteError
			if !errors.As(err, &dw) {
				t.Fatalf("DualWrite() = %v, want *DualWriteError", err)
			}
			if (dw.Publish != nil) != tt.wantPub || (dw.Store != nil) != tt.wantStore {
				t.Errorf("DualWriteError = %+v", dw)
			}
			if tt.wantPub && !errors.Is(err, errPub) {
				t.Error("errors.Is(publish cause) = false")
			}
			if tt.wantStore && !errors.Is(err, errStore) {
				t.Error("errors.Is(store cause) = false")
			}
		})
	}
}

func TestDualWrite_RunsConcurrently(t *testing.T) {
	// Each side waits for the other to start; run sequentially this would
	// time out.
	pubStarted := make(chan struct{})
	storeStarted := make(chan struct{})

	err := DualWrite(context.Background(),
		func(context.Context) error {
			close(pubStarted)
			select {
			case <-storeStarted:
				return nil
			case <-time.After(time.Second):
				return errors.New("store never started")
			}
		},
		func(context.Context) error {
			close(storeStarted)
			select {
			case <-pubStarted:
				return nil
			case <-time.After(time.Second):
				return errors.New("publish never started")
			}
		},
	)
	if err != nil {
		t.Fatalf("DualWrite() = %v", err)
	}
}

func TestDualWriteError_Message(t *testing.T) {
	e := &DualWriteError{Store: errors.New("disk full")}
	if !strings.Contains(e.Error(), "store failed") || !strings.Contains(e.Error(), "published") {
		t.Errorf("Error() = %q", e.Error())
	}
}
