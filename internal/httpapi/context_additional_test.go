package httpapi

import (
	"context"
	"testing"
	"time"
)

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("joined context not canceled")
	}
}

func TestSetBaseContext_Nil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	SetBaseContext(ctx)
	if serverBaseCtx != ctx {
		t.Fatalf("base context not installed")
	}
	// nolint:staticcheck // SA1012: nil restores Background
	SetBaseContext(nil)
	if serverBaseCtx != context.Background() {
		t.Fatalf("nil did not restore Background")
	}
}

func TestJoinContexts(t *testing.T) {
	for _, which := range []string{"base", "request"} {
		t.Run(which, func(t *testing.T) {
			base, cancelBase := context.WithCancel(context.Background())
			defer cancelBase()
			req, cancelReq := context.WithCancel(context.Background())
			defer cancelReq()

			j, cancel := joinContexts(base, req)
			defer cancel()
			if which == "base" {
				cancelBase()
			} else {
				cancelReq()
			}
			waitDone(t, j)
		})
	}
}

func TestJoinContexts_CancelReleases(t *testing.T) {
	j, cancel := joinContexts(context.Background(), context.Background())
	cancel()
	waitDone(t, j)
}
