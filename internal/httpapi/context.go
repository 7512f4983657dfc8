package httpapi

import "context"

// serverBaseCtx ends long-lived handlers (event streams, automation runs) on
// shutdown. It is Background until SetBaseContext is called.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process context; nil restores Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context canceled when either a or b is done. Call
// cancel when the handler returns.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(b)
	stop := context.AfterFunc(a, func() { cancel(context.Cause(a)) })
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
