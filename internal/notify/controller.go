package notify

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Controller is the receiving side of the handshake. It serves /continue and
// reports the first call through Await or Serve.
type Controller struct {
	log   zerolog.Logger
	hits  atomic.Int64
	first chan struct{}
	fired atomic.Bool
}

func NewController(log zerolog.Logger) *Controller {
	return &Controller{log: log, first: make(chan struct{})}
}

// Hits counts /continue calls received so far.
func (c *Controller) Hits() int64 { return c.hits.Load() }

// Continued is closed on the first /continue call.
func (c *Controller) Continued() <-chan struct{} { return c.first }

func (c *Controller) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(ContinuePath, func(w http.ResponseWriter, r *http.Request) {
		n := c.hits.Add(1)
		c.log.Info().Str("remote", r.RemoteAddr).Int64("hits", n).Msg("continue received")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("continue"))
		if c.fired.CompareAndSwap(false, true) {
			close(c.first)
		}
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Serve answers on l until the first /continue call, then shuts down. It
// returns ctx.Err() if ctx ends first.
func (c *Controller) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{Handler: c.Handler(), ReadHeaderTimeout: 5 * time.Second}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "controller serve")
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-c.first:
		case <-gctx.Done():
		}
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	err := g.Wait()
	select {
	case <-c.first:
		return err
	default:
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Await listens on addr and blocks until the run reports completion.
func (c *Controller) Await(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}
	c.log.Info().Str("addr", l.Addr().String()).Msg("awaiting continue")
	return c.Serve(ctx, l)
}
