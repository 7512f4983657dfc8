package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"

	"sessiond/internal/session"
)

// eventsHandler streams session events as server-sent events. Each event is
// written as "event: <name>" plus one "data:" line holding the JSON payload.
func eventsHandler(sub message.Subscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sub == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "event stream disabled")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}
		// Join server base context with request context so shutdown ends the stream too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		msgs, err := sub.Subscribe(ctx, session.EventsTopic)
		if err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, "subscribe: "+err.Error())
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		out := io.Writer(w)
		if requestLogLevel(r) >= LevelDebug {
			out = io.MultiWriter(w, &sseLogWriter{})
		}
		_, _ = fmt.Fprint(out, ": subscribed\n\n")
		flusher.Flush()

		sseClients.Inc()
		defer sseClients.Dec()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				name := m.Metadata.Get(session.EventNameKey)
				if name == "" {
					name = "message"
				}
				_, err := fmt.Fprintf(out, "event: %s\ndata: %s\n\n", name, m.Payload)
				m.Ack()
				if err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
