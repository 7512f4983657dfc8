package httpapi

import (
	"encoding/json"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"sessiond/pkg/types"
)

// NewMux builds the HTTP API around svc. events, if non-nil, backs GET /events.
func NewMux(svc Service, events message.Subscriber) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints; text/event-stream is not in the default list.
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(corsHandler())
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: svc.ListModels()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Messages())
	})

	r.Post("/reload", func(w http.ResponseWriter, r *http.Request) {
		var req types.ReloadRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}
		respond(w, r, "reload", func() (types.AcceptedResponse, error) { return svc.Reload(req.Model) })
	})

	r.Post("/generate", func(w http.ResponseWriter, r *http.Request) {
		var req types.GenerateRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		respond(w, r, "generate", func() (types.AcceptedResponse, error) { return svc.Generate(req.Prompt) })
	})

	r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, "reset", svc.Reset)
	})

	r.Post("/terminate", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, "terminate", svc.Terminate)
	})

	r.Post("/image", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
		img, format, err := image.Decode(r.Body)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid image: "+err.Error())
			return
		}
		logger().Debug().Str("format", format).Stringer("bounds", img.Bounds()).Msg("image received")
		respond(w, r, "process_image", func() (types.AcceptedResponse, error) { return svc.ProcessImage(img) })
	})

	r.Post("/automation", func(w http.ResponseWriter, r *http.Request) {
		var req types.AutomationRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}
		respond(w, r, "automation", func() (types.AcceptedResponse, error) {
			return svc.StartAutomation(serverBaseCtx, req)
		})
	})

	r.Get("/automation", func(w http.ResponseWriter, r *http.Request) {
		st, ok := svc.Automation()
		if !ok {
			writeJSONError(w, http.StatusNotFound, "no automation run")
			return
		}
		writeJSON(w, http.StatusOK, st)
	})

	r.Get("/events", eventsHandler(events))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// decodeJSON reads a JSON body into v. With optional set, an empty body is
// accepted and leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	if optional && r.ContentLength == 0 {
		return true
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// respond runs a mutating service call and writes 202 with the new state.
func respond(w http.ResponseWriter, r *http.Request, op string, call func() (types.AcceptedResponse, error)) {
	resp, err := call()
	if err != nil {
		status := statusFor(err)
		if requestLogLevel(r) >= LevelError {
			z := logger().Warn().Str("op", op).Int("status", status)
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Err(err).Msg("request refused")
		}
		writeJSONError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func corsHandler() func(http.Handler) http.Handler {
	methods := corsAllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := corsAllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "X-Log-Level"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		MaxAge:         300,
	})
}
