package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sessiond/internal/bench"
	"sessiond/internal/engine"
	"sessiond/internal/httpapi"
	"sessiond/internal/registry"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// createTempModelsDir creates a temporary directory populated with empty .gguf files
// and returns the directory path and the list of model IDs (filenames).
func createTempModelsDir(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir, names
}

type testServer struct {
	*httptest.Server
	eng     *engine.Echo
	session *session.Session
	measure string
}

// newServerForDir wires the echo engine, a session with a watermill event bus
// and the HTTP API the same way `sessiond serve` does.
func newServerForDir(t *testing.T, modelsDir string, stepDelay time.Duration) *testServer {
	t.Helper()
	scanned, err := registry.LoadDir(modelsDir)
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	reg := registry.New(nil, scanned)

	eng := engine.NewEcho()
	eng.StepDelay = stepDelay
	bus := session.NewEventBus(zerolog.Nop())
	t.Cleanup(func() { _ = bus.Close() })
	pub := session.NewWatermillPublisher(bus, session.EventsTopic, zerolog.Nop())
	t.Cleanup(pub.Close)
	s := session.New(eng, session.Config{
		Logger:    zerolog.Nop(),
		Publisher: pub,
	})
	t.Cleanup(s.Close)

	measure := t.TempDir()
	svc := httpapi.NewSessionService(s, reg, httpapi.SessionOptions{
		Bench:     bench.Config{Logger: zerolog.Nop(), MeasurementsDir: measure},
		InputPath: filepath.Join(measure, bench.DefaultInputName),
	})
	srv := httptest.NewServer(httpapi.NewMux(svc, bus))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, eng: eng, session: s, measure: measure}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func httpPostJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	resp, err := http.Post(url, "application/json", rd)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func getStatus(t *testing.T, base string) types.StatusResponse {
	t.Helper()
	resp, b := httpGet(t, base+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status: %d %s", resp.StatusCode, b)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(b, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return st
}

// waitForState polls /status until the session reports want.
func waitForState(t *testing.T, base, want string) types.StatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st := getStatus(t, base)
		if st.State == want {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("state=%s, want %s", st.State, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func getMessages(t *testing.T, base string) []types.MessageView {
	t.Helper()
	_, b := httpGet(t, base+"/messages")
	var m types.MessagesResponse
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	return m.Messages
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "word"
	}
	return strings.Join(w, " ")
}
