package httpapi

import (
	"context"
	"image"
	"sync"
	"time"

	"sessiond/internal/bench"
	"sessiond/internal/registry"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// Service defines the methods required by the HTTP API layer. Mutating
// methods return the state the session moved to, or an HTTPError.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Messages() types.MessagesResponse
	Reload(modelID string) (types.AcceptedResponse, error)
	Generate(prompt string) (types.AcceptedResponse, error)
	Reset() (types.AcceptedResponse, error)
	Terminate() (types.AcceptedResponse, error)
	ProcessImage(img image.Image) (types.AcceptedResponse, error)
	StartAutomation(ctx context.Context, req types.AutomationRequest) (types.AcceptedResponse, error)
	Automation() (types.AutomationStatus, bool)
	Ready() bool
}

// SessionOptions configures SessionService.
type SessionOptions struct {
	// DefaultModel is used by Reload when no id is given.
	DefaultModel string
	// Bench is the template for runs started with StartAutomation.
	Bench bench.Config
	// InputPath is read when an automation request carries no conversations.
	InputPath string
}

// SessionService exposes a session and model registry to the HTTP layer. It
// consults the state predicates before issuing a request and reports a
// refused request as 409 instead of letting the contract panic escape.
type SessionService struct {
	s       *session.Session
	reg     *registry.Registry
	opts    SessionOptions
	started time.Time

	mu      sync.Mutex
	harness *bench.Harness
}

func NewSessionService(s *session.Session, reg *registry.Registry, opts SessionOptions) *SessionService {
	return &SessionService{s: s, reg: reg, opts: opts, started: time.Now()}
}

func (svc *SessionService) ListModels() []types.Model { return svc.reg.List() }

func (svc *SessionService) Status() types.StatusResponse {
	snap := svc.s.Snapshot()
	st := snap.State
	resp := types.StatusResponse{
		State:          st.String(),
		ModelID:        snap.Model.ID,
		ModelName:      snap.Model.DisplayName,
		Vision:         snap.Model.UseVision,
		InfoText:       snap.InfoText,
		Messages:       snap.Messages,
		Chattable:      st.Chattable(),
		Resettable:     st.Resettable(),
		Interruptible:  st.Interruptible(),
		Uploadable:     st.Uploadable(),
		UptimeSeconds:  int64(time.Since(svc.started).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	if lt := snap.LoadTime; lt != nil {
		resp.LoadTime = &types.TimeSpan{
			Start:    float64(lt.Start.UnixNano()) / 1e9,
			Duration: lt.Duration.Seconds(),
		}
	}
	return resp
}

func (svc *SessionService) Messages() types.MessagesResponse {
	msgs := svc.s.Messages()
	out := types.MessagesResponse{Messages: make([]types.MessageView, 0, len(msgs))}
	for _, m := range msgs {
		out.Messages = append(out.Messages, types.MessageView{ID: m.ID.String(), Role: string(m.Role), Text: m.Text})
	}
	return out
}

// Ready reports whether a model is loaded and the session is not busy loading it.
func (svc *SessionService) Ready() bool {
	snap := svc.s.Snapshot()
	return snap.Model.ID != "" && snap.State != session.StateReloading && snap.State != session.StateFailed
}

func (svc *SessionService) accepted() types.AcceptedResponse {
	return types.AcceptedResponse{State: svc.s.State().String()}
}

func (svc *SessionService) Reload(modelID string) (types.AcceptedResponse, error) {
	if modelID == "" {
		modelID = svc.opts.DefaultModel
	}
	if modelID == "" {
		return types.AcceptedResponse{}, errBadRequest("model is required")
	}
	m, ok := svc.reg.Lookup(modelID)
	if !ok {
		return types.AcceptedResponse{}, errNotFound("model not found: " + modelID)
	}
	if !svc.s.State().Interruptible() && !svc.s.IsCurrentModel(modelID) {
		return types.AcceptedResponse{}, rejected("reload", svc.s.State())
	}
	err := guard("reload", func() {
		svc.s.RequestReload(session.Model{
			ID:             m.ID,
			Lib:            m.Lib,
			Path:           m.Path,
			DisplayName:    m.Name,
			EstimatedBytes: m.EstimatedBytes,
		})
	})
	return svc.accepted(), err
}

func (svc *SessionService) Generate(prompt string) (types.AcceptedResponse, error) {
	if st := svc.s.State(); !st.Chattable() {
		return types.AcceptedResponse{}, rejected("generate", st)
	}
	err := guard("generate", func() { svc.s.RequestGenerate(prompt) })
	return svc.accepted(), err
}

func (svc *SessionService) Reset() (types.AcceptedResponse, error) {
	if st := svc.s.State(); !st.Resettable() {
		return types.AcceptedResponse{}, rejected("reset", st)
	}
	err := guard("reset", svc.s.RequestReset)
	return svc.accepted(), err
}

func (svc *SessionService) Terminate() (types.AcceptedResponse, error) {
	if st := svc.s.State(); !st.Interruptible() {
		return types.AcceptedResponse{}, rejected("terminate", st)
	}
	err := guard("terminate", func() {
		svc.s.RequestTerminate(func() { logger().Info().Msg("session terminated") })
	})
	return svc.accepted(), err
}

func (svc *SessionService) ProcessImage(img image.Image) (types.AcceptedResponse, error) {
	if st := svc.s.State(); !st.Uploadable() {
		return types.AcceptedResponse{}, rejected("process_image", st)
	}
	err := guard("process_image", func() { svc.s.RequestProcessImage(img) })
	return svc.accepted(), err
}

// StartAutomation starts a benchmark run on the session. ctx bounds the run.
func (svc *SessionService) StartAutomation(ctx context.Context, req types.AutomationRequest) (types.AcceptedResponse, error) {
	convs := req.Conversations
	if len(convs) == 0 {
		var err error
		if convs, err = bench.ReadInput(svc.opts.InputPath); err != nil {
			return types.AcceptedResponse{}, errBadRequest(err.Error())
		}
	}
	if st := svc.s.State(); !st.Chattable() {
		return types.AcceptedResponse{}, rejected("automation", st)
	}
	cfg := svc.opts.Bench
	if req.FileName != "" {
		cfg.FileName = req.FileName
	}
	h := bench.New(convs, cfg)
	if err := guard("automation", func() { h.Start(ctx, svc.s) }); err != nil {
		return types.AcceptedResponse{}, err
	}
	svc.mu.Lock()
	svc.harness = h
	svc.mu.Unlock()
	return svc.accepted(), nil
}

// Automation reports the most recent run, if one was started.
func (svc *SessionService) Automation() (types.AutomationStatus, bool) {
	svc.mu.Lock()
	h := svc.harness
	svc.mu.Unlock()
	if h == nil {
		return types.AutomationStatus{}, false
	}
	select {
	case <-h.Done():
	default:
		return types.AutomationStatus{Running: true}, true
	}
	res := h.Result()
	st := types.AutomationStatus{
		Conversations:    res.Conversations,
		Questions:        res.Questions,
		SkippedQuestions: res.SkippedQuestions,
		Interrupted:      res.Interrupted,
		Notified:         res.Notified,
		Path:             res.Path,
	}
	if res.SaveErr != nil {
		st.Error = res.SaveErr.Error()
	}
	return st, true
}

func rejected(op string, st session.State) error {
	incrementRejected(op)
	return errConflict(op + " not allowed in state " + st.String())
}

// guard turns a contract panic into a 409 for requests that lost a race
// with another caller after the predicate check.
func guard(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*session.ContractError)
			if !ok {
				panic(r)
			}
			err = rejected(op, ce.State)
		}
	}()
	fn()
	return nil
}

var _ Service = (*SessionService)(nil)
