package bench

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"sessiond/internal/common/fsutil"
	"sessiond/internal/engine"
	"sessiond/internal/session"
)

// Defaults for Config durations. The harness itself uses Config verbatim, so
// callers that want these must set them.
const (
	DefaultQuestionCooldown     = 5 * time.Second
	DefaultConversationCooldown = 60 * time.Second
	DefaultNotifyTimeout        = 10 * time.Second
	DefaultFileName             = "measurements"

	sleepMarker = "--sleep--"
)

// Driver is the privileged view of a session a run needs. *session.Automation
// implements it.
type Driver interface {
	Engine() engine.Engine
	Interrupted() bool
	AppendMessage(role session.Role, text string)
	ModelName() string
	UseVision() bool
	ModelLoadTime() (session.LoadTiming, bool)
}

var _ Driver = (*session.Automation)(nil)

// Notifier tells the external controller that the run is over.
type Notifier interface {
	Continue(ctx context.Context) (string, error)
}

// Config controls a harness run.
type Config struct {
	Logger zerolog.Logger
	// MeasurementsDir receives <FileName>.json and the per-conversation event logs.
	MeasurementsDir      string
	FileName             string
	QuestionCooldown     time.Duration
	ConversationCooldown time.Duration
	// Notifier is optional; a nil Notifier skips the completion call.
	Notifier      Notifier
	NotifyTimeout time.Duration
}

// Result summarizes a finished run.
type Result struct {
	Run              Run
	Path             string
	SaveErr          error
	Conversations    int
	Questions        int
	SkippedQuestions int
	Interrupted      bool
	Notified         bool
}

// Harness drives the configured conversations through one session. A Harness
// runs at most once.
type Harness struct {
	cfg   Config
	log   zerolog.Logger
	input [][]string
	rec   *Recorder

	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	result Result
}

func New(input [][]string, cfg Config) *Harness {
	if cfg.FileName == "" {
		cfg.FileName = DefaultFileName
	}
	return &Harness{
		cfg:   cfg,
		log:   cfg.Logger.With().Str("component", "bench").Logger(),
		input: input,
		rec:   NewRecorder(cfg.MeasurementsDir),
		done:  make(chan struct{}),
	}
}

// Start hands the run to s as an automation. It panics with a
// *session.ContractError if s is not Ready.
func (h *Harness) Start(ctx context.Context, s *session.Session) {
	s.RequestAutomation(func(a *session.Automation) { h.Run(ctx, a) })
}

// Done is closed when the run has been persisted and the controller notified.
func (h *Harness) Done() <-chan struct{} { return h.done }

// Result returns the run summary. It is complete once Done is closed.
func (h *Harness) Result() Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Run executes every conversation and returns the summary. It stops early
// when d reports an interruption or ctx is canceled, and still persists and
// notifies in that case.
func (h *Harness) Run(ctx context.Context, d Driver) Result {
	h.once.Do(func() {
		res := h.run(ctx, d)
		h.mu.Lock()
		h.result = res
		h.mu.Unlock()
		close(h.done)
	})
	return h.Result()
}

func (h *Harness) run(ctx context.Context, d Driver) Result {
	var res Result
	eng := d.Engine()
	h.log.Info().Int("conversations", len(h.input)).Str("model", d.ModelName()).Msg("bench run started")
	// event logs are written per conversation, long before the run is saved
	if err := fsutil.EnsureDir(h.cfg.MeasurementsDir); err != nil {
		h.log.Error().Err(err).Str("dir", h.cfg.MeasurementsDir).Msg("measurements dir")
	}

	for c, questions := range h.input {
		if h.stopped(ctx, d) {
			res.Interrupted = true
			break
		}
		conv := ConversationRecord{ModelName: d.ModelName(), QuestionRecords: []QuestionRecord{}}
		if lt, ok := d.ModelLoadTime(); ok {
			conv.ModelLoadTime = &TimeSpan{Start: lt.Start, Duration: lt.Duration}
		}
		for q, question := range questions {
			if h.stopped(ctx, d) {
				res.Interrupted = true
				break
			}
			rec, err := h.ask(d, c, q, question)
			res.Questions++
			if err != nil {
				res.SkippedQuestions++
				questionsTotal.WithLabelValues("skipped").Inc()
				h.log.Error().Err(err).Int("conversation", c).Int("question", q).Msg("question not recorded")
			} else {
				questionsTotal.WithLabelValues("recorded").Inc()
				conv.QuestionRecords = append(conv.QuestionRecords, rec)
			}
			h.cooldown(ctx, d, h.cfg.QuestionCooldown)
		}

		csvPath := filepath.Join(h.cfg.MeasurementsDir, fmt.Sprintf("%s_conv%d.csv", h.cfg.FileName, c))
		if err := eng.SaveEventLogCSV(csvPath); err != nil {
			h.log.Error().Err(err).Str("path", csvPath).Msg("save event log")
		}
		h.rec.Add(conv)
		res.Conversations++
		conversationsTotal.Inc()

		eng.ResetSession()
		eng.ClearEventLog()
		d.AppendMessage(session.RoleBot, sleepMarker)
		if res.Interrupted {
			break
		}
		h.cooldown(ctx, d, h.cfg.ConversationCooldown)
	}

	res.Run = h.rec.Run()
	res.Path, res.SaveErr = h.rec.Save(h.cfg.FileName)
	if res.SaveErr != nil {
		h.log.Error().Err(res.SaveErr).Msg("bench results not saved")
	} else {
		h.log.Info().Str("path", res.Path).Int("conversations", res.Conversations).Int("skipped", res.SkippedQuestions).Msg("bench results saved")
	}
	res.Notified = h.notify(ctx)
	return res
}

// ask runs one question to completion or interruption.
func (h *Harness) ask(d Driver, c, q int, question string) (QuestionRecord, error) {
	eng := d.Engine()
	d.AppendMessage(session.RoleUser, fmt.Sprintf("%d_%d: %s", c, q, question))

	start := time.Now()
	eng.Prefill(question)
	for !eng.Stopped() {
		eng.DecodeStep()
		if d.Interrupted() {
			break
		}
	}
	elapsed := time.Since(start)
	questionDuration.Observe(elapsed.Seconds())

	stats, _ := eng.RuntimeStatsText(d.UseVision())
	output, ok := eng.Message()
	if ok {
		d.AppendMessage(session.RoleBot, fmt.Sprintf("%d_%d: %s", c, q, output))
	}
	in, out, err := TokenCounts(stats)
	if err != nil {
		return QuestionRecord{}, errors.Wrapf(err, "question %d_%d", c, q)
	}
	return QuestionRecord{
		Time:                  TimeSpan{Start: start, Duration: elapsed},
		Input:                 question,
		Output:                output,
		OriginalSessionTokens: UnknownSessionTokens,
		InputTokens:           in,
		OutputTokens:          out,
		RuntimeStats:          stats,
	}, nil
}

func (h *Harness) stopped(ctx context.Context, d Driver) bool {
	return ctx.Err() != nil || d.Interrupted()
}

// cooldown sleeps for dur, waking early on interruption or cancellation.
func (h *Harness) cooldown(ctx context.Context, d Driver, dur time.Duration) {
	if dur <= 0 {
		return
	}
	deadline := time.NewTimer(dur)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-deadline.C:
			return
		case <-ctx.Done():
			return
		case <-tick.C:
			if d.Interrupted() {
				return
			}
		}
	}
}

// notify is best effort: failures are logged and never retried.
func (h *Harness) notify(ctx context.Context) bool {
	if h.cfg.Notifier == nil {
		return false
	}
	timeout := h.cfg.NotifyTimeout
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	// The run may have been stopped by ctx; the controller still gets told.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	body, err := h.cfg.Notifier.Continue(nctx)
	if err != nil {
		notifyTotal.WithLabelValues("error").Inc()
		h.log.Warn().Err(err).Msg("controller notification failed")
		return false
	}
	notifyTotal.WithLabelValues("ok").Inc()
	h.log.Info().Str("response", body).Msg("controller notified")
	return true
}
