package bench

import (
	"encoding/json"
	"math"
	"time"
)

// UnknownSessionTokens is stored in QuestionRecord.OriginalSessionTokens; the
// engine does not report the prior context length.
const UnknownSessionTokens = -1

// TimeSpan marshals as {"start": <epoch seconds>, "duration": <seconds>}.
type TimeSpan struct {
	Start    time.Time
	Duration time.Duration
}

type timeSpanJSON struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

func (t TimeSpan) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeSpanJSON{
		Start:    float64(t.Start.UnixNano()) / 1e9,
		Duration: t.Duration.Seconds(),
	})
}

func (t *TimeSpan) UnmarshalJSON(b []byte) error {
	var raw timeSpanJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	sec, frac := math.Modf(raw.Start)
	t.Start = time.Unix(int64(sec), int64(math.Round(frac*1e9)))
	t.Duration = time.Duration(math.Round(raw.Duration * float64(time.Second)))
	return nil
}

// QuestionRecord is the measurement of a single answered question.
type QuestionRecord struct {
	Time                  TimeSpan `json:"time"`
	Input                 string   `json:"input"`
	Output                string   `json:"output"`
	OriginalSessionTokens int      `json:"original_session_tokens"`
	InputTokens           int      `json:"input_tokens"`
	OutputTokens          int      `json:"output_tokens"`
	RuntimeStats          string   `json:"runtimeStats"`
}

// ConversationRecord groups the questions of one conversation. ModelLoadTime
// is nil when the session never recorded a successful load.
type ConversationRecord struct {
	ModelName       string           `json:"modelName"`
	ModelLoadTime   *TimeSpan        `json:"modelLoadTime,omitempty"`
	QuestionRecords []QuestionRecord `json:"questionRecords"`
}

// Run is the persisted output of one harness run.
type Run []ConversationRecord
