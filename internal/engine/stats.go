package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// Section names and keys of the runtime stats text.
const (
	SectionPrefill = "prefill"
	SectionDecode  = "decode"
	SectionVision  = "vision"

	KeyTotalTokens = "total tokens"
	KeyTotalTime   = "total time"
	KeyThroughput  = "throughput"
)

// PhaseStats accumulates token and timing counters for one engine phase.
type PhaseStats struct {
	Tokens  int
	Elapsed time.Duration
}

func (p PhaseStats) section() map[string]string {
	tput := 0.0
	if secs := p.Elapsed.Seconds(); secs > 0 {
		tput = float64(p.Tokens) / secs
	}
	return map[string]string{
		KeyTotalTokens: fmt.Sprintf("%d tok", p.Tokens),
		KeyTotalTime:   fmt.Sprintf("%.3f s", p.Elapsed.Seconds()),
		KeyThroughput:  fmt.Sprintf("%.1f tok/s", tput),
	}
}

// FormatStats renders the runtime stats text: a JSON object of sections,
// each mapping a key to a "<value> <unit>" string, e.g.
//
//	{"decode":{"throughput":"10.0 tok/s","total time":"0.500 s","total tokens":"5 tok"}, ...}
//
// The vision section is included only when vision is non-nil.
func FormatStats(prefill, decode PhaseStats, vision *PhaseStats) string {
	doc := map[string]map[string]string{
		SectionPrefill: prefill.section(),
		SectionDecode:  decode.section(),
	}
	if vision != nil {
		doc[SectionVision] = vision.section()
	}
	b, _ := json.Marshal(doc)
	return string(b)
}
