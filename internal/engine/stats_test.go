package engine

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFormatStats_Sections(t *testing.T) {
	txt := FormatStats(PhaseStats{Tokens: 3, Elapsed: time.Second}, PhaseStats{Tokens: 5, Elapsed: 500 * time.Millisecond}, nil)
	var doc map[string]map[string]string
	if err := json.Unmarshal([]byte(txt), &doc); err != nil {
		t.Fatalf("stats text is not JSON: %v", err)
	}
	if doc[SectionPrefill][KeyTotalTokens] != "3 tok" {
		t.Fatalf("prefill tokens: %+v", doc[SectionPrefill])
	}
	if doc[SectionDecode][KeyTotalTokens] != "5 tok" {
		t.Fatalf("decode tokens: %+v", doc[SectionDecode])
	}
	if doc[SectionDecode][KeyThroughput] != "10.0 tok/s" {
		t.Fatalf("decode throughput: %+v", doc[SectionDecode])
	}
	if _, ok := doc[SectionVision]; ok {
		t.Fatalf("unexpected vision section")
	}
}

func TestFormatStats_ZeroElapsed(t *testing.T) {
	txt := FormatStats(PhaseStats{}, PhaseStats{Tokens: 1}, &PhaseStats{})
	var doc map[string]map[string]string
	if err := json.Unmarshal([]byte(txt), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc[SectionDecode][KeyThroughput] != "0.0 tok/s" {
		t.Fatalf("expected zero throughput, got %q", doc[SectionDecode][KeyThroughput])
	}
	if _, ok := doc[SectionVision]; !ok {
		t.Fatalf("expected vision section")
	}
}
