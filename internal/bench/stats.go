package bench

import (
	"encoding/json"
	"strconv"
	"strings"

	"sessiond/internal/engine"
)

// ParseRuntimeStats decodes the engine's runtime stats text into its sections.
func ParseRuntimeStats(text string) (map[string]map[string]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, malformedStatsError{msg: "empty"}
	}
	var sections map[string]map[string]string
	if err := json.Unmarshal([]byte(text), &sections); err != nil {
		return nil, malformedStatsError{msg: err.Error()}
	}
	return sections, nil
}

// TokenCounts extracts the prefill and decode "total tokens" counters.
func TokenCounts(text string) (input, output int, err error) {
	sections, err := ParseRuntimeStats(text)
	if err != nil {
		return 0, 0, err
	}
	if input, err = leadingInt(sections, engine.SectionPrefill); err != nil {
		return 0, 0, err
	}
	if output, err = leadingInt(sections, engine.SectionDecode); err != nil {
		return 0, 0, err
	}
	return input, output, nil
}

// leadingInt reads "<n> <unit>" from section[total tokens].
func leadingInt(sections map[string]map[string]string, section string) (int, error) {
	sec, ok := sections[section]
	if !ok {
		return 0, malformedStatsError{msg: "missing section " + section}
	}
	v, ok := sec[engine.KeyTotalTokens]
	if !ok {
		return 0, malformedStatsError{msg: "missing " + section + "." + engine.KeyTotalTokens}
	}
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return 0, malformedStatsError{msg: section + "." + engine.KeyTotalTokens + " is empty"}
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, malformedStatsError{msg: section + "." + engine.KeyTotalTokens + ": " + err.Error()}
	}
	return n, nil
}
