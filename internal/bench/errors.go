package bench

import "github.com/pkg/errors"

// malformedStatsError signals runtime stats text that lacks the sections or
// keys the harness reads token counts from.
type malformedStatsError struct{ msg string }

func (e malformedStatsError) Error() string { return "malformed runtime stats: " + e.msg }

// IsMalformedStats reports whether err (or its cause) is a stats parse failure.
func IsMalformedStats(err error) bool {
	_, ok := errors.Cause(err).(malformedStatsError)
	return ok
}
