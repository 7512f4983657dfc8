package bench

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"sessiond/internal/common/fsutil"
)

// DefaultInputName is the input file looked up in the measurements directory
// when no explicit path is configured.
const DefaultInputName = "input.json"

// ReadInput loads conversations from a JSON array of arrays of questions.
func ReadInput(path string) ([][]string, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrap(err, "read bench input")
	}
	var conversations [][]string
	if err := json.Unmarshal(b, &conversations); err != nil {
		return nil, errors.Wrapf(err, "decode bench input %s", p)
	}
	return conversations, nil
}
