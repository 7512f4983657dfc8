package bench

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"sessiond/internal/common/fsutil"
)

// Recorder accumulates conversation records in memory and writes them once.
type Recorder struct {
	dir string

	mu   sync.Mutex
	runs Run
}

func NewRecorder(dir string) *Recorder { return &Recorder{dir: dir} }

func (r *Recorder) Add(c ConversationRecord) {
	r.mu.Lock()
	r.runs = append(r.runs, c)
	r.mu.Unlock()
}

// Run returns a copy of the accumulated records.
func (r *Recorder) Run() Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(Run, len(r.runs))
	copy(out, r.runs)
	return out
}

// Save writes the run pretty-printed to <dir>/<fileName>.json and returns the path.
func (r *Recorder) Save(fileName string) (string, error) {
	run := r.Run()
	if run == nil {
		run = Run{}
	}
	b, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode run")
	}
	path := filepath.Join(r.dir, fileName+".json")
	if err := fsutil.WriteFileAtomic(path, b, 0o644); err != nil {
		return "", errors.Wrapf(err, "save run %s", path)
	}
	return path, nil
}

// LoadRun reads a run previously written by Save.
func LoadRun(path string) (Run, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read run")
	}
	var run Run
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, errors.Wrapf(err, "decode run %s", path)
	}
	return run, nil
}
