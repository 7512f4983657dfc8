package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"sessiond/internal/common/fsutil"
	"sessiond/pkg/types"
)

// LoadDir scans a directory for *.gguf files and builds model entries from them.
// ID is the full filename (including extension), Name and Lib the filename
// without extension, Path the absolute file path and EstimatedBytes the file size.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.Wrap(err, "abs path")
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errors.Wrap(err, "read dir")
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		stem := name[:len(name)-len(filepath.Ext(name))]
		models = append(models, types.Model{
			ID:             name,
			Name:           stem,
			Lib:            stem,
			Path:           filepath.Join(abs, name),
			EstimatedBytes: size,
		})
	}
	return models, nil
}

// Registry is the read-only set of models the server offers.
type Registry struct {
	models []types.Model
	byID   map[string]int
}

// New merges configured entries with scanned ones. Configured entries win
// on an ID clash. Entries without a Name use their ID.
func New(configured, scanned []types.Model) *Registry {
	r := &Registry{byID: map[string]int{}}
	add := func(m types.Model) {
		if m.ID == "" {
			return
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		if _, ok := r.byID[m.ID]; ok {
			return
		}
		r.byID[m.ID] = len(r.models)
		r.models = append(r.models, m)
	}
	for _, m := range configured {
		add(m)
	}
	for _, m := range scanned {
		add(m)
	}
	sort.SliceStable(r.models, func(i, j int) bool { return r.models[i].ID < r.models[j].ID })
	for i, m := range r.models {
		r.byID[m.ID] = i
	}
	return r
}

// Lookup returns the model with the given id.
func (r *Registry) Lookup(id string) (types.Model, bool) {
	i, ok := r.byID[id]
	if !ok {
		return types.Model{}, false
	}
	return r.models[i], true
}

// List returns a copy of all models ordered by ID.
func (r *Registry) List() []types.Model {
	out := make([]types.Model, len(r.models))
	copy(out, r.models)
	return out
}

func (r *Registry) Len() int { return len(r.models) }
