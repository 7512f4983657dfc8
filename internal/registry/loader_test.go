package registry

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"sessiond/pkg/types"
)

func TestLoadDir_FiltersGGUF(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.gguf":        "1234",
		"b.GGUF":        "", // case-insensitive
		"not-model.txt": "x",
		"model.bin":     "x",
	}
	for f, content := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(content), 0o644); err != nil {
			t.Fatalf("write temp file: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.gguf"), 0o755); err != nil {
		t.Fatal(err)
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	var a types.Model
	for _, m := range models {
		if m.ID == "a.gguf" {
			a = m
		}
	}
	if a.Name != "a" || a.Lib != "a" || a.EstimatedBytes != 4 || a.Path != filepath.Join(dir, "a.gguf") {
		t.Fatalf("unexpected entry: %+v", a)
	}
}

func TestLoadDir_ExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir on this platform: %v", err)
	}
	hTmp, err := os.MkdirTemp(home, "sessiond-registry-*")
	if err != nil {
		t.Skipf("cannot create temp under home: %v", err)
	}
	defer os.RemoveAll(hTmp)
	if err := os.WriteFile(filepath.Join(hTmp, "x.gguf"), []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var tildePath string
	if runtime.GOOS == "windows" {
		tildePath = filepath.Join("~", filepath.Base(hTmp))
	} else {
		tildePath = "~/" + filepath.Base(hTmp)
	}
	models, err := LoadDir(tildePath)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(models) != 1 || models[0].ID != "x.gguf" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestRegistry_MergeAndLookup(t *testing.T) {
	configured := []types.Model{
		{ID: "minigpt4", Name: "minigpt4-7b", Lib: "minigpt_q4f16_1", Path: "/m/minigpt4/params"},
		{ID: "b.gguf", Name: "B override", Path: "/m/b.gguf"},
		{ID: ""},
	}
	scanned := []types.Model{
		{ID: "b.gguf", Name: "b", Path: "/scan/b.gguf"},
		{ID: "a.gguf", Path: "/scan/a.gguf"},
	}
	r := New(configured, scanned)
	if r.Len() != 3 {
		t.Fatalf("expected 3 models, got %d", r.Len())
	}
	list := r.List()
	if list[0].ID != "a.gguf" || list[1].ID != "b.gguf" || list[2].ID != "minigpt4" {
		t.Fatalf("unexpected order: %+v", list)
	}
	b, ok := r.Lookup("b.gguf")
	if !ok || b.Name != "B override" || b.Path != "/m/b.gguf" {
		t.Fatalf("configured entry should win: %+v", b)
	}
	a, _ := r.Lookup("a.gguf")
	if a.Name != "a.gguf" {
		t.Fatalf("missing name should default to id, got %q", a.Name)
	}
	if _, ok := r.Lookup("zzz"); ok {
		t.Fatalf("unexpected hit")
	}
}
