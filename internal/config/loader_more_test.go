package config

import "testing"

func TestLoad_Malformed(t *testing.T) {
	cases := map[string]string{
		"bad.yaml": "addr: :8080\n: broken\n",
		"bad.json": `{ "addr": ":8080", "models_dir": }`,
		"bad.toml": "addr=:8080\nmodels_dir\n",
		"dur.yaml": "bench:\n  exit_delay: soon\n",
	}
	d := t.TempDir()
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeTempFile(t, d, name, body)); err == nil {
				t.Fatalf("expected decode error")
			}
		})
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}
