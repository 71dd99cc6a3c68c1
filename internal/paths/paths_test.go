package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPathsUnderDataDir(t *testing.T) {
	dir := "/tmp/pl-test"
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"db", DBPath(dir), filepath.Join(dir, "sync.db")},
		{"lock", LockPath(dir), filepath.Join(dir, "LOCK")},
		{"log", LogPath(dir), filepath.Join(dir, "logs", "paperlessd.log")},
		{"config", ConfigPath(dir), filepath.Join(dir, "config.toml")},
		{"staging", UploadStagingDir(dir), filepath.Join(dir, "uploads")},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestDefaultBaseDir(t *testing.T) {
	if !strings.HasSuffix(DefaultBaseDir(), ".paperless-scanner") {
		t.Errorf("base dir = %q, want ~/.paperless-scanner", DefaultBaseDir())
	}
}

func TestEnsureDirs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	if err := EnsureDirs(dir); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{dir, LogDir(dir), UploadStagingDir(dir)} {
		info, err := os.Stat(d)
		if err != nil {
			t.Fatalf("stat %s: %v", d, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", d)
		}
		if info.Mode().Perm() != 0700 {
			t.Errorf("%s permission = %o, want 0700", d, info.Mode().Perm())
		}
	}
}
