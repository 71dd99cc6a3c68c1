// Package paths centralizes filesystem locations for the sync core's
// durable state under a single data directory (default ~/.paperless-scanner).
package paths

import (
	"os"
	"path/filepath"
)

// DefaultBaseDir returns ~/.paperless-scanner.
func DefaultBaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".paperless-scanner")
}

// DBPath returns the sync database path inside the data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "sync.db")
}

// LockPath returns the single-instance lock file path.
func LockPath(dataDir string) string {
	return filepath.Join(dataDir, "LOCK")
}

// LogDir returns the log directory inside the data directory.
func LogDir(dataDir string) string {
	return filepath.Join(dataDir, "logs")
}

// LogPath returns the daemon log file path.
func LogPath(dataDir string) string {
	return filepath.Join(LogDir(dataDir), "paperlessd.log")
}

// ConfigPath returns the config file path inside the data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// UploadStagingDir returns where queued upload files are staged.
func UploadStagingDir(dataDir string) string {
	return filepath.Join(dataDir, "uploads")
}

// EnsureDirs creates the data directory tree with proper permissions.
func EnsureDirs(dataDir string) error {
	dirs := []string{
		dataDir,
		LogDir(dataDir),
		UploadStagingDir(dataDir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
