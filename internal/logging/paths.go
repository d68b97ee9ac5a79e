package logging

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultLogDir returns the default log directory (~/.foldermind/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".foldermind", "logs")
	}
	return filepath.Join(home, ".foldermind", "logs")
}

// DefaultLogPath returns the default router log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "router.log")
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	return os.MkdirAll(DefaultLogDir(), 0o755)
}

// IncidentLogPath derives the sibling incidents file for mainPath, e.g.
// "router.log" -> "router.incidents.log". Fatal/Error-severity entries
// are mirrored there so they stay visible even once the main log has
// rotated past them.
func IncidentLogPath(mainPath string) string {
	ext := filepath.Ext(mainPath)
	base := strings.TrimSuffix(mainPath, ext)
	return base + ".incidents" + ext
}
