package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// RotatingWriter implements io.Writer with size-based rotation.
type RotatingWriter struct {
	path     string
	maxSize  int64
	maxFiles int

	mu            sync.Mutex
	file          *os.File
	written       int64
	immediateSync bool // Sync after each write for real-time visibility
}

// NewRotatingWriter creates a new rotating log writer.
// maxSizeMB is the maximum size in megabytes before rotation.
// maxFiles is the maximum number of rotated files to keep.
// Immediate sync is enabled by default so a debugging session watching
// the file sees entries as they're written, not once the process exits.
func NewRotatingWriter(path string, maxSizeMB, maxFiles int) (*RotatingWriter, error) {
	w := &RotatingWriter{
		path:          path,
		maxSize:       int64(maxSizeMB) * 1024 * 1024,
		maxFiles:      maxFiles,
		immediateSync: true,
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open or create the log file
	if err := w.openFile(); err != nil {
		return nil, err
	}

	return w, nil
}

// SetImmediateSync enables or disables immediate sync after each write.
// When disabled, writes may be buffered by the OS for better throughput
// under the high entry volume of a batch route operation.
func (w *RotatingWriter) SetImmediateSync(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.immediateSync = enabled
}

// Write implements io.Writer with automatic rotation. If immediateSync
// is enabled, it syncs to disk after each write.
func (w *RotatingWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Check if rotation is needed
	if w.written+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			// Continue writing to current file if rotation fails
			_, _ = fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}

	n, err = w.file.Write(p)
	w.written += int64(n)

	if w.immediateSync && err == nil {
		_ = w.file.Sync()
	}

	return
}

// Close closes the underlying file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// Sync flushes the file to disk.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return w.file.Sync()
	}
	return nil
}

// openFile opens or creates the log file.
func (w *RotatingWriter) openFile() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	// Get current file size
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	w.file = f
	w.written = info.Size()
	return nil
}

// rotate performs log rotation.
// server.log -> server.log.1 -> server.log.2 -> ... -> delete oldest
func (w *RotatingWriter) rotate() error {
	// Close current file
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		w.file = nil
	}

	// Find existing rotated files
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	pattern := base + ".*"

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("failed to find rotated files: %w", err)
	}

	// Sort by number (highest first) to rename in correct order
	type rotatedFile struct {
		path string
		num  int
	}
	var files []rotatedFile
	for _, m := range matches {
		// Extract number from filename
		suffix := strings.TrimPrefix(filepath.Base(m), base+".")
		num, err := strconv.Atoi(suffix)
		if err != nil {
			continue // Skip files that don't match pattern
		}
		files = append(files, rotatedFile{path: m, num: num})
	}

	// Sort by number descending
	sort.Slice(files, func(i, j int) bool {
		return files[i].num > files[j].num
	})

	// Delete files beyond maxFiles
	for _, f := range files {
		if f.num >= w.maxFiles {
			_ = os.Remove(f.path)
		}
	}

	// Rename existing files (start from highest to avoid overwriting)
	for _, f := range files {
		if f.num < w.maxFiles {
			newPath := fmt.Sprintf("%s.%d", w.path, f.num+1)
			_ = os.Rename(f.path, newPath)
		}
	}

	// Rename current log to .1
	if _, err := os.Stat(w.path); err == nil {
		newPath := w.path + ".1"
		if err := os.Rename(w.path, newPath); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	// Open new log file
	w.written = 0
	return w.openFile()
}

// fatalOrErrorMarker is what LogRouterError's JSON handler emits for
// the SeverityKey attribute on a Fatal or Error severity entry.
// IncidentWriter scans each line for these rather than decoding JSON,
// since the handler's field order/escaping is fixed.
var fatalOrErrorMarker = [][]byte{
	[]byte(`"router_severity":"FATAL"`),
	[]byte(`"router_severity":"ERROR"`),
}

// IncidentWriter wraps a main RotatingWriter with a second one that
// only receives entries carrying Fatal or Error severity (see
// LogRouterError). A multi-day debug session can rotate thousands of
// routine entries out of the main log; mirroring incidents to their
// own file keeps a stage failure from aging out before anyone reads it.
type IncidentWriter struct {
	main      *RotatingWriter
	incidents *RotatingWriter
}

// NewIncidentWriter builds an IncidentWriter from its two underlying
// rotating writers.
func NewIncidentWriter(main, incidents *RotatingWriter) *IncidentWriter {
	return &IncidentWriter{main: main, incidents: incidents}
}

// Write always writes p to the main log, then mirrors it to the
// incidents log if it carries Fatal or Error severity. A mirroring
// failure is not fatal to the main write.
func (w *IncidentWriter) Write(p []byte) (int, error) {
	n, err := w.main.Write(p)
	if err != nil {
		return n, err
	}
	for _, marker := range fatalOrErrorMarker {
		if bytes.Contains(p, marker) {
			_, _ = w.incidents.Write(p)
			break
		}
	}
	return n, nil
}

// Close closes both underlying writers, returning the main writer's
// error if both fail.
func (w *IncidentWriter) Close() error {
	incErr := w.incidents.Close()
	if err := w.main.Close(); err != nil {
		return err
	}
	return incErr
}

// Sync flushes both underlying writers, returning the main writer's
// error if both fail.
func (w *IncidentWriter) Sync() error {
	incErr := w.incidents.Sync()
	if err := w.main.Sync(); err != nil {
		return err
	}
	return incErr
}
