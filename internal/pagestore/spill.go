package pagestore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URIPrefix is the scheme under which spill files are addressed.
const URIPrefix = "mcp://tmp/"

// ErrNotFound is returned when a spill URI names no file on disk.
var ErrNotFound = errors.New("spill file not found")

// Store manages the spill directory: temp files holding full stdout/stderr
// of executions whose output exceeds the page budget.
type Store struct {
	dir    string
	logger *slog.Logger
}

// DefaultDir returns $HOME/.shemcp/tmp.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".shemcp", "tmp"), nil
}

// NewStore creates a store rooted at dir. The directory is created lazily
// on first write.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the spill directory path.
func (s *Store) Dir() string { return s.dir }

// NewSpill allocates a spill handle for one execution. Files are created on
// first write, so a side that never produces bytes never leaves a file.
func (s *Store) NewSpill() *Spill {
	id := uuid.NewString()
	return &Spill{
		store:      s,
		stdoutName: "exec-" + id + ".out",
		stderrName: "exec-" + id + ".err",
	}
}

// PathForURI maps an mcp://tmp/ URI to a path inside the spill directory.
// The basename is validated so a URI cannot address anything outside it.
func (s *Store) PathForURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, URIPrefix) {
		return "", fmt.Errorf("invalid uri %q: must start with %s", uri, URIPrefix)
	}
	name := strings.TrimPrefix(uri, URIPrefix)
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid uri %q: malformed basename", uri)
	}
	return filepath.Join(s.dir, name), nil
}

// URIForName returns the mcp://tmp/ URI for a spill basename.
func URIForName(name string) string { return URIPrefix + name }

// Size returns the current byte size of a spill file.
func (s *Store) Size(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return fi.Size(), nil
}

// ReadRange streams bytes [start, end) from a spill file. end at or before
// start yields an empty slice. Ranges are clamped to the file size.
func (s *Store) ReadRange(path string, start, end int64) ([]byte, error) {
	if end <= start {
		return []byte{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if start >= fi.Size() {
		return []byte{}, nil
	}
	if end > fi.Size() {
		end = fi.Size()
	}

	buf := make([]byte, end-start)
	if _, err := io.ReadFull(io.NewSectionReader(f, start, end-start), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Remove deletes a spill file, logging rather than failing on error.
func (s *Store) Remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("removing spill file failed", "path", path, "error", err)
	}
}

// Sweep deletes spill files older than maxAge. Abrupt exits can leave
// files behind; this runs opportunistically at startup.
func (s *Store) Sweep(maxAge time.Duration) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "exec-") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		s.Remove(filepath.Join(s.dir, e.Name()))
	}
}

// Spill accumulates one execution's streams on disk. Writes degrade
// gracefully: an I/O failure disables the side and the response simply
// omits its URI.
type Spill struct {
	store      *Store
	stdoutName string
	stderrName string

	stdout side
	stderr side
}

type side struct {
	file   *os.File
	broken bool
	wrote  bool
}

// WriteStdout appends captured stdout bytes to the spill file.
func (sp *Spill) WriteStdout(b []byte) { sp.write(&sp.stdout, sp.stdoutName, b) }

// WriteStderr appends captured stderr bytes to the spill file.
func (sp *Spill) WriteStderr(b []byte) { sp.write(&sp.stderr, sp.stderrName, b) }

func (sp *Spill) write(sd *side, name string, b []byte) {
	if len(b) == 0 || sd.broken {
		return
	}
	if sd.file == nil {
		if err := os.MkdirAll(sp.store.dir, 0o700); err != nil {
			sp.store.logger.Warn("creating spill dir failed", "dir", sp.store.dir, "error", err)
			sd.broken = true
			return
		}
		f, err := os.OpenFile(filepath.Join(sp.store.dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			sp.store.logger.Warn("creating spill file failed", "name", name, "error", err)
			sd.broken = true
			return
		}
		sd.file = f
	}
	if _, err := sd.file.Write(b); err != nil {
		sp.store.logger.Warn("spill write failed", "name", name, "error", err)
		sd.broken = true
		_ = sd.file.Close()
		sd.file = nil
		return
	}
	sd.wrote = true
}

// Close flushes and closes both sides. Call before serving pages from the
// spill files.
func (sp *Spill) Close() {
	for _, sd := range []*side{&sp.stdout, &sp.stderr} {
		if sd.file != nil {
			_ = sd.file.Close()
			sd.file = nil
		}
	}
}

// StdoutRetained reports whether the stdout side holds a usable file.
func (sp *Spill) StdoutRetained() bool { return sp.stdout.wrote && !sp.stdout.broken }

// StderrRetained reports whether the stderr side holds a usable file.
func (sp *Spill) StderrRetained() bool { return sp.stderr.wrote && !sp.stderr.broken }

// StdoutPath returns the on-disk path of the stdout spill.
func (sp *Spill) StdoutPath() string { return filepath.Join(sp.store.dir, sp.stdoutName) }

// StderrPath returns the on-disk path of the stderr spill.
func (sp *Spill) StderrPath() string { return filepath.Join(sp.store.dir, sp.stderrName) }

// StdoutURI returns the mcp://tmp/ URI of the stdout spill.
func (sp *Spill) StdoutURI() string { return URIForName(sp.stdoutName) }

// StderrURI returns the mcp://tmp/ URI of the stderr spill.
func (sp *Spill) StderrURI() string { return URIForName(sp.stderrName) }

// Discard removes any files this spill created.
func (sp *Spill) Discard() {
	sp.Close()
	// A side whose first write failed may still have created its file, so
	// both paths are removed; Remove ignores files that do not exist.
	sp.store.Remove(sp.StdoutPath())
	sp.store.Remove(sp.StderrPath())
}
