package pagestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), nil)
}

func TestSpill_WriteAndRead(t *testing.T) {
	s := newTestStore(t)
	sp := s.NewSpill()

	sp.WriteStdout([]byte("hello "))
	sp.WriteStdout([]byte("world"))
	sp.Close()

	assert.True(t, sp.StdoutRetained())
	assert.False(t, sp.StderrRetained())

	size, err := s.Size(sp.StdoutPath())
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	data, err := s.ReadRange(sp.StdoutPath(), 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = s.ReadRange(sp.StdoutPath(), 6, 11)
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))
}

func TestSpill_StderrSideIndependent(t *testing.T) {
	s := newTestStore(t)
	sp := s.NewSpill()

	sp.WriteStderr([]byte("oops"))
	sp.Close()

	assert.False(t, sp.StdoutRetained())
	assert.True(t, sp.StderrRetained())
	_, err := os.Stat(sp.StdoutPath())
	assert.True(t, os.IsNotExist(err))
}

func TestSpill_EmptyWriteCreatesNothing(t *testing.T) {
	s := newTestStore(t)
	sp := s.NewSpill()
	sp.WriteStdout(nil)
	sp.Close()
	assert.False(t, sp.StdoutRetained())
}

func TestSpill_URIs(t *testing.T) {
	s := newTestStore(t)
	sp := s.NewSpill()

	assert.True(t, strings.HasPrefix(sp.StdoutURI(), "mcp://tmp/exec-"))
	assert.True(t, strings.HasSuffix(sp.StdoutURI(), ".out"))
	assert.True(t, strings.HasSuffix(sp.StderrURI(), ".err"))

	path, err := s.PathForURI(sp.StdoutURI())
	require.NoError(t, err)
	assert.Equal(t, sp.StdoutPath(), path)
}

func TestSpill_Discard(t *testing.T) {
	s := newTestStore(t)
	sp := s.NewSpill()
	sp.WriteStdout([]byte("x"))
	sp.WriteStderr([]byte("y"))
	sp.Discard()

	_, err := os.Stat(sp.StdoutPath())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(sp.StderrPath())
	assert.True(t, os.IsNotExist(err))
}

func TestReadRange_Bounds(t *testing.T) {
	s := newTestStore(t)
	sp := s.NewSpill()
	sp.WriteStdout([]byte("0123456789"))
	sp.Close()
	path := sp.StdoutPath()

	// end <= start yields empty.
	data, err := s.ReadRange(path, 5, 5)
	require.NoError(t, err)
	assert.Empty(t, data)
	data, err = s.ReadRange(path, 7, 3)
	require.NoError(t, err)
	assert.Empty(t, data)

	// Range clamped to file size.
	data, err = s.ReadRange(path, 8, 100)
	require.NoError(t, err)
	assert.Equal(t, "89", string(data))

	// Start past EOF yields empty.
	data, err = s.ReadRange(path, 50, 60)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReadRange_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReadRange(filepath.Join(s.Dir(), "exec-nope.out"), 0, 10)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Size(filepath.Join(s.Dir(), "exec-nope.out"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPathForURI_Validation(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		uri  string
	}{
		{"wrong scheme", "file:///etc/passwd"},
		{"missing prefix", "exec-x.out"},
		{"empty basename", "mcp://tmp/"},
		{"path traversal", "mcp://tmp/../../etc/passwd"},
		{"nested path", "mcp://tmp/a/b.out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.PathForURI(tt.uri)
			assert.Error(t, err)
		})
	}
}

func TestSweep_RemovesOnlyStaleSpills(t *testing.T) {
	s := newTestStore(t)

	stale := filepath.Join(s.Dir(), "exec-old.out")
	fresh := filepath.Join(s.Dir(), "exec-new.out")
	other := filepath.Join(s.Dir(), "keep.txt")
	for _, p := range []string{stale, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	s.Sweep(24 * time.Hour)

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(other)
	assert.NoError(t, err)
}
