package sourcestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSourceText_NewFileBumpsRevision(t *testing.T) {
	s := New()
	require.Equal(t, uint64(0), s.CurrentRevision())

	changed := s.SetSourceText("a.vais", "fn main() {}")
	assert.True(t, changed)
	assert.Equal(t, uint64(1), s.CurrentRevision())

	text, ok := s.SourceText("a.vais")
	require.True(t, ok)
	assert.Equal(t, "fn main() {}", text)
}

func TestSetSourceText_ByteIdenticalContentIsNoOp(t *testing.T) {
	s := New()
	s.SetSourceText("a.vais", "fn main() {}")
	before := s.CurrentRevision()

	var notified bool
	s.Observe(func(path string) { notified = true })

	changed := s.SetSourceText("a.vais", "fn main() {}")
	assert.False(t, changed)
	assert.Equal(t, before, s.CurrentRevision())
	assert.False(t, notified, "byte-identical replace must not invalidate anything")
}

func TestSetSourceText_ChangedContentBumpsRevisionAndNotifies(t *testing.T) {
	s := New()
	s.SetSourceText("a.vais", "fn main() {}")
	before := s.CurrentRevision()

	var notifiedPath string
	s.Observe(func(path string) { notifiedPath = path })

	changed := s.SetSourceText("a.vais", "fn main() { 1 }")
	assert.True(t, changed)
	assert.Greater(t, s.CurrentRevision(), before)
	assert.Equal(t, "a.vais", notifiedPath)
}

func TestSourceHash_PresentOnlyWhenFileExists(t *testing.T) {
	s := New()
	_, ok := s.SourceHash("missing.vais")
	assert.False(t, ok)

	s.SetSourceText("a.vais", "content")
	h, ok := s.SourceHash("a.vais")
	require.True(t, ok)
	assert.Len(t, h, 32) // 16 bytes hex-encoded
}

func TestRemoveSource(t *testing.T) {
	s := New()
	assert.False(t, s.RemoveSource("missing.vais"))

	s.SetSourceText("a.vais", "content")
	assert.True(t, s.RemoveSource("a.vais"))
	_, ok := s.SourceText("a.vais")
	assert.False(t, ok)
}

func TestSourceFiles_SortedAndComplete(t *testing.T) {
	s := New()
	s.SetSourceText("z.vais", "1")
	s.SetSourceText("a.vais", "2")
	s.SetSourceText("m.vais", "3")

	assert.Equal(t, []string{"a.vais", "m.vais", "z.vais"}, s.SourceFiles())
}

func TestWatcher_PicksUpFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.vais")
	require.NoError(t, os.WriteFile(path, []byte("fn main() {}"), 0o644))

	s := New()
	w, err := NewWatcher(s, dir, ".vais")
	require.NoError(t, err)
	defer w.Stop()
	w.Start()

	require.NoError(t, os.WriteFile(path, []byte("fn main() { 1 }"), 0o644))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if text, ok := s.SourceText(path); ok && text == "fn main() { 1 }" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("watcher did not observe the file change within the deadline")
}
