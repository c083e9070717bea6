package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaislang/vais/internal/config"
)

func TestNewDatabase_ReadsFileIntoStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.vais")
	require.NoError(t, os.WriteFile(path, []byte("fn main() -> i64 { 1 }"), 0o644))

	db, err := newDatabase(path, config.Default())
	require.NoError(t, err)

	text, ok := db.SourceText(path)
	assert.True(t, ok)
	assert.Equal(t, "fn main() -> i64 { 1 }", text)
}

func TestNewDatabase_MissingFileReturnsError(t *testing.T) {
	_, err := newDatabase(filepath.Join(t.TempDir(), "nope.vais"), config.Default())
	assert.Error(t, err)
}
