package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/tangodb/internal/config"
	"github.com/agentic-research/tangodb/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSource_SkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yml"), []byte("class: Motor\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loop.yml"), []byte("a: &x\n  b: *x\n"), 0o644))

	cfg := config.Default()
	cfg.DBPath = dir
	logger, err := newLogger(io.Discard, "error")
	require.NoError(t, err)

	src, err := loadSource(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.True(t, src.Classes().Contains("motor"))
	require.Len(t, src.Problems(), 1)
	var fe *ingest.FileError
	require.True(t, errors.As(src.Problems()[0], &fe))
	assert.Equal(t, "/loop.yml", fe.Path)

	_, err = reloadSource(context.Background(), cfg, logger)
	assert.ErrorIs(t, err, ingest.ErrAliasExpansion, "a running database keeps its source")
}

func TestLoadSource_MissingDir(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "missing")
	logger, err := newLogger(io.Discard, "error")
	require.NoError(t, err)

	_, err = loadSource(context.Background(), cfg, logger)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
