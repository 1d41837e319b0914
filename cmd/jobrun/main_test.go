package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/gojobs/pkg/source"
	"github.com/jzx17/gojobs/pkg/types"
)

func job(src, dst, name string) types.WorkItem[source.FileJob] {
	return types.WorkItem[source.FileJob]{
		ID:   name,
		Name: name,
		Payload: source.FileJob{
			Source: filepath.Join(src, name),
			Target: filepath.Join(dst, name),
		},
	}
}

func TestCopyFile(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.xpm"), []byte("pixels"), 0o640))

	detail, err := copyFile(context.Background(), job(src, dst, "a.xpm"))
	require.NoError(t, err)
	assert.Equal(t, "copied", detail)

	data, err := os.ReadFile(filepath.Join(dst, "a.xpm"))
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	// same size on the second pass
	_, err = copyFile(context.Background(), job(src, dst, "a.xpm"))
	assert.ErrorIs(t, err, types.ErrSkip)

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files left behind")
}

func TestCopyFile_MissingSource(t *testing.T) {
	_, err := copyFile(context.Background(), job(t.TempDir(), t.TempDir(), "gone.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCopyFile_CanceledContext(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.png"), []byte("pixels"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	detail, err := copyFile(ctx, job(src, dst, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "copied", detail)
	assert.FileExists(t, filepath.Join(dst, "a.png"))
}

func TestRun(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	for _, name := range []string{"a.png", "b.png", "c.xpm"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(name), 0o644))
	}

	require.NoError(t, run([]string{"-q", "-c", "2", src, dst}))
	for _, name := range []string{"a.png", "b.png", "c.xpm"} {
		assert.FileExists(t, filepath.Join(dst, name))
	}

	// everything is already present on the second run
	require.NoError(t, run([]string{"-q", src, dst}))
}

func TestRun_Usage(t *testing.T) {
	assert.Error(t, run([]string{"-q", t.TempDir()}))
	assert.Error(t, run([]string{"-c", "-3", t.TempDir(), t.TempDir()}))
}

func TestNewReporter_Quiet(t *testing.T) {
	var out, logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	r := newReporter(true, &out, logger)
	r.Report("copied a.png", false)
	r.Report("cannot read b.png", true)

	assert.Empty(t, out.String())
	assert.NotContains(t, logs.String(), "copied a.png")
	assert.Contains(t, logs.String(), "cannot read b.png")
	assert.Contains(t, logs.String(), "component=coordinator")
}

func TestNewReporter_Progress(t *testing.T) {
	var out, logs bytes.Buffer
	r := newReporter(false, &out, slog.New(slog.NewTextHandler(&logs, nil)))

	r.Report("copied a.png", false)
	assert.Contains(t, out.String(), "copied a.png")
	assert.Empty(t, logs.String())
}
