package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jzx17/gojobs/pkg/source"
	"github.com/jzx17/gojobs/pkg/types"
)

// copyFile copies one file into the target directory. A target that already
// exists with the same size is skipped. Workers run detached from the run's
// context, so a started copy always completes.
func copyFile(_ context.Context, item types.WorkItem[source.FileJob]) (string, error) {
	job := item.Payload

	in, err := os.Open(job.Source)
	if err != nil {
		return "", err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", err
	}
	if existing, err := os.Stat(job.Target); err == nil && existing.Size() == info.Size() {
		return "", fmt.Errorf("%s already present: %w", job.Target, types.ErrSkip)
	}

	tmp, err := os.CreateTemp(filepath.Dir(job.Target), ".jobrun-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return "", fmt.Errorf("copy %s: %w", job.Source, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), job.Target); err != nil {
		return "", err
	}
	return "copied", nil
}
