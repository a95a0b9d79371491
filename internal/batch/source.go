package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
)

// IsGitURL reports whether src names a remote repository rather than a
// local directory.
func IsGitURL(src string) bool {
	switch {
	case strings.HasPrefix(src, "https://"), strings.HasPrefix(src, "http://"):
		return true
	case strings.HasPrefix(src, "git@"), strings.HasPrefix(src, "ssh://"):
		return true
	}
	return strings.HasSuffix(src, ".git")
}

// Source is a directory ready for conversion.
type Source struct {
	Dir string

	cleanup func()
}

// Close removes the temporary checkout of a cloned source.
func (s *Source) Close() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// Cloned reports whether the source is a temporary checkout.
func (s *Source) Cloned() bool {
	return s.cleanup != nil
}

// Resolve returns the directory to convert for src. Repository URLs are
// shallow-cloned into a temporary directory that Close removes.
func Resolve(ctx context.Context, src string, logger *slog.Logger) (*Source, error) {
	if !IsGitURL(src) {
		return &Source{Dir: src}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	tempDir, err := os.MkdirTemp("", "vbapy-clone-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	logger.Info("cloning repository", "url", src, "dir", tempDir)
	_, err = git.PlainCloneContext(ctx, tempDir, false, &git.CloneOptions{
		URL:          src,
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to clone repository %s: %w", src, err)
	}

	return &Source{
		Dir:     tempDir,
		cleanup: func() { os.RemoveAll(tempDir) },
	}, nil
}
