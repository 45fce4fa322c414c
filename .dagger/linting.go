package main

import (
	"context"
	"fmt"

	"dagger/stylectl/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// lintOpts returns the common GolangcilintOpts used by both CheckLint and FixLint.
// It layers golangci-lint on top of goContainer() so the Go caches are
// already in place.
func (s *Stylectl) lintOpts() dagger.GolangcilintOpts {
	base := s.goContainer().
		WithExec([]string{
			"go",
			"install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	return dagger.GolangcilintOpts{
		BaseCtr: base,
		Config:  s.Source.File(".golangci.yml"),
	}
}

// CheckLint runs golangci-lint against the source code without applying fixes.
func (s *Stylectl) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(s.Source, s.lintOpts()).Check(ctx)
}

// FixLint runs golangci-lint against the source code with --fix, applying
// automatic fixes where possible, and returns the modified source directory.
func (s *Stylectl) FixLint(ctx context.Context) *dagger.Directory {
	return dag.Golangcilint(s.Source, s.lintOpts()).Lint()
}
