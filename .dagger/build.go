package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/stylectl/internal/dagger"
)

// Build and return directory of go binaries
func (s *Stylectl) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	gooses := []string{"linux", "darwin", "windows"}
	goarches := []string{"amd64", "arm64"}

	outputs := dag.Directory()
	golang := s.goContainer()

	for _, goos := range gooses {
		for _, goarch := range goarches {
			path := fmt.Sprintf("%s/%s/", goos, goarch)

			build := golang.
				WithEnvVariable("GOOS", goos).
				WithEnvVariable("GOARCH", goarch).
				WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/stylectl"})

			outputs = outputs.WithDirectory(path, build.Directory(path))
		}
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (s *Stylectl) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now().UTC().Format(time.RFC3339)

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/stylectl/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/stylectl/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/stylectl/pkg/utils.Buildtime=%s'", buildtime),
	}

	return s.Build(ctx, strings.Join(ldflags, " "))
}
