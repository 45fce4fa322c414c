// Stylectl CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/stylectl/internal/dagger"
)

// Stylectl is the main module for the stylectl CI/CD pipeline
type Stylectl struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Stylectl CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *Stylectl {
	return &Stylectl{
		Source: source,
	}
}

// goContainer returns an Alpine Go container with the project source mounted
// and module caches attached. stylectl is pure Go, so CGO stays off.
func (s *Stylectl) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-alpine").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", s.Source)
}

// Test runs the unit tests with the ginkgo runner
func (s *Stylectl) Test(ctx context.Context) (string, error) {
	return s.goContainer().
		WithExec([]string{"go", "run", "github.com/onsi/ginkgo/v2/ginkgo", "-r", "--randomize-all", "--fail-on-pending"}).
		Stdout(ctx)
}
