package main

import (
	"os"

	stylectlcmder "github.com/papercomputeco/stylectl/cmd/stylectl"
)

func main() {
	cmd := stylectlcmder.NewStylectlCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
