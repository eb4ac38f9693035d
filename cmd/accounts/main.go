package main

import (
	"os"

	"github.com/aussiebroadwan/accounts/internal/accounts/app"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = app.BuildVersion

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
