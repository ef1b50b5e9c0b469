// Package main is the entry point for the siteatlas CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/jmylchreest/siteatlas/cmd/siteatlas/commands"
)

func main() {
	// SITEATLAS_* settings may come from a local .env file.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
