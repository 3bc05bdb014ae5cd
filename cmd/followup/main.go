// Command followup runs the incident follow-up API and its maintenance tasks.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			slog.Error("failed to load .env file", "error", err)
			os.Exit(1)
		}
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
