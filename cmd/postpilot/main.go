package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/postpilothq/postpilot/internal/cli"
)

func main() {
	_ = godotenv.Load()
	if err := cli.NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
