package main

import (
	"os"

	"github.com/joho/godotenv"
)

// dotenvErr is reported once the logger exists.
var dotenvErr error

func main() {
	loadLocalEnv()

	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func loadLocalEnv() {
	dotenvErr = godotenv.Load()
}
