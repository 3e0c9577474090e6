package main

import (
	"github.com/joho/godotenv"
	"docqa/internal/cli"
)

func main() {
	// Best effort; API keys can also come from the environment directly.
	_ = godotenv.Load()

	cli.Execute()
}
