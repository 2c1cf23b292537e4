package main

import (
	"os"

	"github.com/greeeen013/QuizApp/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
