package main

import (
	"os"

	"github.com/veselov/interview-coach/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
