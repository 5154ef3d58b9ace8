package main

import (
	"os"

	"github.com/abhisek/lessonloop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
