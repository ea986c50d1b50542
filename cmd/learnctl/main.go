// learnctl - operator CLI for learnpath content and progress
package main

import (
	"os"

	"github.com/ashureev/learnpath/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
