// The main package for the pricesai executable.
package main

import (
	"github.com/LukSky123/Prices.ai/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
