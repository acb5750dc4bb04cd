// Command simulation drives the interview engine from a terminal: an
// interactive or scripted interview, extraction of a saved transcript, and a
// tail of the events the REST service forwards to NATS.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already prints; just exit non-zero
		os.Exit(1)
	}
}
