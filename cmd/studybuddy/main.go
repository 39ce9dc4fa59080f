// Command studybuddy is the operator CLI. It runs the same services as the
// server against the configured store.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(openApp).Execute(); err != nil {
		os.Exit(1)
	}
}
