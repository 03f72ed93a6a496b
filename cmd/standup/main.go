// Command standup generates standup reports from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errFmt("Error:"), err)
		os.Exit(1)
	}
}
