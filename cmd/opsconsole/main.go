// Command opsconsole is the terminal front end for the spreadsheet-backed
// operations console: browse module records, capture new entries through the
// dynamic form, and bootstrap field configurations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
