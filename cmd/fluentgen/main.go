// Command fluentgen generates fluent sentence-builder DSLs from annotated Go
// interfaces and structs.
//
// Typical use is a go:generate directive next to the declarations:
//
//	//go:generate go run github.com/calumari/fluentgen/cmd/fluentgen
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fluentgen: %v\n", err)
		os.Exit(1)
	}
}
