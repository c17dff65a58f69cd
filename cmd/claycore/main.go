// Command claycore drives the semantic middle-end and lowering pipeline
// over a hir.Module supplied by an external parser/desugarer front end
// (spec.md §2's explicit scope boundary). See cmd/claycore/cmd for the
// actual Cobra command tree.
package main

import (
	"fmt"
	"os"

	"github.com/clay-lang/claycore/cmd/claycore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
