package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Flags mirroring Compilation's configurable fields (SPEC_FULL.md's
// Configuration section): every one of these is plumbed straight into a
// *compilation.Compilation before analyze_entry/lower_entry_points run, the
// same way the teacher toggles its own modes via persistent flags on
// rootCmd rather than a config file.
var (
	verbose              bool
	noInline             bool
	noExceptions         bool
	maxAggregateElements int
	callByNameDepthLimit int
)

var rootCmd = &cobra.Command{
	Use:   "claycore",
	Short: "Semantic middle-end and lowering driver for a Clay-like systems language",
	Long: `claycore analyzes and specializes a resolved, desugared module (hir.Module,
produced by an external parser/desugarer) and lowers every reachable entry
point to backend IR under a fixed, sentinel-pointer-return calling
convention.

claycore does not parse source text itself — it consumes the AST shape
internal/hir already fixes. See the "build" command for a pipeline smoke
test that exercises the whole analyze -> specialize -> lower -> codegen
path end to end against a small embedded module.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print analyze/lower progress to stderr")
	rootCmd.PersistentFlags().BoolVar(&noInline, "no-inline", false, "disable inline-callable expansion (set_inline_enabled(false))")
	rootCmd.PersistentFlags().BoolVar(&noExceptions, "no-exceptions", false, "disable exception-sentinel checks after every call (set_exceptions_enabled(false))")
	rootCmd.PersistentFlags().IntVar(&maxAggregateElements, "max-aggregate-elements", 0, "isPrimitiveAggregateTooLarge threshold (0 keeps the default of 8)")
	rootCmd.PersistentFlags().IntVar(&callByNameDepthLimit, "call-by-name-depth", 0, "call-by-name recursion bound (0 keeps the default of 100)")
}
