// Package cli implements the gstbooks command line.
package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the gstbooks command tree.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "gstbooks",
		Short:         "GST invoicing and double-entry posting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSeedAccountsCommand(),
		newFYCommand(),
		newJobsCommand(),
	)
	return root
}
