package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Printf("chatagent version %s\n", version.Version)
			fmt.Printf("Commit: %s\n", version.Commit)
		},
	}
}
