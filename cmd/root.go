package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

const rootLongDesc = `nim-proxy is an OpenAI-compatible proxy in front of the NVIDIA NIM API.

Chat completion requests are translated, forwarded upstream and relayed back,
either buffered or as a server-sent event stream.`

// Execute runs the CLI with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nim-proxy",
		Short:         "OpenAI-compatible NVIDIA NIM proxy",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "displays version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "nim-proxy %s\n", Version)
			return err
		},
	}
}
