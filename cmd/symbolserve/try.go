package main

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bastiangx/symbolserve/internal/cli"
	"github.com/bastiangx/symbolserve/pkg/server"
)

var tryLimit int

// try is mainly used for testing and dbg purposes.
// Ranking or tokenizer changes should be checked here first.
var tryCmd = &cobra.Command{
	Use:   "try <file>",
	Short: "Complete prefixes against a file interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log.SetReportTimestamp(false)
		watcher, err := loadWatcher()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		// The try session drives Handle directly, the msgpack stream is unused.
		srv := server.NewServer(watcher, nil, io.Discard, server.Options{TreeSitter: treeSitter})
		handler, err := cli.NewInputHandler(ctx, srv, args[0], os.Stdin, os.Stdout, tryLimit)
		if err != nil {
			log.Errorf("Failed to open %s: %v", args[0], err)
			return err
		}
		log.Debug("Input info:", "file", args[0], "limit", tryLimit, "treeSitter", treeSitter)
		return handler.Start(ctx)
	},
}

func init() {
	tryCmd.Flags().IntVarP(&tryLimit, "limit", "l", 10, "Number of suggestions to return")
}
