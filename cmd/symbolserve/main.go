// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the symbol completion server and its try [DBG] command.

Note: This is a BETA release. APIs and functionality may rapidly change.

SymbolServe indexes the words of open editor buffers, classifies each
occurrence by the scope it appears in, and answers prefix completions ranked
by fuzzy match quality, symbol type and distance from the cursor. It runs as a
MessagePack IPC server for editors, or as an interactive prompt over a single
file for testing rankings.

# Usage

Start the server with default settings:

	symbolserve

Use a custom config and enable debug logging to stderr:

	symbolserve --config ~/dotfiles/symbolserve.toml -d

Tokenize with tree-sitter grammars instead of the built-in line tokenizer:

	symbolserve --tree-sitter

Try completions against a file interactively:

	symbolserve try main.go --limit 10

# Configuration

Runtime configuration is read from a TOML (or YAML) file. Symbol types map
scope selectors to a name and a priority, and may carry static suggestions:

	[server]
	max_limit = 64
	min_prefix = 1
	engine = "symbols"

	[matching]
	strict = false
	locality_bonus = true

	[[types]]
	name = "function"
	selector = ".function.name"
	priority = 3

The config file is created with defaults if it doesn't exist, and the server
reloads it whenever it changes on disk.

# Engines

symbols is the default: a scope-aware index kept current as buffers change.
subsequence scans buffer lines around the cursor on each request and needs
no index. words completes from a plain word list of all open buffers.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bastiangx/symbolserve/internal/utils"
	"github.com/bastiangx/symbolserve/pkg/config"
	"github.com/bastiangx/symbolserve/pkg/server"
)

const (
	Version = "0.1.0-beta"
	AppName = "symbolserve"
	gh      = "https://github.com/bastiangx/symbolserve"
)

var (
	configPath  string
	debugMode   bool
	treeSitter  bool
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "Serves scope-aware symbol completions over msgpack IPC",
	Long: `SymbolServe reads msgpack requests from stdin and writes one response per
request to stdout. Logs go to stderr.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugMode {
			log.SetLevel(log.DebugLevel)
			log.SetReportTimestamp(true)
		} else {
			log.SetLevel(log.WarnLevel)
		}
	},
	RunE: runServer,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (TOML or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Toggle debug mode")
	rootCmd.PersistentFlags().BoolVar(&treeSitter, "tree-sitter", false, "Tokenize with tree-sitter grammars where available")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show current version")
	rootCmd.AddCommand(tryCmd, configCmd)
}

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main only manages the flow; the work happens in the commands.
func main() {
	sigHandler()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadWatcher resolves the config file and wraps it in a reloading watcher.
func loadWatcher() (*config.Watcher, error) {
	cfg, path, err := config.LoadConfigWithPriority(configPath)
	if err != nil {
		return nil, err
	}
	log.Debugf("Using config file: (%s)", path)
	return config.NewWatcher(path, cfg)
}

func runServer(cmd *cobra.Command, args []string) error {
	if showVersion {
		printVersion()
		return nil
	}

	if debugMode {
		if pr, err := utils.NewPathResolver(); err == nil {
			for k, v := range pr.GetRuntimeInfo() {
				log.Debug("runtime", k, v)
			}
		}
	}

	watcher, err := loadWatcher()
	if err != nil {
		log.Errorf("Failed to load config: %v", err)
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := watcher.Start(ctx); err != nil {
		log.Warnf("Config hot reload disabled: %v", err)
	}
	defer watcher.Close()

	srv := server.NewServer(watcher, os.Stdin, os.Stdout, server.Options{TreeSitter: treeSitter})
	showStartupInfo(watcher)

	if err := srv.Start(ctx); err != nil {
		log.Errorf("Server stopped: %v", err)
		return err
	}
	return nil
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ SymbolServe ] Serves scope-aware symbol completions!")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(w *config.Watcher) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	cfg := w.Config()

	fmt.Fprintln(os.Stderr, "=============")
	fmt.Fprintln(os.Stderr, " SymbolServe ")
	fmt.Fprintln(os.Stderr, "=============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("config: ( %s )", config.GetActiveConfigPath(w.Path()))
	log.Infof("engine: %s, types: %d, workers: %d", cfg.Server.Engine, len(w.Types().Types), runtime.GOMAXPROCS(0))
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "=============")

	log.SetLevel(currentLevel)
}
