package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sha1n/palpatine/internal/app"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "palpatine"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ExecuteContext(ctx, Version, Build, ProgramName, args[1:], app.DefaultRunParams()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", ProgramName, err)
		stop()
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	return ExecuteContext(context.Background(), version, build, programName, args, app.DefaultRunParams())
}

// ExecuteContext builds the command tree and runs it with params
func ExecuteContext(ctx context.Context, version, build, programName string, args []string, params app.RunParams) error {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Incremental TODO indexer",
		Long:          "Indexes TODO markers in a git working tree, attributes them with blame and caches the result.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	rootCmd.SetOut(writerOr(params.Stdout, os.Stdout))
	rootCmd.SetErr(writerOr(params.Stderr, os.Stderr))

	app.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "index [PATH]",
			Short: "Update the cached index",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.RunIndex(cmd.Context(), params, cmd.Flags(), pathArg(args, 0))
			},
		},
		&cobra.Command{
			Use:   "report [PATH]",
			Short: "Print the cached TODOs",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.RunReport(cmd.Context(), params, cmd.Flags(), pathArg(args, 0))
			},
		},
		&cobra.Command{
			Use:   "clean [PATH]",
			Short: "Delete the cached index",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.RunClean(cmd.Context(), params, cmd.Flags(), pathArg(args, 0))
			},
		},
		newSearchCommand(params),
		newServeCommand(params, version),
		&cobra.Command{
			Use:   "watch [PATH]",
			Short: "Re-index whenever files change",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.RunWatch(cmd.Context(), params, cmd.Flags(), pathArg(args, 0))
			},
		},
	)

	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}

func newSearchCommand(params app.RunParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search QUERY [PATH]",
		Short: "Search the cached TODOs",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunSearch(cmd.Context(), params, cmd.Flags(), args[0], pathArg(args, 1))
		},
	}
	app.RegisterSearchFlags(cmd.Flags())
	return cmd
}

func newServeCommand(params app.RunParams, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [PATH]",
		Short: "Serve the cached TODOs over MCP on stdio",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunServe(cmd.Context(), params, cmd.Flags(), pathArg(args, 0), version)
		},
	}
	app.RegisterServeFlags(cmd.Flags())
	return cmd
}

// pathArg returns args[i], or "" (the working directory) when absent
func pathArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}
