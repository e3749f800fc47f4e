package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MekdelawitGebre/customer-experience-fintech/internal/mcp"
)

func mcpCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

AI assistants can read the review summary and list stored reviews through
it. Logs go to stderr; stdout carries the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), envFile)
		},
	}

	envFileFlag(cmd, &envFile)

	return cmd
}

func runMCP(ctx context.Context, envFile string) error {
	a, err := newAppLogging(envFile, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, closeCache, err := a.mcpServer(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCache(); err != nil {
			a.logger.Error("failed to close cache", slog.Any("error", err))
		}
	}()

	a.logger.Info("starting MCP server", slog.String("version", version))
	return srv.ServeStdio()
}

// mcpServer builds the stdio MCP server. Like serve it starts with the
// database down and answers from the fallback snapshot.
func (a *app) mcpServer(ctx context.Context) (*mcp.Server, func() error, error) {
	store, _, err := a.readStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	datasetCache, closeCache, err := a.datasetCache(ctx)
	if err != nil {
		return nil, nil, err
	}
	dashboard, reviews := a.readers(store, datasetCache)
	return mcp.NewServer(dashboard, reviews, version, a.logger), closeCache, nil
}
