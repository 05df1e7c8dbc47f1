package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fentz26/nextask/internal/audit"
	"github.com/fentz26/nextask/internal/controlplane"
	"github.com/fentz26/nextask/internal/logger"
	"github.com/fentz26/nextask/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve nextask to MCP clients",
	Long:  `Exposes task selection as Model Context Protocol (MCP) tools over stdio.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Runs a line-delimited JSON-RPC MCP server on stdin/stdout. The server opens the
task database directly, so the daemon does not need to be running. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

var mcpToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the MCP tools nextask provides",
	Args:  cobra.NoArgs,
	RunE:  runMCPTools,
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd, mcpToolsCmd)
	mcpServeCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (default from config)")
}

func runMCPServe(cmd *cobra.Command, args []string) error {
	log := logger.L()

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	service := controlplane.NewService(s, audit.NewPDRWriter(s), log, cfg.DefaultTag)
	reg := mcp.NewRegistry()
	if err := mcp.RegisterTaskTools(reg, service); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithField("tools", reg.Count()).Info("MCP server listening on stdio")
	server := mcp.NewServer(reg, log, version)

	// Serve blocks on stdin, so a signal has to be observed separately.
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != context.Canceled {
			return err
		}
		log.Debug("stdin closed")
	case <-ctx.Done():
		log.Info("MCP server stopped")
	}
	return nil
}

func runMCPTools(cmd *cobra.Command, args []string) error {
	reg := mcp.NewRegistry()
	if err := mcp.RegisterTaskTools(reg, nil); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tARGUMENTS\tDESCRIPTION")
	for _, t := range reg.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, strings.Join(toolArgs(t), ", "), t.Description)
	}
	return w.Flush()
}

func toolArgs(t mcp.Tool) []string {
	props, _ := t.InputSchema["properties"].(map[string]interface{})
	names := make([]string, 0, len(props))
	for _, name := range []string{"tag", "skip"} {
		if _, ok := props[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
