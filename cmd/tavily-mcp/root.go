package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tavily-mcp/internal/infra/config"
)

const defaultConfigFile = "tavily-mcp.yaml"

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tavily-mcp",
		Short: "MCP tool server for web search and page fetch",
		Long: "tavily-mcp serves two tools over the Model Context Protocol: " +
			"simple_search (Tavily web search) and fetch (page text extraction).",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(opts.envFile)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("tavily-mcp %s (commit: %s)\n", version, commit))

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath(), "config file path")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded at startup; set variables win")

	cmd.AddCommand(
		newServeCmd(opts),
		newToolsCmd(opts),
		newCallCmd(opts),
		newDoctorCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// defaultConfigPath honours TAVILY_MCP_CONFIG before falling back to the
// file in the working directory.
func defaultConfigPath() string {
	if p := os.Getenv(config.EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	return defaultConfigFile
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tavily-mcp %s (commit: %s)\n", version, commit)
		},
	}
}
