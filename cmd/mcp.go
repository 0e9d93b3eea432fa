// mcp.go defines "dmsd mcp" for MCP server operation over stdio.
//
// Like the teacher's "serve" command, this manages its own service
// lifecycle instead of using the shared lazily-opened Service from
// flags.go: the MCP server blocks indefinitely handling requests rather
// than running one command and exiting.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmadocs/dmsd/internal/config"
	"github.com/pharmadocs/dmsd/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server over stdio for LLM-assisted SOP review",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return mcp.Serve(cfg)
	},
}

func init() {
	noServiceCommands["mcp"] = true
	rootCmd.AddCommand(mcpCmd)
}
