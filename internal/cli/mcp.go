package cli

import (
	"github.com/claude/wodocr/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func (a *app) mcpCommand() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the WOD tools over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, store, cleanup, err := a.provider(cmd.Context(), offline, 0, false)
			defer cleanup()
			if err != nil {
				return err
			}
			a.logger().Info("mcp stdio server starting", "movements", store.Len())
			return server.ServeStdio(mcp.New(p, store, a.version, a.logger()))
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the cached catalog without contacting the source")
	return cmd
}
