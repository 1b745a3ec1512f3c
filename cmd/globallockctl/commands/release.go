package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var releaseCmd = &cobra.Command{
	Use:   "release <lease-id>",
	Short: "Release a held lease",
	Long: `Mark the journal record backing lease-id completed, freeing the
resource for the next local waiter or remote acquirer.

Examples:
  globallockctl release dGVuYW50LTEtMDAxfDhiMmQ5...`,
	Args: cobra.ExactArgs(1),
	RunE: runRelease,
}

func runRelease(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	gl, _, err := buildCoordinator(ctx)
	if err != nil {
		return err
	}
	defer gl.Close()

	if err := gl.Release(ctx, args[0]); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	cmd.Println("released")
	return nil
}
