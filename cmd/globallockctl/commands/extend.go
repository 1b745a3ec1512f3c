package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var extendPeriod time.Duration

var extendCmd = &cobra.Command{
	Use:   "extend <lease-id>",
	Short: "Prolong a held lease",
	Long: `Extend the expiry of the journal record backing lease-id by --period.
Fails silently (reports not-extended) if the record is no longer active.

Examples:
  globallockctl extend dGVuYW50LTEtMDAxfDhiMmQ5... --period 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runExtend,
}

func init() {
	extendCmd.Flags().DurationVar(&extendPeriod, "period", 0, "extension period (default: configured lease_default_expiration_seconds)")
}

func runExtend(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	gl, _, err := buildCoordinator(ctx)
	if err != nil {
		return err
	}
	defer gl.Close()

	extended, err := gl.TryExtend(ctx, args[0], extendPeriod)
	if err != nil {
		return fmt.Errorf("extend: %w", err)
	}
	if extended {
		cmd.Println("extended")
		return nil
	}
	cmd.Println("not extended: record is no longer active")
	return nil
}
