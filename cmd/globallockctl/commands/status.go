package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/osavoskin/globallock/internal/cli/output"
)

var (
	statusScope  string
	statusOutput string
)

var statusCmd = &cobra.Command{
	Use:   "status <resource>",
	Short: "Show whether a resource is currently held",
	Long: `Check the journal for an active record on resource within scope,
without attempting to acquire it.

Examples:
  globallockctl status tenant-1/export
  globallockctl status tenant-1/export -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusScope, "scope", "", "lock scope (default: \"default\")")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "output format (table|json|yaml)")
}

type statusResult struct {
	Resource  string `json:"resource" yaml:"resource"`
	Scope     string `json:"scope" yaml:"scope"`
	Available bool   `json:"available" yaml:"available"`
}

func (r statusResult) Headers() []string { return []string{"FIELD", "VALUE"} }
func (r statusResult) Rows() [][]string {
	state := "held"
	if r.Available {
		state = "free"
	}
	return [][]string{
		{"Resource", r.Resource},
		{"Scope", r.Scope},
		{"State", state},
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	ctx := context.Background()
	gl, _, err := buildCoordinator(ctx)
	if err != nil {
		return err
	}
	defer gl.Close()

	scope := statusScope
	if scope == "" {
		scope = "default"
	}

	available, err := gl.IsAvailable(ctx, args[0], scope)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	return output.Print(os.Stdout, format, statusResult{
		Resource:  args[0],
		Scope:     scope,
		Available: available,
	})
}
