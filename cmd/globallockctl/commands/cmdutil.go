package commands

import (
	"context"
	"fmt"

	"github.com/osavoskin/globallock/internal/logger"
	"github.com/osavoskin/globallock/pkg/bloblease/azblob"
	"github.com/osavoskin/globallock/pkg/config"
	"github.com/osavoskin/globallock/pkg/globallock"
	"github.com/osavoskin/globallock/pkg/journal/aztable"
)

// buildCoordinator loads configuration from the --config flag (or its
// default search path), wires the Azure-backed journal and blob-lease
// collaborators, and returns a ready GlobalLock. Metrics are left disabled
// (nil registerer) since one-shot CLI invocations gain nothing from
// per-process counters.
func buildCoordinator(ctx context.Context) (*globallock.GlobalLock, *config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	journalRepo, err := aztable.NewFromConnectionString(ctx, cfg.StorageConnectionString, cfg.TableName, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connect journal table: %w", err)
	}

	gate, err := azblob.NewFromConnectionString(cfg.StorageConnectionString, cfg.ContainerName)
	if err != nil {
		return nil, nil, fmt.Errorf("connect blob-lease container: %w", err)
	}

	glCfg := globallock.Config{
		DefaultTTL:     secondsToDuration(cfg.LeaseDefaultExpirationSeconds),
		TickerInterval: secondsToDuration(cfg.LeaseAcquirementIntervalSeconds),
	}

	return globallock.New(journalRepo, gate, glCfg, nil), cfg, nil
}
