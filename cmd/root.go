package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/racearchive/internal/adapters/ledger"
	"github.com/okian/racearchive/internal/adapters/repository"
	service "github.com/okian/racearchive/internal/app"
	"github.com/okian/racearchive/internal/config"
	"github.com/okian/racearchive/internal/domain/minting"
	"github.com/okian/racearchive/internal/domain/resolver"
	"github.com/okian/racearchive/internal/domain/similarity"
	"github.com/okian/racearchive/pkg/logger"
	"github.com/okian/racearchive/pkg/metrics"
)

// commandContext carries shared state between the root command and its
// subcommands. Config and service are built on first use.
type commandContext struct {
	configPath string
	in         io.Reader
	out        io.Writer

	cfg *config.Config
	svc *service.Service
}

func newRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	cc := &commandContext{in: in, out: out}

	rootCmd := &cobra.Command{
		Use:           "racearchive",
		Short:         "Resolve runner identities across yearly race results",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cc.service(cmd.Context())
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVarP(&cc.configPath, "config", "c", "", "Configuration file path (defaults to $RACEARCHIVE_CONFIG)")

	rootCmd.AddCommand(newMatchCommand(cc))
	rootCmd.AddCommand(newReviewCommand(cc))
	rootCmd.AddCommand(newPendingCommand(cc))
	rootCmd.AddCommand(newRecomputeCommand(cc))
	rootCmd.AddCommand(newRunnerCommand(cc))

	return rootCmd
}

// service loads configuration and wires the service once.
func (cc *commandContext) service(ctx context.Context) (*service.Service, error) {
	if cc.svc != nil {
		return cc.svc, nil
	}
	cfg, err := config.Load(ctx, cc.configPath)
	if err != nil {
		return nil, err
	}

	log := logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.SetEnabled(cfg.MetricsEnabled)

	cc.cfg = cfg
	cc.svc = newService(cfg, log)
	return cc.svc, nil
}

// newService wires the service from configuration.
func newService(cfg *config.Config, log logger.Logger) *service.Service {
	minter := minting.New(minting.WithClubTokenLength(cfg.ClubTokenLength))
	res := resolver.New(
		resolver.WithThresholds(cfg.AutoAssignThreshold, cfg.WarningThreshold),
		resolver.WithDuplicateThreshold(cfg.DuplicateThreshold),
		resolver.WithRecentWindow(cfg.RecentAppearances, cfg.RecentYears),
		resolver.WithScorer(similarity.New(similarity.WithMaxTimeVariance(cfg.MaxTimeVariance))),
		resolver.WithDuplicateScorer(similarity.New(
			similarity.WithFirstNameLength(1),
			similarity.WithMaxTimeVariance(cfg.MaxTimeVariance),
		)),
		resolver.WithMinter(minter),
		resolver.WithLogger(log.Named("resolver")),
	)
	store := repository.NewFileStore(cfg.DataDir,
		repository.WithResultsDir(cfg.ResultsDir),
		repository.WithWarningsDir(cfg.WarningsDir),
		repository.WithRunnerDBPath(cfg.RunnerDBPath),
		repository.WithNameChangesPath(cfg.NameChangesPath),
	)
	return service.New(
		service.WithStore(store),
		service.WithLedger(ledger.New(cfg.LedgerDir)),
		service.WithResolver(res),
		service.WithMinter(minter),
		service.WithMetricsTextfile(cfg.MetricsTextfile),
		service.WithLogger(log.Named("service")),
	)
}
