package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goran-ethernal/GovIndexor/internal/common"
	"github.com/goran-ethernal/GovIndexor/internal/config"
	"github.com/goran-ethernal/GovIndexor/internal/downloader"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/internal/metrics"
	"github.com/goran-ethernal/GovIndexor/internal/rpc"
	"github.com/goran-ethernal/GovIndexor/pkg/api"
	"github.com/goran-ethernal/GovIndexor/pkg/indexer"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	// Register the governance indexer type.
	_ "github.com/goran-ethernal/GovIndexor/internal/govindexer"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║            GovIndexor v%s              ║
║      DAO Governance Ledger Indexer        ║
╚═══════════════════════════════════════════╝
`
	stopTimeout = 10 * time.Second
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "govindexor",
		Short: "GovIndexor - DAO governance ledger indexer",
		Long: `GovIndexor follows the token, governor and staking contracts of a DAO and
derives holders, delegates, proposals, votes and staking positions from their events.`,
		Version:      version,
		SilenceUsage: true,
		RunE:         runIndexer,
	}

	root.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	root.AddCommand(newListCmd(), newSchemaCmd(), newReplayCmd())

	return root
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available indexer types",
		Long:  `List all registered indexer types that can be used in the configuration file.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available indexer types:")
			types := indexer.ListRegistered()
			if len(types) == 0 {
				fmt.Fprintln(out, "  (no indexers registered)")
				return
			}
			for _, t := range types {
				fmt.Fprintf(out, "  - %s\n", t)
			}
		},
	}
}

func runIndexer(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), banner, version)

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewComponentLoggerFromConfig(common.ComponentDownloader, cfg.Logging)
	logger.SetDefaultLogger(log)

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, log)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := metricsServer.Stop(stopCtx); err != nil {
				log.Warnf("failed to stop metrics server: %v", err)
			}
		}()
	}

	log.Info("connecting to Ethereum node...")
	ethClient, err := rpc.NewClient(ctx, cfg.Downloader.RPCURL, cfg.Downloader.Retry,
		logger.NewComponentLoggerFromConfig(common.ComponentLogFetcher, cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	log.Infof("connected to Ethereum node: %s", cfg.Downloader.RPCURL)

	syncManager, err := downloader.NewSyncManager(cfg.Downloader.DB,
		logger.NewComponentLoggerFromConfig(common.ComponentSyncManager, cfg.Logging))
	if err != nil {
		ethClient.Close()
		return fmt.Errorf("failed to create sync manager: %w", err)
	}

	dl, err := downloader.New(cfg.Downloader, ethClient, syncManager,
		logger.NewComponentLoggerFromConfig(common.ComponentDownloader, cfg.Logging))
	if err != nil {
		ethClient.Close()
		return errors.Join(fmt.Errorf("failed to create downloader: %w", err), syncManager.Close())
	}
	defer func() {
		if err := dl.Close(); err != nil {
			log.Warnf("failed to close downloader: %v", err)
		}
	}()

	if len(cfg.Indexers) == 0 {
		log.Warn("no indexers configured, exiting")
		return nil
	}

	log.Infof("registering %d indexer(s)...", len(cfg.Indexers))
	for _, idxCfg := range cfg.Indexers {
		idx, err := indexer.Create(idxCfg.Type, idxCfg,
			logger.NewComponentLoggerFromConfig(common.ComponentLedger, cfg.Logging))
		if err != nil {
			return err
		}
		defer func() {
			if err := idx.Close(); err != nil {
				log.Warnf("failed to close indexer %s: %v", idx.Name(), err)
			}
		}()

		dl.RegisterIndexer(idx)
		log.Infof("registered indexer %s (type: %s, start block: %d)", idx.Name(), idx.Type(), idx.StartBlock())
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.API != nil && cfg.API.Enabled {
		apiServer := api.NewServer(cfg.API, dl.Coordinator(),
			logger.NewComponentLoggerFromConfig(common.ComponentAPI, cfg.Logging))
		g.Go(func() error {
			return apiServer.Start(ctx)
		})
	}

	g.Go(func() error {
		if err := dl.Download(ctx); err != nil {
			return fmt.Errorf("downloader failed: %w", err)
		}
		return nil
	})

	log.Info("GovIndexor started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("GovIndexor stopped")
	return nil
}
