package root

import (
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/agents"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/config"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/server"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/services"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/session"
)

type serveFlags struct {
	configPath string
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestrator HTTP server",
		Long:  "Start the HTTP server exposing sessions, transcripts and the realtime websocket endpoint",
		Args:  cobra.NoArgs,
		RunE:  flags.run,
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "chatagent.yaml", "Path to the configuration file")

	return cmd
}

func (f *serveFlags) run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	deps, bootstrap, history, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer history.Close()

	sm := server.NewManager(server.ManagerConfig{
		Team:      agents.NewTeam(cfg.TenantID, deps),
		Store:     store,
		History:   history,
		Bootstrap: bootstrap,
		TenantID:  cfg.TenantID,
		OrgID:     cfg.OrgID,
		RootAgent: agents.Discovery,
	})

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Listen, err)
	}
	slog.Info("Listening", "addr", ln.Addr().String(), "tenant_id", cfg.TenantID)

	s := server.New(sm)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.Serve(ctx, ln)
	})
	group.Go(func() error {
		<-ctx.Done()
		_ = ln.Close()
		return nil
	})

	return group.Wait()
}

func newStore(cfg *config.Config) (session.Store, error) {
	if cfg.Database == "" {
		return session.NewInMemoryStore(), nil
	}
	store, err := session.NewSQLiteStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}
	return store, nil
}

func newServices(cfg *config.Config) (agents.Deps, services.Bootstrap, services.HistorySink, error) {
	var deps agents.Deps

	if cfg.Services.Catalog == "" || cfg.Services.Verification == "" {
		return deps, nil, nil, fmt.Errorf("config: catalog and verification endpoints are required")
	}

	catalog, err := services.NewCatalog(cfg.Services.Catalog)
	if err != nil {
		return deps, nil, nil, fmt.Errorf("creating catalog client: %w", err)
	}
	deps.Catalog = services.NewCachedCatalog(catalog, cfg.CatalogTTL)

	deps.Verification, err = services.NewVerification(cfg.Services.Verification)
	if err != nil {
		return deps, nil, nil, fmt.Errorf("creating verification client: %w", err)
	}

	var bootstrap services.Bootstrap
	if cfg.Services.Bootstrap != "" {
		bootstrap, err = services.NewBootstrap(cfg.Services.Bootstrap)
		if err != nil {
			return deps, nil, nil, fmt.Errorf("creating bootstrap client: %w", err)
		}
	}

	var history services.HistorySink = services.NopHistorySink{}
	if cfg.Services.History != "" {
		history, err = services.NewHistorySink(cfg.Services.History, cfg.HistoryWindow)
		if err != nil {
			return deps, nil, nil, fmt.Errorf("creating history sink: %w", err)
		}
	}

	return deps, bootstrap, history, nil
}
