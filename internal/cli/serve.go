package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/multinet/pkg/api"
	"github.com/matzehuels/multinet/pkg/config"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/observability"
	"github.com/matzehuels/multinet/pkg/store"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr         string
		storeBackend string
		storePath    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the multinet HTTP API.

Storage and caching come from the config file; flags override it:

  multinet serve --addr :9000 --store sqlite --db ./multinet.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if storeBackend != "" {
				cfg.Store.Backend = storeBackend
			}
			if storePath != "" {
				cfg.Store.Path = storePath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+config.DefaultAddr+")")
	cmd.Flags().StringVar(&storeBackend, "store", "", "store backend: memory, sqlite or mongo")
	cmd.Flags().StringVar(&storePath, "db", "", "SQLite database file")

	return cmd
}

// services are the long-lived dependencies of the server.
type services struct {
	store store.Store
	api   *api.Server
	close func()
}

// buildServices opens storage and the cache and wires the API over them.
func (c *CLI) buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	logger := loggerFromContext(ctx)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	ch, err := openCache(ctx, cfg.Cache)
	if err != nil {
		st.Close()
		return nil, err
	}

	meta := metadata.NewService(st, ch, logger)
	meta.Keyer = cfg.Cache.Keyer()
	if ttl := cfg.Metadata.CacheTTL.Duration; ttl > 0 {
		meta.TTL = ttl
	}

	srv := api.New(st, meta, logger)
	if cfg.Server.MaxUploadBytes > 0 {
		srv.MaxUploadBytes = cfg.Server.MaxUploadBytes
	}

	return &services{
		store: st,
		api:   srv,
		close: func() {
			if err := ch.Close(); err != nil {
				logger.Warn("close cache", "err", err)
			}
			if err := st.Close(); err != nil {
				logger.Warn("close store", "err", err)
			}
		},
	}, nil
}

// serve runs the API until ctx is cancelled, then drains in-flight requests.
func (c *CLI) serve(ctx context.Context, cfg config.Config) error {
	logger := loggerFromContext(ctx)
	if logger.GetLevel() <= log.DebugLevel {
		observability.NewLogHooks(logger).Register()
	}

	svc, err := c.buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	hs := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           svc.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	printKeyValue("listen", cfg.Server.Addr)
	printKeyValue("store", nonEmpty(cfg.Store.Backend, store.BackendMemory))
	printKeyValue("cache", nonEmpty(cfg.Cache.Backend, "none"))

	grace := cfg.Server.ShutdownGrace.Duration
	if grace <= 0 {
		grace = 10 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "grace", grace)
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), grace)
		defer cancel()
		return hs.Shutdown(sctx)
	})
	return g.Wait()
}

func nonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
