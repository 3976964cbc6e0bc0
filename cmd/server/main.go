package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"govconnect/internal/api"
	"govconnect/internal/config"
	"govconnect/internal/logging"
	"govconnect/internal/nav"
	"govconnect/internal/reference"
	"govconnect/internal/store"
	"govconnect/internal/store/sqlstore"
	"govconnect/internal/ui"
)

var (
	configPath string
	flagCfg    = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "govconnect",
	Short: "GovConnect admin dashboard: runtime-defined tables, forms and sections",
	Long: `GovConnect serves the admin dashboard and its REST API.

Super-admins define tables (typed fields, show-in-UI flags) at runtime; every table
bound to a section gets a list, search and form page plus a menu entry without a rebuild.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "config.json", "Path to config JSON")
	f.StringVar(&flagCfg.Port, "port", flagCfg.Port, "HTTP port")
	f.StringVar(&flagCfg.Driver, "driver", flagCfg.Driver, "Storage driver (memory|postgres|sqlite)")
	f.StringVar(&flagCfg.DBURL, "db", flagCfg.DBURL, "Database URL / DSN for postgres or sqlite")
	f.StringVar(&flagCfg.Catalog, "catalog", flagCfg.Catalog, "Built-in sections YAML (file or directory; empty = embedded)")
	f.StringVar(&flagCfg.DateLayout, "date-layout", flagCfg.DateLayout, "Go time layout for dates in lists")
	f.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "Log level (debug|info|warn|error)")
	f.BoolVar(&flagCfg.Dev, "dev", flagCfg.Dev, "Development mode: console logs, gin debug")
}

// loadConfig: JSON и env, затем явно заданные флаги.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = flagCfg.Port
	}
	if flags.Changed("driver") {
		cfg.Driver = flagCfg.Driver
	}
	if flags.Changed("db") {
		cfg.DBURL = flagCfg.DBURL
	}
	if flags.Changed("catalog") {
		cfg.Catalog = flagCfg.Catalog
	}
	if flags.Changed("date-layout") {
		cfg.DateLayout = flagCfg.DateLayout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagCfg.LogLevel
	}
	if flags.Changed("dev") {
		cfg.Dev = flagCfg.Dev
	}
	return cfg, cfg.Validate()
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.Driver == "memory" {
		return store.NewMemoryStore(), nil
	}
	d, err := sqlstore.DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return sqlstore.OpenStore(ctx, d, cfg.DBURL, log)
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := reference.LoadCatalog(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("storage (%s): %w", cfg.Driver, err)
	}
	defer st.Close()
	if err := st.Setup(ctx); err != nil {
		return fmt.Errorf("storage setup: %w", err)
	}

	binder := nav.NewBinder(nav.NewRegistry(catalog), st, catalog, log)
	if err := binder.Boot(ctx); err != nil {
		return fmt.Errorf("navigation boot: %w", err)
	}

	tpl, err := ui.Templates()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	if cfg.Dev {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	app := api.NewApp(st, binder, log, api.Options{DateLayout: cfg.DateLayout, Templates: tpl})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr), zap.String("driver", cfg.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
