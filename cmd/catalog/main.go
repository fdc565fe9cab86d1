// Command catalog runs the storefront catalog service and its tooling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nrfta/catalog-go/internal/app"
	"github.com/nrfta/catalog-go/internal/config"
	"github.com/nrfta/catalog-go/internal/logger"
)

var (
	cfg    config.Config
	log    *zap.Logger
	driver string
)

var rootCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Storefront catalog service",
	Long: `catalog serves product listings with category, price range, genre and
text filters, plus carts and checkout.

Settings are read from the environment (see internal/config); .env.local is
loaded when APP_ENV=local.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(); err != nil {
			return err
		}
		v := config.New()
		if driver != "" {
			v.Set("STORE_DRIVER", driver)
		}
		var err error
		if cfg, err = config.FromViper(v); err != nil {
			return err
		}
		if log, err = logger.New(cfg.LogLevel, cfg.AppEnv); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Store driver: firestore, postgres or memory (overrides STORE_DRIVER)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(cacheCmd)
}

// withApp connects the configured backends for the duration of fn.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
