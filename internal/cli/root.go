// Package cli implements the storefront command line tool.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goerrors "github.com/goliatone/go-errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-storefront/internal/config"
	"github.com/goliatone/go-storefront/pkg/di"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	envFile string
	migrate bool
	color   bool

	container *di.Container
}

// Execute runs the root command with the process streams.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree writing JSON to stdout and logs to
// stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Query the storefront store through the cache and retry pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.start(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.stop()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load variables from this file before the environment (default .env)")
	root.PersistentFlags().BoolVar(&a.migrate, "migrate", false, "apply schema migrations before running the command")
	root.PersistentFlags().BoolVar(&a.color, "color", false, "colorize log output")

	root.AddCommand(
		a.migrateCommand(),
		a.categoriesCommand(),
		a.productsCommand(),
		a.productCommand(),
		a.cartCommand(),
		a.ordersCommand(),
		a.summaryCommand(),
	)

	root.SetOut(stdout)
	root.SetErr(stderr)

	return root
}

func (a *app) start(ctx context.Context) error {
	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		a.report(ctx, "failed to load config", err)
		return err
	}

	logger := di.NewLogger(a.stderr, cfg, a.color)

	opts := []di.Option{di.WithLogger(logger), di.WithRegisterer(prometheus.NewRegistry())}
	if a.migrate {
		opts = append(opts, di.WithMigrations())
	}

	a.container, err = di.NewContainer(ctx, cfg, opts...)
	if err != nil {
		a.report(ctx, "failed to start", err)
		return err
	}
	return nil
}

func (a *app) stop() error {
	if a.container == nil {
		return nil
	}
	return a.container.Close()
}

// report logs err with its classification attributes.
func (a *app) report(ctx context.Context, msg string, err error) {
	logger := di.NewLogger(a.stderr, config.Config{LogLevel: "error"}, a.color)
	if a.container != nil {
		logger = a.container.Logger()
	}
	logger.LogAttrs(ctx, slog.LevelError, msg+": "+err.Error(), goerrors.ToSlogAttributes(err)...)
}

// run wraps a subcommand body so failures are logged before cobra returns.
func (a *app) run(fn func(ctx context.Context, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		result, err := fn(cmd.Context(), args)
		if err != nil {
			a.report(cmd.Context(), cmd.Name()+" failed", err)
			// post run hooks are skipped on error
			_ = a.stop()
			return err
		}
		if result == nil {
			return nil
		}

		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}
