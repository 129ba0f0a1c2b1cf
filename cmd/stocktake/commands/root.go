package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/stocktake/internal/application/service"
	"github.com/garyjia/stocktake/internal/config"
	"github.com/garyjia/stocktake/internal/container"
	"github.com/garyjia/stocktake/pkg/utils"
)

// app holds what every subcommand needs once the root pre-run has finished
type app struct {
	configPath string
	logLevel   string

	cfg       *config.Config
	logger    *zap.Logger
	container *container.Container
	stocktake service.StocktakeService
}

// Execute runs the root command until it returns or an interrupt arrives
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// run executes the command tree with args and the given streams, always
// releasing the container afterwards
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "stocktake",
		Short:        "Count stock area by area from an item list",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.start(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: built-in defaults and environment)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(summaryCmd(a), exportCmd(a), countCmd(a))
	return root
}

func (a *app) start(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      a.logLevel,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// One-shot commands keep their run in memory regardless of the configured store.
	cc := cfg.ToContainerConfig()
	cc.Store = container.StoreConfig{Driver: config.StoreMemory}
	cc.ExportDir = ""

	c, err := container.NewContainer(cc, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.container = c
	a.stocktake = c.Services().Stocktake
	return nil
}

func (a *app) close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	_ = a.logger.Sync()
	a.container = nil
	return err
}

// importRun loads the item list at path into a new run and reports
// duplicate warnings on stderr
func (a *app) importRun(cmd *cobra.Command, path string) (*service.RunView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read item list: %w", err)
	}

	run, err := a.stocktake.CreateRun(cmd.Context(), filepath.Base(path), data)
	if err != nil {
		return nil, err
	}

	for _, w := range run.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	return run, nil
}

// writeOutput writes data to path, or to filename under the export
// directory when path is empty, and returns where it went
func (a *app) writeOutput(path, filename string, data []byte) (string, error) {
	if path == "" {
		path = filepath.Join(a.cfg.Export.Dir, filename)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
