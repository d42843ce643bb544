package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wcatz/dashboard-grid/internal/board"
	"github.com/wcatz/dashboard-grid/internal/config"
	"github.com/wcatz/dashboard-grid/internal/export"
	"github.com/wcatz/dashboard-grid/internal/grid"
	"github.com/wcatz/dashboard-grid/internal/server"
	"github.com/wcatz/dashboard-grid/internal/simulate"
	"github.com/wcatz/dashboard-grid/internal/store"
)

var (
	cfgFile     string
	profile     string
	logLevel    string
	columns     int
	storeDriver string
	storePath   string
	addr        string
	watch       bool
	scriptFile  string
	persist     bool
	outputFile  string
	pushURL     string
	dryRun      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dashboard-grid",
		Short:         "grid layout and collision engine for dashboard widgets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file (required)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "seed only widgets in named profile")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().IntVar(&columns, "columns", 0, "override grid columns")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "override store driver (memory, sqlite, yaml)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store-path", "", "override store path")
	rootCmd.MarkPersistentFlagRequired("config")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the board and gesture API over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&watch, "watch", false, "reload grid settings when the config file changes")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "check the config and the widgets it places",
		RunE:  runValidate,
	}

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "replay a YAML gesture script and print the resulting board",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().StringVar(&scriptFile, "script", "", "path to gesture script (required)")
	simulateCmd.Flags().BoolVar(&persist, "persist", false, "commit to the configured store instead of memory")
	simulateCmd.MarkFlagRequired("script")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "print the board as an ASCII grid",
		RunE:  runRender,
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "write the board to a JSON snapshot",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&outputFile, "output", "board.json", "snapshot file")
	exportCmd.Flags().StringVar(&pushURL, "push-url", "", "also add the widgets to a running dashboard-grid server")
	exportCmd.Flags().BoolVar(&dryRun, "dry-run", false, "build the snapshot without writing it")

	setCmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "change a grid setting in the config file, e.g. set columns 16",
		Args:  cobra.ExactArgs(2),
		RunE:  runSet,
	}

	rootCmd.AddCommand(serveCmd, validateCmd, simulateCmd, renderCmd, exportCmd, setCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cliArgs() map[string]string {
	args := make(map[string]string)
	if columns > 0 {
		args["grid.columns"] = strconv.Itoa(columns)
	}
	if storeDriver != "" {
		args["store.driver"] = storeDriver
	}
	if storePath != "" {
		args["store.path"] = storePath
	}
	if logLevel != "" {
		args["log.level"] = logLevel
	}
	if addr != "" {
		args["server.addr"] = addr
	}
	return args
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile, cliArgs())
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openBoard opens the configured store and loads the board, seeding an empty
// store from the config's widgets.
func openBoard(ctx context.Context, cfg *config.Config, driver string, logger *slog.Logger) (*board.Board, error) {
	path := cfg.GetStore().Path
	if path != "" && !filepath.IsAbs(path) {
		configDir, err := filepath.Abs(filepath.Dir(cfgFile))
		if err != nil {
			return nil, err
		}
		path = filepath.Join(configDir, path)
	}
	st, err := store.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	b, err := board.New(cfg.Grid, st, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	seed, err := cfg.ResolveWidgets(profile)
	if err != nil {
		b.Close()
		return nil, err
	}
	if err := b.Load(ctx, seed); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBoard(ctx, cfg, cfg.Store.Driver, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	srv, err := server.New(cfg, b, server.Options{
		ConfigPath: cfgFile,
		Overrides:  cliArgs(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if watch || cfg.Server.Watch {
		go func() {
			if err := srv.WatchConfig(ctx); err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	widgets, err := cfg.ResolveWidgets(profile)
	if err != nil {
		return err
	}
	fmt.Printf("config valid: %d widgets, %d columns, %d rows, store %s\n",
		len(widgets), cfg.Grid.Columns, grid.TotalRows(widgets, cfg.Grid.MinRows), cfg.Store.Driver)
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	original, err := os.ReadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := config.NewYAMLEditor(cfgFile).SetGridValue(args[0], args[1]); err != nil {
		return err
	}
	// keep the old file when the change leaves widgets off the grid
	if _, _, err := loadConfig(); err != nil {
		if werr := os.WriteFile(cfgFile, original, 0644); werr != nil {
			return fmt.Errorf("restoring config after %v: %w", err, werr)
		}
		return err
	}
	fmt.Printf("grid.%s = %s\n", args[0], args[1])
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	script, err := simulate.LoadScript(scriptFile)
	if err != nil {
		return err
	}

	driver := "memory"
	if persist {
		driver = cfg.Store.Driver
	}
	b, err := openBoard(cmd.Context(), cfg, driver, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	ctrl, err := grid.NewController(b.Config(), b, b.Commit, logger)
	if err != nil {
		return err
	}
	results, err := simulate.NewRunner(ctrl, logger).Run(cmd.Context(), script)
	if err != nil {
		return err
	}

	fmt.Println("gestures:")
	for i, res := range results {
		switch {
		case res.Err != nil:
			fmt.Printf("  %d. %s %s: error: %v\n", i+1, res.Kind, res.Widget, res.Err)
		case !res.Accepted:
			fmt.Printf("  %d. %s %s: cancelled\n", i+1, res.Kind, res.Widget)
		default:
			fmt.Printf("  %d. %s %s: (%d,%d) %dx%d\n", i+1, res.Kind, res.Widget,
				res.Rect.Column, res.Rect.Row, res.Rect.Width, res.Rect.Height)
		}
	}
	fmt.Println()
	return export.Render(os.Stdout, b.Config(), b.Widgets())
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := openBoard(cmd.Context(), cfg, cfg.Store.Driver, logger)
	if err != nil {
		return err
	}
	defer b.Close()
	return export.Render(os.Stdout, b.Config(), b.Widgets())
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := openBoard(cmd.Context(), cfg, cfg.Store.Driver, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	snap := export.NewSnapshot(b.Config(), b.Widgets())
	fmt.Println("dashboard-grid export:")
	if _, err := export.WriteSnapshot(snap, outputFile, dryRun); err != nil {
		return err
	}
	if pushURL != "" {
		n, err := export.PushSnapshot(cmd.Context(), snap, pushURL)
		if err != nil {
			return err
		}
		fmt.Printf("\n  total: %d of %d widgets pushed to %s\n", n, len(snap.Widgets), pushURL)
	}
	return nil
}
