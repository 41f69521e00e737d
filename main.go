package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"utility-registry/internal/auth"
	"utility-registry/internal/config"
	"utility-registry/internal/observability/logging"
	"utility-registry/internal/registry/application"
	registry "utility-registry/internal/registry/domain"
	"utility-registry/internal/registry/infrastructure/settings"
	"utility-registry/internal/registry/infrastructure/sqlstore"
	"utility-registry/internal/registry/interfaces/export"
)

const usage = `usage: utility-registry <command> [flags]

commands:
  generate -month M -year Y [-out DIR] [-format xlsx|pdf] [-config FILE]
  migrate  [-config FILE]
  serve    [-config FILE]
  token    -subject NAME [-role viewer|operator|admin] [-ttl 24h] [-config FILE]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	switch args[0] {
	case "generate":
		return runGenerate(ctx, args[1:], stdout, stderr)
	case "migrate":
		return runMigrate(ctx, args[1:], stderr)
	case "serve":
		return runServe(ctx, args[1:], stderr)
	case "token":
		return runToken(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}
}

type generateFlags struct {
	configPath string
	month      int
	year       int
	outDir     string
	format     string
}

func parseGenerateFlags(args []string, stderr io.Writer) (generateFlags, registry.Period, error) {
	var f generateFlags
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", os.Getenv("APP_CONFIG"), "config file (yaml)")
	fs.IntVar(&f.month, "month", 0, "month 1-12")
	fs.IntVar(&f.year, "year", 0, fmt.Sprintf("year %d-%d", registry.MinInputYear, registry.MaxInputYear))
	fs.StringVar(&f.outDir, "out", "", "output root (overrides settings save_path)")
	fs.StringVar(&f.format, "format", "", "document format: xlsx or pdf (overrides registry.format)")
	if err := fs.Parse(args); err != nil {
		return f, registry.Period{}, err
	}
	if f.month == 0 || f.year == 0 {
		return f, registry.Period{}, errors.New("missing -month or -year")
	}
	period, err := registry.NewInputPeriod(f.month, f.year)
	if err != nil {
		return f, registry.Period{}, err
	}
	return f, period, nil
}

func runGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, period, err := parseGenerateFlags(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	cfg, logger, err := loadRuntime(flags.configPath, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if flags.format != "" {
		cfg.Registry.Format = flags.format
	}
	renderer, err := export.NewRenderer(cfg.Registry.Format, export.Options{
		PDFFontRegular: cfg.Registry.PDFFontRegular,
		PDFFontBold:    cfg.Registry.PDFFontBold,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store_open_failed", "err", err)
		return 1
	}
	defer store.Close()

	gen, err := application.NewGenerator(store, settings.NewFileProvider(cfg.Registry.SettingsPath), renderer,
		application.WithLogger(logger))
	if err != nil {
		logger.Error("generator_init_failed", "err", err)
		return 1
	}

	outRoot := flags.outDir
	if outRoot == "" {
		outRoot = cfg.Registry.OutputRoot
	}
	summary, err := gen.Run(ctx, application.RunRequest{
		Period:     period,
		OutputRoot: outRoot,
		Progress:   application.NewWriterSink(stdout),
	})
	if err != nil {
		// Setup errors and cancellation both end the command unsuccessfully.
		fmt.Fprintln(stderr, err)
		return 1
	}
	if summary.Failed > 0 {
		fmt.Fprintln(stderr, application.FormatFailures(summary.Failures))
	}
	return 0
}

func runMigrate(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("APP_CONFIG"), "config file (yaml)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, logger, err := loadRuntime(*configPath, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	cfg.Store.Migrate = true
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("migrate_failed", "err", err)
		return 1
	}
	_ = store.Close()
	return 0
}

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("APP_CONFIG"), "config file (yaml)")
	subject := fs.String("subject", "", "token subject")
	role := fs.String("role", string(auth.RoleOperator), "viewer, operator or admin")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	normalized, ok := auth.NormalizeRole(*role)
	if !ok {
		fmt.Fprintf(stderr, "invalid role %q\n", *role)
		return 2
	}
	token, err := auth.IssueJWT([]byte(cfg.Auth.JWTSecret), *subject, normalized, *ttl)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	fmt.Fprintln(stdout, token)
	return 0
}

func loadRuntime(configPath string, stderr io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	logger := logging.NewWithWriter(stderr, cfg.App.Env, cfg.App.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlstore.Store, error) {
	dialect, err := sqlstore.ParseDialect(cfg.Store.Driver)
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.Open(ctx, dialect, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Migrate {
		if err := store.Migrate(ctx, logger); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	logger.Info("store_ready", "driver", string(dialect))
	return store, nil
}
