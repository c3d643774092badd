package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"hijack-addon/hijack/internal/config"
	"hijack-addon/hijack/internal/database"
	"hijack-addon/hijack/internal/hostconfig"
	importsettings "hijack-addon/hijack/internal/import"
	"hijack-addon/hijack/internal/permissions"
	"hijack-addon/hijack/internal/server"
	"hijack-addon/hijack/internal/settings"
	"hijack-addon/hijack/internal/storage"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

const usage = `Usage: hijack [command] [options]
Commands: get, set, unset, import, serve

For command-specific options, use: hijack [command] -h`

// commonFlags registers the host source and log flags shared by every command.
func commonFlags(flags *flag.FlagSet, cfg *config.Config, logLevel *string) {
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite host settings database (env: HIJACK_DB_PATH)")
	flags.StringVar(&cfg.HostConfigPath, "config", cfg.HostConfigPath, "Path to a YAML host settings file (env: HIJACK_HOST_CONFIG)")
	flags.StringVar(&cfg.HostEnvPrefix, "env-prefix", cfg.HostEnvPrefix, "Prefix of environment host settings (env: HIJACK_HOST_ENV_PREFIX)")
	flags.StringVar(logLevel, "log-level", cfg.LogLevel.String(), "Log level: debug, info, warn, error (env: HIJACK_LOG_LEVEL)")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	var logLevel string

	flags := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	commonFlags(flags, cfg, &logLevel)

	var csvPath string
	switch os.Args[1] {
	case "serve":
		flags.StringVar(&cfg.ServerHost, "host", cfg.ServerHost, "Host to bind the server to (env: HIJACK_HOST)")
		flags.IntVar(&cfg.ServerPort, "port", cfg.ServerPort, "Port to listen on (env: HIJACK_PORT)")
		flags.DurationVar(&cfg.RefreshInterval, "refresh", cfg.RefreshInterval, "Interval between host store reloads (env: HIJACK_REFRESH_INTERVAL)")
	case "import":
		flags.StringVar(&csvPath, "csv", "./settings.csv", "Path to a key,value CSV file")
		flags.BoolVar(&cfg.ImportReplace, "replace", cfg.ImportReplace,
			"Delete the settings database before importing (env: HIJACK_IMPORT_REPLACE)")
	case "get", "set", "unset":
	case "-h", "--help", "help":
		fmt.Println(usage)
		os.Exit(0)
	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}

	flags.Parse(os.Args[2:])
	if level, err := zerolog.ParseLevel(logLevel); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "get":
		err = runGet(ctx, cfg, flags.Args())
	case "set":
		err = runSet(ctx, cfg, flags.Args())
	case "unset":
		err = runUnset(ctx, cfg, flags.Args())
	case "import":
		err = runImport(ctx, cfg, csvPath)
	case "serve":
		err = runServe(ctx, cfg)
	}
	if err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		os.Exit(1)
	}
}

// openStore opens the settings database and loads it into a Store host.
func openStore(ctx context.Context, cfg *config.Config, readOnly bool) (*hostconfig.Store, func(), error) {
	dbCfg := database.NewConfig(cfg.DBPath)
	dbCfg.ReadOnly = readOnly

	db, err := database.NewDB(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := hostconfig.NewStore(storage.NewRepository(db))
	if err := store.Load(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to load host settings: %w", err)
	}
	return store, func() { db.Close() }, nil
}

// buildHost assembles the host chain: environment, then YAML file, then store.
func buildHost(cfg *config.Config, store *hostconfig.Store) (hostconfig.Chain, *hostconfig.File, error) {
	chain := hostconfig.Chain{hostconfig.Env{Prefix: cfg.HostEnvPrefix}}

	var file *hostconfig.File
	if cfg.HostConfigPath != "" {
		f, err := hostconfig.OpenFile(cfg.HostConfigPath)
		if err != nil {
			return nil, nil, err
		}
		file = f
		chain = append(chain, f)
	}

	if store != nil {
		chain = append(chain, store)
	}
	return chain, file, nil
}

// openStoreIfExists opens the store read-only when the database file exists.
// A missing file yields a nil store; any other stat failure is returned.
func openStoreIfExists(ctx context.Context, cfg *config.Config) (*hostconfig.Store, func(), error) {
	if _, err := os.Stat(cfg.DBPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("path", cfg.DBPath).Msg("No settings database, skipping store")
			return nil, func() {}, nil
		}
		return nil, nil, fmt.Errorf("failed to stat settings database: %w", err)
	}
	return openStore(ctx, cfg, true)
}

// runGet resolves one setting and prints it as JSON.
func runGet(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: hijack get NAME")
	}

	store, closeDB, err := openStoreIfExists(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	host, _, err := buildHost(cfg, store)
	if err != nil {
		return err
	}

	value, source, err := settings.New(host).Resolve(args[0])
	if err != nil {
		return err
	}

	out, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	log.Debug().Str("name", args[0]).Str("source", string(source)).Msg("Setting resolved")
	fmt.Println(string(out))
	return nil
}

// runSet writes one host setting to the store.
func runSet(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: hijack set NAME VALUE")
	}

	store, closeDB, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := store.Set(ctx, args[0], hostconfig.ParseValue(args[1])); err != nil {
		return err
	}
	log.Info().Str("name", args[0]).Msg("Host setting stored")
	return nil
}

func runUnset(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: hijack unset NAME")
	}

	store, closeDB, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := store.Delete(ctx, args[0]); err != nil {
		return err
	}
	log.Info().Str("name", args[0]).Msg("Host setting removed")
	return nil
}

// runImport loads host settings from a CSV file into the store.
func runImport(ctx context.Context, cfg *config.Config, csvPath string) error {
	if cfg.ImportReplace {
		if err := database.DeleteDB(cfg.DBPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		log.Info().Str("path", cfg.DBPath).Msg("Deleted existing database")
	}

	store, closeDB, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer closeDB()

	res, err := importsettings.NewImporter(store).ImportFile(ctx, csvPath)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d settings successfully\n", res.Imported)
	if len(res.Errors) > 0 {
		fmt.Printf("Encountered %d errors:\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}

// runServe starts the HTTP API and keeps the host sources current until a
// shutdown signal arrives.
func runServe(ctx context.Context, cfg *config.Config) error {
	store, closeDB, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer closeDB()

	host, file, err := buildHost(cfg, store)
	if err != nil {
		return err
	}

	if file != nil {
		if err := file.Watch(ctx); err != nil {
			return err
		}
	}
	if cfg.RefreshInterval > 0 {
		go store.Refresh(ctx, cfg.RefreshInterval)
	}

	proxy := settings.New(host)
	policies := permissions.NewRegistry()

	check, err := proxy.PermissionCheck()
	if err != nil {
		return err
	}
	if _, err := policies.Resolve(check); err != nil {
		log.Warn().Err(err).Str("policy", check).Msg("Configured permission policy is not registered")
	}

	h := server.NewHandler(proxy, policies, log.Logger, server.Options{APIKey: cfg.APIKey, Banner: cfg.Banner})
	return server.RunServer(ctx, h, cfg.ListenAddr(), log.Logger)
}
