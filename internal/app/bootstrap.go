package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"imgpt-cli/internal/config"
	"imgpt-cli/internal/interactive"
	"imgpt-cli/internal/logger"
)

// Options are the global command line settings shared by every command
type Options struct {
	ConfigPath string
	Verbose    bool
	// EnvFile is loaded without overriding variables that are already set
	EnvFile string
}

// Bootstrap wires the production App: .env loading, logging and the config
// store on the real filesystem. The returned cleanup flushes the logger.
func Bootstrap(opts Options) (*App, func(), error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	envErr := godotenv.Load(envFile)

	log, err := logger.New(logger.Config{
		Level:   logger.LevelFromEnv(opts.Verbose, os.LookupEnv),
		Verbose: opts.Verbose,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn("Could not load env file", zap.String("file", envFile), zap.Error(envErr))
	}

	path := opts.ConfigPath
	if path == "" {
		if path, err = config.DefaultPath(); err != nil {
			return nil, nil, err
		}
	}

	fsys := afero.NewOsFs()
	store := config.NewStore(fsys, path, log)

	// The log file is a config setting, so the file core joins once the config is read
	if cfg := store.Load(); cfg.LogFile != "" {
		fileLog, err := logger.New(logger.Config{
			Level:    logger.LevelFromEnv(opts.Verbose, os.LookupEnv),
			Verbose:  opts.Verbose,
			FilePath: cfg.LogFile,
		})
		if err != nil {
			log.Warn("Could not open log file", zap.String("file", cfg.LogFile), zap.Error(err))
		} else {
			log = fileLog
			store = config.NewStore(fsys, path, log)
		}
	}

	a := New(Deps{
		FS:        fsys,
		Store:     store,
		LookupEnv: os.LookupEnv,
		Prompter:  interactive.NewPrompter(),
		Logger:    log,
		Out:       os.Stdout,
	})
	cleanup := func() { _ = log.Sync() }
	return a, cleanup, nil
}
