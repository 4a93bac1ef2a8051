package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songrelay/internal/library"
	"github.com/desertthunder/songrelay/internal/services"
	"github.com/desertthunder/songrelay/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	store      services.Store
	logger     *log.Logger
	output     io.Writer
	getenv     func(string) string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      services.Store      // Built from the Drive config on first use when nil
	Logger     *log.Logger
	Output     io.Writer
	Getenv     func(string) string // Defaults to os.Getenv
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		logger:     opts.Logger,
		output:     opts.Output,
		getenv:     opts.Getenv,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, songsCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before runs ahead of every command: it loads the env file and config, applies environment
// overrides and sets the log level. The store itself is built lazily by [Runner.library].
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnvFile(cmd.String("env-file")); err != nil {
		return ctx, err
	}

	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
		r.config = config
		r.configPath = path
		r.logger.Debug("loaded config", "path", path)
	} else if cmd.IsSet("config") {
		return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
	}

	if err := r.config.ApplyEnv(r.getenv); err != nil {
		return ctx, err
	}

	level, err := shared.ParseLogLevel(r.config.Log.Level)
	if err != nil {
		return ctx, err
	}
	if cmd.Bool("debug") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	return ctx, nil
}

// library returns a [library.Library] over the configured folder, creating the Drive store on first use.
func (r *Runner) library(ctx context.Context) (*library.Library, error) {
	if r.store == nil {
		if err := r.config.Validate(); err != nil {
			return nil, err
		}

		creds, err := r.config.Credentials()
		if err != nil {
			return nil, err
		}
		auth, err := services.DriveCredentials(ctx, creds)
		if err != nil {
			return nil, err
		}
		store, err := services.NewDriveStore(ctx, auth)
		if err != nil {
			return nil, err
		}
		r.store = store
	}

	if r.config.Drive.FolderID == "" {
		return nil, fmt.Errorf("%w: drive folder id (set %s or drive.folder_id)", shared.ErrMissingConfig, shared.EnvFolderID)
	}
	return library.New(r.store, r.config.Drive.FolderID, r.logger), nil
}

// remoteLibrary reads from another running relay instead of Drive.
func (r *Runner) remoteLibrary(baseURL string) *library.Library {
	store := services.NewRelayStore(baseURL, nil)
	return library.New(store, strings.TrimRight(baseURL, "/"), r.logger)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
