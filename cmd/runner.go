package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aura/internal/intents"
	"github.com/desertthunder/aura/internal/matching"
	"github.com/desertthunder/aura/internal/session"
	"github.com/desertthunder/aura/internal/shared"
	"github.com/desertthunder/aura/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database is opened on first use so that commands such as setup can run before it exists.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	input      io.Reader

	db         *sql.DB
	engine     *tasks.ListEngine
	sessions   *session.Store
	dispatcher *intents.Dispatcher
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
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
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	r := &Runner{
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
	r.setConfig(opts.Config)
	return r
}

func (r *Runner) setConfig(config *shared.Config) {
	r.config = config
	r.sessions = session.NewStore(
		session.WithHistorySize(config.Limits.HistorySize),
		session.WithRateLimit(config.Limits.RequestsPerSecond, config.Limits.Burst),
	)
}

// SetLogger replaces the logger used by the runner and everything it opens afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// globalFlags are accepted by every command.
func (r *Runner) globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   defaultConfigPath,
		},
		&cli.StringFlag{
			Name:    "owner",
			Aliases: []string{"u"},
			Usage:   "Owner whose entities are read and written (default from config)",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "Path to the SQLite database (overrides config)",
		},
	}
}

// Before reloads configuration when --config points somewhere other than the default
// and applies --db.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.IsSet("config") {
		path := cmd.String("config")
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		config.ApplyEnv()
		r.configPath = path
		r.setConfig(config)
	}
	if path := strings.TrimSpace(cmd.String("db")); path != "" {
		r.config.Database.Path = path
	}
	return ctx, nil
}

// owner resolves the --owner flag, falling back to the configured default.
func (r *Runner) owner(cmd *cli.Command) (string, error) {
	owner := strings.TrimSpace(cmd.String("owner"))
	if owner == "" {
		owner = strings.TrimSpace(r.config.Owner.Default)
	}
	if owner == "" {
		return "", fmt.Errorf("%w: --owner", shared.ErrMissingArgument)
	}
	return owner, nil
}

// open connects to the configured database, applies migrations and builds the engine.
// Later calls reuse the same connection.
func (r *Runner) open() error {
	if r.engine != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	// An in-memory database exists only on its single pinned connection.
	if !shared.IsMemoryPath(r.config.Database.Path) {
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.engine = tasks.NewListEngine(db,
		tasks.WithThresholds(matching.Thresholds{
			Duplicate: r.config.Matching.DuplicateThreshold,
			AutoUse:   r.config.Matching.AutoUseThreshold,
		}),
		tasks.WithLogger(r.logger),
	)
	r.dispatcher = intents.NewDispatcher(r.engine, r.sessions, r.logger)
	r.logger.Debug("database opened", "path", r.config.Database.Path)
	return nil
}

// Close releases the database connection if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.engine, r.dispatcher = nil, nil, nil
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, listsCommand, tasksCommand, profileCommand, intentCommand,
		exportCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
