package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/thumbx/internal/auth"
	"github.com/desertthunder/thumbx/internal/repositories"
	"github.com/desertthunder/thumbx/internal/services"
	"github.com/desertthunder/thumbx/internal/shared"
	"github.com/desertthunder/thumbx/internal/tasks"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built lazily by [Runner.connect] so that setup commands work without a database or
// hosted project configured.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db       *sql.DB
	pool     *pgxpool.Pool
	supabase *services.SupabaseAuth
	identity services.IdentityProvider
	profiles services.ProfileSource
	jobs     services.JobSource
	webhooks tasks.Submitter
	history  *repositories.JobRepository
	manager  *auth.Manager
	engine   *tasks.StudioEngine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Any service left nil is built from Config on first use.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer

	DB       *sql.DB
	Identity services.IdentityProvider
	Profiles services.ProfileSource
	Jobs     services.JobSource
	Webhooks tasks.Submitter
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
		identity:   opts.Identity,
		profiles:   opts.Profiles,
		jobs:       opts.Jobs,
		webhooks:   opts.Webhooks,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, profileCommand, generateCommand, jobsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// SetLogger replaces the logger. Services that were already built keep the old one.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// connect builds every service that was not injected. It is safe to call more than once.
func (r *Runner) connect(ctx context.Context) error {
	if r.manager != nil {
		return nil
	}

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return err
		}
		r.db = db
	}
	r.history = repositories.NewJobRepository(r.db)

	if r.identity == nil {
		sb, err := services.NewSupabaseAuth(r.config.Supabase, repositories.NewSessionRepository(r.db), r.httpClient, r.logger)
		if err != nil {
			return err
		}
		r.supabase = sb
		r.identity = sb
	}

	if r.profiles == nil || r.jobs == nil {
		if err := r.connectReads(ctx); err != nil {
			return err
		}
	}

	if r.webhooks == nil {
		r.webhooks = services.NewWebhookService(r.config.Webhooks, r.httpClient.Transport, r.logger)
	}

	r.manager = auth.NewManager(r.identity, r.profiles, auth.Options{
		Logger: r.logger,
		Dev:    r.config.Dev,
	})
	r.engine = tasks.NewStudioEngine(r.manager, r.webhooks, r.history, r.logger)
	return nil
}

// connectReads picks the profile and job source: a direct Postgres pool when a DSN is configured,
// otherwise the REST API authorized with the session token.
func (r *Runner) connectReads(ctx context.Context) error {
	if dsn := r.config.Postgres.DSN; dsn != "" {
		pool, err := repositories.OpenPostgres(ctx, dsn)
		if err != nil {
			return err
		}
		r.pool = pool
		store := repositories.NewPostgresStore(pool)
		r.setReads(store, store)
		r.logger.Debug("reading profiles and jobs from postgres")
		return nil
	}

	client := r.httpClient
	if r.supabase != nil {
		client = r.supabase.HTTPClient()
	}
	rest := services.NewRestClient(r.config.Supabase, client)
	r.setReads(rest, rest)
	return nil
}

func (r *Runner) setReads(profiles services.ProfileSource, jobs services.JobSource) {
	if r.profiles == nil {
		r.profiles = profiles
	}
	if r.jobs == nil {
		r.jobs = jobs
	}
}

// session connects and resolves the current session, waiting for the profile fetch to settle.
func (r *Runner) session(ctx context.Context) (auth.Snapshot, error) {
	if err := r.connect(ctx); err != nil {
		return auth.Snapshot{}, err
	}
	r.manager.Initialize(ctx)
	r.manager.Wait()
	return r.manager.Snapshot(), nil
}

// requireSession is [Runner.session] that fails with [shared.ErrNoSession] when signed out.
func (r *Runner) requireSession(ctx context.Context) (auth.Snapshot, error) {
	snap, err := r.session(ctx)
	if err != nil {
		return snap, err
	}
	if !snap.SignedIn() {
		return snap, fmt.Errorf("%w: run `thumbx auth login` first", shared.ErrNoSession)
	}
	return snap, nil
}

// Close releases the auth manager, database and Postgres pool.
func (r *Runner) Close() {
	if r.manager != nil {
		r.manager.Close()
		r.manager = nil
	}
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
		r.db = nil
	}
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
