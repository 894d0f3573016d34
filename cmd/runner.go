package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidesweep/internal/repositories"
	"github.com/desertthunder/tidesweep/internal/services"
	"github.com/desertthunder/tidesweep/internal/shared"
	"github.com/desertthunder/tidesweep/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
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
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, historyCommand, playlistCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads and validates the config file named by the command's
// --config flag.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, string, error) {
	path := cmd.String("config")

	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.Validate(); err != nil {
		return nil, path, err
	}

	return config, path, nil
}

// openDatabase opens the history cache and ensures the schema is current.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// newCredentials wires a credential manager that persists rotated tokens
// back into the config file.
func (r *Runner) newCredentials(config *shared.Config, path string) *services.CredentialManager {
	store := &configCredentialStore{path: path, config: config}
	return services.NewCredentialManager(config.Credentials.Tidal, store, r.httpClient, r.logger)
}

// newTidal builds the full Tidal client stack for a loaded config.
func (r *Runner) newTidal(config *shared.Config, path string) *services.TidalService {
	creds := r.newCredentials(config, path)
	client := services.NewPagedClient(creds, r.httpClient, r.logger)
	limiter := rate.NewLimiter(rate.Limit(2), 1)
	return services.NewTidalService(config.Credentials.Tidal.APIURL, client, limiter, r.logger)
}

// newEngine builds a reconciliation engine over an open database handle.
func (r *Runner) newEngine(config *shared.Config, path string, db *sql.DB) *tasks.Engine {
	return tasks.NewEngine(tasks.EngineOpts{
		Tidal:      r.newTidal(config, path),
		LastFM:     services.NewLastFMService(config.Credentials.LastFM, r.httpClient, r.logger),
		History:    repositories.NewHistoryRepository(db),
		PlaylistID: config.Credentials.Tidal.PlaylistID,
		Fuzzy:      config.Matching.Fuzzy,
		Threshold:  config.Matching.SimilarityThreshold,
		Logger:     r.logger,
	})
}

// configCredentialStore persists rotated tokens into the TOML config file.
type configCredentialStore struct {
	path   string
	config *shared.Config
}

func (s *configCredentialStore) SaveTokens(accessToken, refreshToken string) error {
	s.config.Credentials.Tidal.AccessToken = accessToken
	if refreshToken != "" {
		s.config.Credentials.Tidal.RefreshToken = refreshToken
	}
	return shared.SaveConfig(s.path, s.config)
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
