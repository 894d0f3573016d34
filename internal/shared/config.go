package shared

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Matching    MatchingConfig    `toml:"matching"`
	Reports     ReportsConfig     `toml:"reports"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Tidal  TidalConfig  `toml:"tidal"`
	LastFM LastFMConfig `toml:"lastfm"`
}

// TidalConfig contains Tidal API credentials and the playlist under management.
type TidalConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
	PlaylistID   string `toml:"playlist_id"`
	APIURL       string `toml:"api_url"`  // optional override, defaults to the public API
	AuthURL      string `toml:"auth_url"` // optional override, defaults to the public token endpoint
}

// LastFMConfig contains Last.fm scrobble history credentials.
type LastFMConfig struct {
	Username string `toml:"username"`
	APIKey   string `toml:"api_key"`
	APIURL   string `toml:"api_url"` // optional override
}

// DatabaseConfig contains the history cache location.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// MatchingConfig tunes the reconciliation engine.
type MatchingConfig struct {
	Fuzzy               bool    `toml:"fuzzy"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

// ReportsConfig contains report artifact settings.
type ReportsConfig struct {
	Dir string `toml:"dir"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// SaveConfig writes the configuration back to disk as TOML.
//
// Used by the credential manager to persist rotated tokens.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyDefaults()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Matching.SimilarityThreshold <= 0 {
		c.Matching.SimilarityThreshold = 0.80
	}
	if c.Reports.Dir == "" {
		c.Reports.Dir = "."
	}
}

// Validate checks that every required setting is present.
//
// A missing setting is a fatal configuration fault; callers exit with a
// distinct status rather than proceeding on partial credentials.
func (c *Config) Validate() error {
	required := map[string]string{
		"credentials.tidal.client_id":     c.Credentials.Tidal.ClientID,
		"credentials.tidal.client_secret": c.Credentials.Tidal.ClientSecret,
		"credentials.tidal.access_token":  c.Credentials.Tidal.AccessToken,
		"credentials.tidal.playlist_id":   c.Credentials.Tidal.PlaylistID,
		"credentials.lastfm.username":     c.Credentials.LastFM.Username,
		"credentials.lastfm.api_key":      c.Credentials.LastFM.APIKey,
		"database.path":                   c.Database.Path,
	}

	var missing []string
	for key, value := range required {
		if value == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}
