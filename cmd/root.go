package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"naukri-agent/internal/secrets"
)

const (
	app = "naukri-agent"
)

var validate = validator.New()

type Config struct {
	// Mode picks the discovery sources: the board search, the third-party
	// search APIs, or both. Applying always happens on the board.
	Mode        string          `mapstructure:"mode" validate:"omitempty,oneof=scrape api hybrid"`
	Search      *SearchConfig   `mapstructure:"search" validate:"required"`
	Board       *BoardConfig    `mapstructure:"board"`
	APIs        *APIsConfig     `mapstructure:"apis"`
	Pacing      *PacingConfig   `mapstructure:"pacing"`
	Loop        *LoopConfig     `mapstructure:"loop"`
	Store       *StoreConfig    `mapstructure:"store"`
	ActivityDir string          `mapstructure:"activity-dir"`
	Resume      string          `mapstructure:"resume"`
	UserAgent   string          `mapstructure:"user-agent"`
	AI          *AIConfig       `mapstructure:"ai"`
	LinkedIn    *LinkedInConfig `mapstructure:"linkedin"`
}

type SearchConfig struct {
	Roles     []string `mapstructure:"roles" validate:"min=1"`
	Locations []string `mapstructure:"locations" validate:"min=1"`
	Keywords  []string `mapstructure:"keywords"`
	// Experience is the acceptable required-experience window in years.
	Experience *ExperienceConfig `mapstructure:"experience"`
}

type ExperienceConfig struct {
	Min float64 `mapstructure:"min" validate:"min=0"`
	// Max of zero means no upper bound.
	Max float64 `mapstructure:"max" validate:"omitempty,gtefield=Min"`
}

type BoardConfig struct {
	BaseURL  string            `mapstructure:"base-url"`
	Email    *CredentialConfig `mapstructure:"email"`
	Password *CredentialConfig `mapstructure:"password"`
}

type APIsConfig struct {
	// Priority is the merge order of the API sources. Scrape results always
	// win over API results regardless of this list.
	Priority []string       `mapstructure:"priority" validate:"omitempty,dive,oneof=jsearch adzuna"`
	JSearch  *JSearchConfig `mapstructure:"jsearch"`
	Adzuna   *AdzunaConfig  `mapstructure:"adzuna"`
}

type JSearchConfig struct {
	APIKey *CredentialConfig `mapstructure:"api-key"`
}

type AdzunaConfig struct {
	AppID   *CredentialConfig `mapstructure:"app-id"`
	AppKey  *CredentialConfig `mapstructure:"app-key"`
	Country string            `mapstructure:"country"`
}

type PacingConfig struct {
	MinDelay  time.Duration `mapstructure:"min-delay"`
	MaxJitter time.Duration `mapstructure:"max-jitter"`
}

type LoopConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	// Schedule is a cron expression. When set it replaces the interval.
	Schedule string `mapstructure:"schedule"`
}

type StoreConfig struct {
	Backend     string `mapstructure:"backend" validate:"omitempty,oneof=file redis postgres"`
	Path        string `mapstructure:"path"`
	RedisURL    string `mapstructure:"redis-url"`
	RedisKey    string `mapstructure:"redis-key"`
	PostgresURL string `mapstructure:"postgres-url"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       *CredentialConfig `mapstructure:"api-key"`
	Model        string            `mapstructure:"model"`
	MaxRetries   int               `mapstructure:"max-retries"`
	MaxLogLength int               `mapstructure:"max-log-length"`
}

type LinkedInConfig struct {
	Username *CredentialConfig `mapstructure:"username"`
	Password *CredentialConfig `mapstructure:"password"`
	Headless *bool             `mapstructure:"headless"`
}

// CredentialConfig names where one secret lives. The file takes precedence
// over the inline value; the wiring adds an environment variable between
// the two.
type CredentialConfig struct {
	Value string `mapstructure:"value"`
	File  string `mapstructure:"file"`
}

// source builds the secrets source for one credential. Works on a nil
// receiver so absent config sections fall through to the environment.
func (c *CredentialConfig) source(name, env string) secrets.Source {
	src := secrets.Source{Name: name, Env: env}
	if c != nil {
		src.Value = c.Value
		src.File = c.File
	}
	return src
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "naukri-agent discovers job postings, applies to them on the board and messages their recruiters",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("headless", "HEADLESS"); err != nil {
		log.Fatalf("binding HEADLESS environment variable: %v", err)
	}
	if err := viper.BindEnv("resume", "RESUME_PATH"); err != nil {
		log.Fatalf("binding RESUME_PATH environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is naukri-agent.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Values from a local .env take part in the environment bindings.
	_ = godotenv.Load()

	// Config is needed only for the run command. If there is no config, we
	// can skip initialization.
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return config, nil
}
