package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"naukri-agent/internal/activitylog"
	"naukri-agent/internal/adzuna"
	"naukri-agent/internal/agent"
	"naukri-agent/internal/ai"
	"naukri-agent/internal/ai/gemini"
	"naukri-agent/internal/board"
	"naukri-agent/internal/board/naukri"
	"naukri-agent/internal/discovery"
	"naukri-agent/internal/filtering"
	"naukri-agent/internal/jobs"
	"naukri-agent/internal/jsearch"
	"naukri-agent/internal/linkedin"
	"naukri-agent/internal/logger"
	"naukri-agent/internal/outreach"
	"naukri-agent/internal/pacing"
	"naukri-agent/internal/secrets"
	"naukri-agent/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	defaultMode          = "scrape"
	defaultMinDelay      = 2 * time.Second
	defaultMaxJitter     = 2 * time.Second
	defaultSourceTimeout = 2 * time.Minute
	defaultActivityDir   = "activity"
)

var prompt = promptui.Select{
	Label: "Proceed with applying?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the naukri-agent main command",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("do-not-exclude-applied", "f", false, "do not skip postings already recorded in the dedup store")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before applying")
	runCmd.Flags().Bool("loop", false, "keep running cycles until interrupted")
	runCmd.Flags().Bool("headless", true, "run the browser without a visible window")

	viper.BindPFlag("loop.enabled", runCmd.Flags().Lookup("loop"))
	viper.BindPFlag("headless", runCmd.Flags().Lookup("headless"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the naukri-agent", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	creds, err := boardCredentials(config)
	if err != nil {
		logger.Fatal(
			"loading board credentials",
			zap.Error(err),
			zap.String("hint", "set NAUKRI_EMAIL and NAUKRI_PASSWORD or the board.email/board.password keys in the configuration file"),
		)
	}

	resume, err := loadResume(config)
	if err != nil {
		logger.Fatal("loading resume profile", zap.Error(err))
	}

	st, err := store.Open(ctx, storeConfig(config), logger)
	if err != nil {
		logger.Fatal("opening dedup store", zap.Error(err))
	}
	defer st.Close()

	activityDir := config.ActivityDir
	if activityDir == "" {
		activityDir = defaultActivityDir
	}
	activity, err := activitylog.New(activityDir, logger)
	if err != nil {
		logger.Fatal("opening activity log", zap.Error(err))
	}
	defer activity.Close()

	drafter, err := buildDrafter(ctx, config, logger)
	if err != nil {
		logger.Fatal("building message drafter", zap.Error(err))
	}

	var fallback outreach.Fallback
	switch {
	case drafter == nil:
		logger.Info("outreach disabled", zap.String("reason", "gemini api key is not set"))
	case resume == "":
		logger.Fatal(
			"resume profile is required for outreach",
			zap.String("hint", "set the resume key or RESUME_PATH, or unset the gemini api key"),
		)
	default:
		fallback, err = buildFallback(config, logger)
		if err != nil {
			logger.Fatal("building linkedin fallback", zap.Error(err))
		}
		if fallback == nil {
			logger.Info("social fallback disabled", zap.String("reason", "linkedin credentials are not set"))
		}
	}

	mode := strings.ToLower(strings.TrimSpace(config.Mode))
	if mode == "" {
		mode = defaultMode
	}

	var apiSources []discovery.Source
	if mode != "scrape" {
		apiSources, err = buildAPISources(config, logger)
		if err != nil {
			logger.Fatal("building api sources", zap.Error(err))
		}
		if mode == "api" && len(apiSources) == 0 {
			logger.Fatal("api mode needs at least one search api with credentials")
		}
	}

	minDelay, maxJitter := defaultMinDelay, defaultMaxJitter
	if config.Pacing != nil {
		minDelay = config.Pacing.MinDelay
		maxJitter = config.Pacing.MaxJitter
	}

	loopEnabled := viper.GetBool("loop.enabled")
	var interval time.Duration
	var schedule string
	if config.Loop != nil {
		loopEnabled = loopEnabled || config.Loop.Enabled
		interval = config.Loop.Interval
		schedule = config.Loop.Schedule
	}

	autoApprove := strings.EqualFold(cmd.Flag("auto-approve").Value.String(), "true")
	var confirm agent.ConfirmFunc
	if !autoApprove && !loopEnabled {
		confirm = promptApproval()
	}

	queries := buildQueries(config)
	logger.Info("starting the search",
		zap.Int("queries", len(queries)),
		zap.Strings("roles", config.Search.Roles),
		zap.Strings("locations", config.Search.Locations),
		zap.String("mode", mode),
	)

	a, err := agent.New(agent.Config{
		Queries:           queries,
		ResumeSummary:     resume,
		DiscoverFromBoard: mode != "api",
		SourceTimeout:     defaultSourceTimeout,
		Loop:              loopEnabled,
		Interval:          interval,
		Schedule:          schedule,
	}, agent.Deps{
		Driver: naukri.NewDriver(naukri.Config{
			BaseURL:   boardBaseURL(config),
			Headless:  viper.GetBool("headless"),
			UserAgent: config.UserAgent,
		}, logger),
		Credentials: creds,
		APISources:  apiSources,
		Filters:     prepareFilters(cmd, config, st, activity, logger),
		Store:       st,
		Activity:    activity,
		Pacer:       pacing.New(minDelay, maxJitter, logger),
		Drafter:     drafter,
		Fallback:    fallback,
		Confirm:     confirm,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("building agent", zap.Error(err))
	}

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("agent run failed", zap.Error(err))
	}

	logger.Info("exiting")
}

func boardCredentials(config *Config) (board.Credentials, error) {
	var emailCfg, passwordCfg *CredentialConfig
	if config.Board != nil {
		emailCfg, passwordCfg = config.Board.Email, config.Board.Password
	}

	email, err := secrets.Load(emailCfg.source("board email", "NAUKRI_EMAIL"))
	if err != nil {
		return board.Credentials{}, err
	}

	password, err := secrets.Load(passwordCfg.source("board password", "NAUKRI_PASSWORD"))
	if err != nil {
		return board.Credentials{}, err
	}

	return board.Credentials{Username: email, Password: password}, nil
}

func boardBaseURL(config *Config) string {
	if config.Board != nil {
		return config.Board.BaseURL
	}
	return ""
}

// loadResume reads the resume profile text the recruiter messages are
// drafted from. An unset path is not an error here; outreach checks for an
// empty summary itself.
func loadResume(config *Config) (string, error) {
	path := strings.TrimSpace(config.Resume)
	if path == "" {
		path = strings.TrimSpace(viper.GetString("resume"))
	}
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading resume profile: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func storeConfig(config *Config) store.Config {
	if config.Store == nil {
		return store.Config{}
	}

	return store.Config{
		Backend:     config.Store.Backend,
		Path:        config.Store.Path,
		RedisURL:    config.Store.RedisURL,
		RedisKey:    config.Store.RedisKey,
		PostgresURL: config.Store.PostgresURL,
	}
}

// buildQueries expands the configured roles and locations into one search
// target per combination, all carrying the minimum-experience filter.
func buildQueries(config *Config) []jobs.Query {
	experience := ""
	if exp := config.Search.Experience; exp != nil && exp.Min > 0 {
		experience = strconv.FormatFloat(exp.Min, 'f', -1, 64)
	}

	var queries []jobs.Query
	for _, role := range config.Search.Roles {
		for _, location := range config.Search.Locations {
			queries = append(queries, jobs.Query{
				Role:       role,
				Location:   location,
				Experience: experience,
			})
		}
	}
	return queries
}

func experienceRange(config *Config) *jobs.ExperienceRange {
	exp := config.Search.Experience
	if exp == nil {
		return nil
	}

	r := &jobs.ExperienceRange{Min: exp.Min, Max: exp.Max}
	if r.Max <= 0 {
		r.Max = math.Inf(1)
	}
	return r
}

func prepareFilters(cmd *cobra.Command, config *Config, st store.Store, activity activitylog.Recorder, logger *zap.Logger) *filtering.Pipeline {
	processed := filtering.NewAlreadyProcessed(&filtering.AlreadyProcessedDeps{
		Store:  st,
		Logger: logger,
	})
	if flag := cmd.Flag("do-not-exclude-applied"); flag != nil && strings.EqualFold(flag.Value.String(), "true") {
		processed.Disable("force flag is set")
	}

	rules := []filtering.Rule{
		processed,
		filtering.NewTargetMatch(&filtering.TargetMatchConfig{
			Roles:     config.Search.Roles,
			Keywords:  config.Search.Keywords,
			Locations: config.Search.Locations,
		}),
		filtering.NewExperience(&filtering.ExperienceConfig{
			Range: experienceRange(config),
		}),
	}

	return filtering.New(rules, st, activity, logger)
}

func buildAPISources(config *Config, logger *zap.Logger) ([]discovery.Source, error) {
	apis := config.APIs
	if apis == nil {
		return nil, nil
	}

	priority := apis.Priority
	if len(priority) == 0 {
		priority = []string{"jsearch", "adzuna"}
	}

	var sources []discovery.Source
	for _, name := range priority {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "jsearch":
			var keyCfg *CredentialConfig
			if apis.JSearch != nil {
				keyCfg = apis.JSearch.APIKey
			}
			key, err := secrets.LoadOptional(keyCfg.source("jsearch api key", "JSEARCH_API_KEY"))
			if err != nil {
				return nil, err
			}
			if key == "" {
				logger.Info("skipping discovery source",
					zap.String("source", "jsearch"),
					zap.String("reason", "api key is not set"),
				)
				continue
			}
			sources = append(sources, jsearch.New(logger, key))

		case "adzuna":
			var idCfg, keyCfg *CredentialConfig
			var country string
			if apis.Adzuna != nil {
				idCfg, keyCfg, country = apis.Adzuna.AppID, apis.Adzuna.AppKey, apis.Adzuna.Country
			}
			appID, err := secrets.LoadOptional(idCfg.source("adzuna app id", "ADZUNA_APP_ID"))
			if err != nil {
				return nil, err
			}
			appKey, err := secrets.LoadOptional(keyCfg.source("adzuna app key", "ADZUNA_APP_KEY"))
			if err != nil {
				return nil, err
			}
			if appID == "" || appKey == "" {
				logger.Info("skipping discovery source",
					zap.String("source", "adzuna"),
					zap.String("reason", "app credentials are not set"),
				)
				continue
			}
			sources = append(sources, adzuna.New(logger, appID, appKey, country))
		}
	}

	return sources, nil
}

func buildDrafter(ctx context.Context, config *Config, logger *zap.Logger) (ai.Drafter, error) {
	var cfg *GeminiConfig
	if config.AI != nil {
		cfg = config.AI.Gemini
	}

	var keyCfg *CredentialConfig
	var model string
	var maxRetries, maxLogLength int
	if cfg != nil {
		keyCfg = cfg.APIKey
		model = cfg.Model
		maxRetries = cfg.MaxRetries
		maxLogLength = cfg.MaxLogLength
	}

	apiKey, err := secrets.LoadOptional(keyCfg.source("gemini api key", "GEMINI_API_KEY"))
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, nil
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, model, maxRetries, logger.With(
		zap.String("provider", "gemini"),
		zap.Int("ai_retry_attempts", maxRetries),
	))
	if err != nil {
		return nil, err
	}

	drafterLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", generator.Model()),
	)

	return gemini.NewDrafter(generator, drafterLogger, maxLogLength), nil
}

func buildFallback(config *Config, logger *zap.Logger) (outreach.Fallback, error) {
	var userCfg, passCfg *CredentialConfig
	var headless *bool
	if config.LinkedIn != nil {
		userCfg, passCfg = config.LinkedIn.Username, config.LinkedIn.Password
		headless = config.LinkedIn.Headless
	}

	username, err := secrets.LoadOptional(userCfg.source("linkedin username", "LINKEDIN_USERNAME"))
	if err != nil {
		return nil, err
	}
	password, err := secrets.LoadOptional(passCfg.source("linkedin password", "LINKEDIN_PASSWORD"))
	if err != nil {
		return nil, err
	}
	if username == "" || password == "" {
		return nil, nil
	}

	cfg := linkedin.Config{
		Username: username,
		Password: password,
		Headless: viper.GetBool("headless"),
	}
	if headless != nil {
		cfg.Headless = *headless
	}

	return linkedin.New(cfg, logger)
}

func promptApproval() agent.ConfirmFunc {
	return func(candidates *jobs.Candidates) (bool, error) {
		for _, c := range candidates.Items {
			fmt.Printf("%s %s / %s / %s\n", c.ID, c.Title, c.Company, c.URL)
		}

		_, action, err := prompt.Run()
		if err != nil {
			return false, err
		}
		return action == PromptYes, nil
	}
}
