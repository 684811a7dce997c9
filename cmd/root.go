package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spigell/reswave/internal/optimizer"
	"github.com/spigell/reswave/internal/reswave"
	"github.com/spigell/reswave/internal/secrets"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "reswave"

	providerHTTP   = "http"
	providerGemini = "gemini"

	tokenFileEnv    = "RESWAVE_TOKEN_FILE"
	apiURLEnv       = "RESWAVE_API_URL"
	geminiKeyEnv    = "GEMINI_API_KEY_FILE"
	defaultHistory  = "reswave-history.json"
	defaultJobTitle = "software engineering"
)

type Config struct {
	APIURL    string             `mapstructure:"api-url"`
	TokenFile string             `mapstructure:"token-file"`
	UserAgent string             `mapstructure:"user-agent"`
	Provider  string             `mapstructure:"provider"`
	Optimize  *OptimizeConfig    `mapstructure:"optimize"`
	HTTP      reswave.HTTPConfig `mapstructure:"http"`
	AI        *AIConfig          `mapstructure:"ai"`
}

type OptimizeConfig struct {
	optimizer.Config `mapstructure:",squash"`

	Concurrency int      `mapstructure:"concurrency"`
	Extensions  []string `mapstructure:"extensions"`
	LatestOnly  bool     `mapstructure:"latest-only"`
	HistoryFile string   `mapstructure:"history-file"`
	JobTitle    string   `mapstructure:"job-title"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "reswave is a cli for optimizing resumes through the reswave API or Gemini",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("token-file", tokenFileEnv); err != nil {
		log.Fatalf("binding %s environment variable: %v", tokenFileEnv, err)
	}
	if err := viper.BindEnv("api-url", apiURLEnv); err != nil {
		log.Fatalf("binding %s environment variable: %v", apiURLEnv, err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", geminiKeyEnv); err != nil {
		log.Fatalf("binding %s environment variable: %v", geminiKeyEnv, err)
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is reswave.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("output", "o", outputText, "result format: text, json or yaml")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}

func setDefaults() {
	defaults := optimizer.DefaultConfig()
	httpDefaults := reswave.DefaultHTTPConfig()

	viper.SetDefault("api-url", reswave.DefaultAPIURL)
	viper.SetDefault("provider", providerHTTP)
	viper.SetDefault("optimize.max-retries", defaults.MaxRetries)
	viper.SetDefault("optimize.initial-delay", defaults.InitialDelay)
	viper.SetDefault("optimize.attempt-timeout", defaults.AttemptTimeout)
	viper.SetDefault("optimize.max-delay", time.Duration(0))
	viper.SetDefault("optimize.jitter", false)
	viper.SetDefault("optimize.concurrency", 2)
	viper.SetDefault("optimize.extensions", []string{"docx", "pdf"})
	viper.SetDefault("optimize.latest-only", false)
	viper.SetDefault("optimize.history-file", defaultHistory)
	viper.SetDefault("optimize.job-title", defaultJobTitle)
	viper.SetDefault("http.retry-max", httpDefaults.RetryMax)
	viper.SetDefault("http.timeout", httpDefaults.Timeout)
	viper.SetDefault("ai.gemini.max-log-length", 200)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without an explicit --config the file is optional.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	if config.Optimize == nil {
		config.Optimize = &OptimizeConfig{Config: optimizer.DefaultConfig()}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	config.Provider = strings.ToLower(strings.TrimSpace(config.Provider))
	switch config.Provider {
	case providerHTTP, providerGemini:
	default:
		return config, fmt.Errorf("unknown provider %q: expected %s or %s", config.Provider, providerHTTP, providerGemini)
	}

	if err := config.Optimize.Validate(); err != nil {
		return config, fmt.Errorf("optimize: %w", err)
	}
	if config.Optimize.Concurrency < 1 {
		return config, fmt.Errorf("optimize: concurrency must be at least 1, got %d", config.Optimize.Concurrency)
	}

	return config, nil
}

// resolveToken returns an empty token when no token file is configured.
func resolveToken(config *Config) (string, error) {
	if config == nil {
		return "", errors.New("config is required")
	}

	tokenFile := strings.TrimSpace(config.TokenFile)
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("token-file"))
	}

	if tokenFile == "" {
		return "", nil
	}

	return secrets.Load(secrets.Source{
		Name: "reswave token",
		File: tokenFile,
	})
}
