package cmd

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/logger"
	"github.com/spigell/jobpilot/internal/store"
)

const (
	app = "jobpilot"
)

type Config struct {
	DBPath      string        `mapstructure:"db-path"`
	OutputDir   string        `mapstructure:"output-dir"`
	Profile     string        `mapstructure:"profile"`
	Template    string        `mapstructure:"template"`
	TectonicCmd string        `mapstructure:"tectonic-cmd"`
	Search      *SearchConfig `mapstructure:"search"`
	Filter      *FilterConfig `mapstructure:"filter"`
	AI          *AIConfig     `mapstructure:"ai"`
	Match       *MatchConfig  `mapstructure:"match"`
	Report      *ReportConfig `mapstructure:"report"`
}

type SearchConfig struct {
	TheHub *TheHubConfig `mapstructure:"thehub"`
	// Dump is an optional local JSON file with postings to import.
	Dump string `mapstructure:"dump"`
}

type TheHubConfig struct {
	URL      string            `mapstructure:"url"`
	Keywords []string          `mapstructure:"keywords"`
	Params   map[string]string `mapstructure:"params"`
}

type FilterConfig struct {
	MaxAgeDays      int           `mapstructure:"max-age-days"`
	ExcludeKeywords []string      `mapstructure:"exclude-keywords"`
	IncludeKeywords []string      `mapstructure:"include-keywords"`
	Delay           time.Duration `mapstructure:"delay"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type MatchConfig struct {
	TopN    int  `mapstructure:"top-n"`
	Rewrite bool `mapstructure:"rewrite"`
}

type ReportConfig struct {
	MinScore float64         `mapstructure:"min-score"`
	Telegram *TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	TokenFile string `mapstructure:"token-file"`
	ChatID    string `mapstructure:"chat-id"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobpilot is a personal job hunting pipeline: scrape postings, filter them, extract requirements and build tailored resumes",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"ai.gemini.api-key-file":     "GEMINI_API_KEY_FILE",
		"report.telegram.token-file": "TELEGRAM_TOKEN_FILE",
		"report.telegram.chat-id":    "TELEGRAM_CHAT_ID",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobpilot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Secrets can live in a local .env file. A missing file is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}

	if config.DBPath == "" {
		config.DBPath = "jobs.db"
	}
	if config.OutputDir == "" {
		config.OutputDir = "output"
	}
	if config.Profile == "" {
		config.Profile = "profile.yaml"
	}
	if config.Template == "" {
		config.Template = "template.tex"
	}

	return config, nil
}

// runtime bundles what every verb needs before doing its batch.
type runtime struct {
	config *Config
	logger *zap.Logger
	store  *store.Store
}

func setup() *runtime {
	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	st, err := store.Open(config.DBPath, zlog)
	if err != nil {
		zlog.Fatal("opening the job database", zap.String("path", config.DBPath), zap.Error(err))
	}

	return &runtime{config: config, logger: zlog, store: st}
}

func (r *runtime) close() {
	if err := r.store.Close(); err != nil {
		r.logger.Warn("closing the job database", zap.Error(err))
	}
}
