package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/veselov/interview-coach/internal/gemini"
	"github.com/veselov/interview-coach/internal/logger"
	"github.com/veselov/interview-coach/internal/secrets"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "interview-coach"
)

type Config struct {
	Server   *ServerConfig   `mapstructure:"server"`
	Database *DatabaseConfig `mapstructure:"database"`
	AI       *AIConfig       `mapstructure:"ai"`
}

type ServerConfig struct {
	Addr          string `mapstructure:"addr"`
	JWTSecret     string `mapstructure:"jwt-secret"`
	JWTSecretFile string `mapstructure:"jwt-secret-file"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-coach runs AI mock interviews for a target job role",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("server.jwt-secret-file", "JWT_SECRET_FILE"); err != nil {
		log.Fatalf("binding JWT_SECRET_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("database.dsn", "DATABASE_DSN"); err != nil {
		log.Fatalf("binding DATABASE_DSN environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-coach.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the serve and practice commands. If neither
	// was called, we can skip initialization.
	if serveCmd.CalledAs() == "" && practiceCmd.CalledAs() == "" {
		return
	}

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
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// newInterviewer builds the Gemini-backed interviewer from the AI section of
// the config. It fails when the provider is unsupported or no API key can be
// loaded; callers decide whether that is fatal.
func newInterviewer(ctx context.Context, cfg *AIConfig, l *zap.Logger) (*gemini.Interviewer, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, fmt.Errorf("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.Timeout)
	if err != nil {
		return nil, err
	}

	ivLogger := l.With(logger.CommonFields("gemini", generator.Model())...)

	return gemini.NewInterviewer(generator, ivLogger, cfg.Gemini.MaxLogLength), nil
}
