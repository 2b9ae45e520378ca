package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"intake/internal/config"
	"intake/internal/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Intake - conversational loan intake service",
	Long: `Intake runs a fixed three-question loan interview over voice or text
and recommends a loan scheme once the interview is complete.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.intake")
	}

	// 环境变量设置
	viper.SetEnvPrefix("INTAKE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.cors_origins", []string{})

	// AI
	viper.SetDefault("ai.provider", "groq")
	viper.SetDefault("ai.model", "llama3-8b-8192")
	viper.SetDefault("ai.timeout", "30s")
	viper.SetDefault("ai.options.temperature", 0.5)
	viper.SetDefault("ai.options.max_tokens", 1024)

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")

	// Store
	viper.SetDefault("store.type", "memory")
	viper.SetDefault("store.transactions", true)

	// MongoDB
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "intake")
	viper.SetDefault("mongo.max_pool_size", 100)
	viper.SetDefault("mongo.min_pool_size", 10)

	// Redis
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// Lock
	viper.SetDefault("lock.backend", "local")
	viper.SetDefault("lock.ttl", "60s")
	viper.SetDefault("lock.max_attempts", 600)
	viper.SetDefault("lock.backoff", "100ms")

	// Session
	viper.SetDefault("session.cookie_name", "intake_session")
	viper.SetDefault("session.ttl", "720h")
	viper.SetDefault("session.secure", false)

	// Speech
	viper.SetDefault("tts.timeout", "30s")
	viper.SetDefault("stt.model", "whisper-large-v3")
	viper.SetDefault("stt.timeout", "60s")

	// Audio storage
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "./static/audio")
	viper.SetDefault("storage.local.base_url", "/audio")
	viper.SetDefault("audio.url_prefix", "/audio")
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
