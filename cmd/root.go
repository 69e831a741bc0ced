package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coaxwatch/coaxwatch/internal/config"
	"github.com/coaxwatch/coaxwatch/internal/logger"
)

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "coaxwatch",
	Short: "Cable modem signal monitor",
	Long: `Coaxwatch polls the management interface of DOCSIS cable modems and
normalizes their channel tables: downstream SC-QAM and OFDM, upstream ATDMA
and OFDMA, error counters, and system info.

It figures out the login mechanism on its own (HTTP basic, login forms, HNAP
challenge-response, URL token sessions) and picks the right page parser for
the detected model.

COMMANDS:
  coaxwatch poll <host...>     - Poll one or more modems and print channel data
  coaxwatch detect <host>      - Show which auth strategy and parser match
  coaxwatch restart <host>     - Reboot a modem (models that support it)`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		var err error
		log, err = logger.New(cfg.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			if err := log.Sync(); err != nil {
				// Sync on stdout/stderr fails with EINVAL on Linux; harmless.
				if err.Error() != "sync /dev/stdout: invalid argument" && err.Error() != "sync /dev/stderr: invalid argument" {
					fmt.Fprintf(os.Stderr, "Warning: failed to sync logger: %v\n", err)
				}
			}
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (json, console)")
	viper.BindPFlag("logger.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logger.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindEnv("logger.level", "COAXWATCH_LOG_LEVEL")
	viper.BindEnv("logger.format", "COAXWATCH_LOG_FORMAT")

	rootCmd.PersistentFlags().StringP("username", "u", "", "modem admin username")
	rootCmd.PersistentFlags().StringP("password", "p", "", "modem admin password")
	rootCmd.PersistentFlags().String("parser", "", "pin the parser instead of detecting")
	rootCmd.PersistentFlags().String("auth-kind", "", "pin the auth strategy instead of discovering")
	rootCmd.PersistentFlags().Bool("verify-ssl", false, "verify the modem's TLS certificate")
	rootCmd.PersistentFlags().Bool("legacy-ssl", false, "allow weak TLS ciphers for old firmware")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "per-request timeout")
	rootCmd.PersistentFlags().Bool("diagnostics", false, "capture sanitized responses for troubleshooting")
	viper.BindPFlag("modem.username", rootCmd.PersistentFlags().Lookup("username"))
	viper.BindPFlag("modem.password", rootCmd.PersistentFlags().Lookup("password"))
	viper.BindPFlag("modem.parser", rootCmd.PersistentFlags().Lookup("parser"))
	viper.BindPFlag("modem.auth_kind", rootCmd.PersistentFlags().Lookup("auth-kind"))
	viper.BindPFlag("modem.verify_ssl", rootCmd.PersistentFlags().Lookup("verify-ssl"))
	viper.BindPFlag("modem.legacy_ssl", rootCmd.PersistentFlags().Lookup("legacy-ssl"))
	viper.BindPFlag("poll.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("poll.diagnostics", rootCmd.PersistentFlags().Lookup("diagnostics"))
	viper.BindEnv("modem.username", "COAXWATCH_USERNAME")
	viper.BindEnv("modem.password", "COAXWATCH_PASSWORD")

	viper.SetDefault("logger.output_paths", []string{"stderr"})
}

func initConfig() error {
	// Configuration comes from flags and environment only. The replacer
	// makes nested keys like modem.url_token.send_auth_header reachable as
	// COAXWATCH_MODEM_URL_TOKEN_SEND_AUTH_HEADER.
	viper.SetEnvPrefix("COAXWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cfg = config.Default()
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "console"
	}
	return nil
}
