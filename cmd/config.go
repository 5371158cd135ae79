package cmd

import (
	"fmt"
	"log/slog"

	"soundboard/config"
	"soundboard/logger"

	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Commands for managing and validating soundboard configuration.",
}

// configValidateCmd validates the current configuration
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the current configuration file and environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Setup basic logging for validation
		if err := logger.Setup("info", "text"); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			slog.Error("Configuration validation failed", slog.Any("error", err))
			return err
		}

		slog.Info("Configuration is valid")
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuration is valid")
		return nil
	},
}

// configShowCmd shows the current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration values from file and environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Setup("info", "text"); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		printConfig(cmd, cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func printConfig(cmd *cobra.Command, cfg *config.Config) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintf(w, "  Sounds:\n")
	fmt.Fprintf(w, "    Dir: %s\n", cfg.Sounds.Dir)
	fmt.Fprintf(w, "    Watch: %t\n", cfg.Sounds.Watch)
	fmt.Fprintf(w, "  Playback:\n")
	fmt.Fprintf(w, "    Sample rate: %d\n", cfg.Playback.SampleRate)
	fmt.Fprintf(w, "    Buffer: %s\n", cfg.Playback.Buffer)
	fmt.Fprintf(w, "    Volume: %g\n", cfg.Playback.Volume)
	fmt.Fprintf(w, "    Random pan: %t\n", cfg.Playback.RandomPan)
	fmt.Fprintf(w, "    Max attached: %d\n", cfg.Playback.MaxAttached)
	fmt.Fprintf(w, "    Default delay: %s\n", cfg.Playback.DefaultDelay)
	fmt.Fprintf(w, "    Max delay: %s\n", cfg.Playback.MaxDelay)
	fmt.Fprintf(w, "    FFmpeg: %s\n", cfg.Playback.FFmpeg)
	fmt.Fprintf(w, "  Monitor:\n")
	fmt.Fprintf(w, "    Interval: %s\n", cfg.Monitor.Interval)
	fmt.Fprintf(w, "  Logging:\n")
	fmt.Fprintf(w, "    Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "    Format: %s\n", cfg.Logging.Format)
}
