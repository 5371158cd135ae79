package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"soundboard/board"
	"soundboard/config"
	"soundboard/logger"
	"soundboard/status"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "soundboard",
	Short: "A soundboard that plays random sounds from sound packs",
	Long: `Soundboard plays a random sound from a pack subfolder, optionally followed by
a chain of attached sounds, each picked from its own pack subfolder and fired
after a cumulative delay.

Without a subcommand it starts an interactive session. Each line read from
standard input is a play request:

  pack/subfolder [pack/subfolder@delay ...]

The session also understands "packs", "stats" and "quit".`,
	RunE: runSession,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("sounds-dir", "sounds", "directory holding the sound packs")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().Bool("random-pan", false, "give every sound a random stereo position")

	// Local flags for the session command
	rootCmd.Flags().Bool("watch", false, "rescan the sound packs when they change")

	// Bind flags to viper
	viper.BindPFlag("sounds.dir", rootCmd.PersistentFlags().Lookup("sounds-dir"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("sounds.watch", rootCmd.Flags().Lookup("watch"))
	viper.BindPFlag("playback.random_pan", rootCmd.PersistentFlags().Lookup("random-pan"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if verbose {
		viper.Set("logging.level", "debug")
	}
}

// setup loads and validates the configuration and configures logging
func setup() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return cfg, nil
}

// statusPrinter prints status notices on the command's output from a
// single goroutine
func statusPrinter(w io.Writer) *status.Queue {
	return status.NewQueue(status.Func(func(msg string) {
		fmt.Fprintln(w, msg)
	}))
}

// runSession starts the board and plays requests read from stdin
func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	notices := statusPrinter(cmd.OutOrStdout())
	defer notices.Close()

	b := board.New(cfg, board.WithStatus(notices))
	if err := b.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize soundboard: %w", err)
	}

	if err := b.Start(); err != nil {
		return fmt.Errorf("failed to start soundboard: %w", err)
	}

	// Setup graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go readLines(cmd.InOrStdin(), lines, done)

loop:
	for {
		select {
		case sig := <-signalChan:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down gracefully...\n", sig)
			break loop
		case err := <-b.Error():
			fmt.Fprintf(cmd.OutOrStdout(), "Error occurred: %v\n", err)
			break loop
		case line, ok := <-lines:
			if !ok {
				// Let sounds already scheduled finish before exiting on EOF.
				ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
				_ = b.Wait(ctx)
				stop()
				break loop
			}
			if quit := handleLine(cmd.OutOrStdout(), b, cfg, line); quit {
				break loop
			}
		}
	}

	// Graceful shutdown
	if err := b.Stop(); err != nil {
		return fmt.Errorf("failed to stop soundboard gracefully: %w", err)
	}

	return nil
}

// readLines sends each line of r until r ends or done is closed
func readLines(r io.Reader, lines chan<- string, done <-chan struct{}) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-done:
			return
		}
	}
}

// handleLine runs one session command and reports whether the session should end
func handleLine(w io.Writer, b *board.Board, cfg *config.Config, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "exit":
		return true
	case "packs":
		printPacks(w, b.Library())
	case "stats":
		fmt.Fprintln(w, b.Stats())
	default:
		req, err := parseRequest(fields, b.DefaultDelay())
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return false
		}
		if err := b.Play(req.Main, req.Attached, cfg.Playback.RandomPan); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
	}
	return false
}
