package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"soundboard/board"

	"github.com/spf13/cobra"
)

// playCmd plays one sound and its attached chain, then exits
var playCmd = &cobra.Command{
	Use:   "play pack/subfolder [pack/subfolder@delay ...]",
	Short: "Play a random sound and its attached chain",
	Long: `Play a random sound from pack/subfolder, then each attached sound after its
delay. Delays accumulate along the chain and default to playback.default_delay.
A delay is a duration such as 250ms or 1.5s, or a bare number of milliseconds.`,
	Example: `  soundboard play drums/kick
  soundboard play drums/kick drums/snare@250 fx/whoosh@1s --random-pan`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
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
	defer b.Stop()

	req, err := parseRequest(args, b.DefaultDelay())
	if err != nil {
		return err
	}

	if err := b.Play(req.Main, req.Attached, cfg.Playback.RandomPan); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := b.Wait(ctx); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "\nInterrupted, stopping playback...")
	}
	return nil
}
