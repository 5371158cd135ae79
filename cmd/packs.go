package cmd

import (
	"fmt"
	"io"
	"os"

	"soundboard/library"
	"soundboard/playback"
	"soundboard/status"

	"github.com/disgoorg/ffmpeg-audio"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// packsCmd lists the sound packs
var packsCmd = &cobra.Command{
	Use:   "packs",
	Short: "List sound packs and their subfolders",
	Long:  "List every sound pack under the sounds directory with its subfolders, file counts and sizes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		lib := library.New(cfg.Sounds.Dir, status.Func(func(msg string) {
			fmt.Fprintln(cmd.ErrOrStderr(), msg)
		}))
		var transcoder *playback.Transcoder
		if t := playback.NewTranscoder(ffmpeg.WithExec(cfg.Playback.FFmpeg)); cfg.Playback.FFmpeg != "" && t.Available() {
			transcoder = t
		}
		lib.SetFilter(func(name string) bool {
			return playback.Playable(name, transcoder)
		})
		if _, err := lib.Scan(); err != nil {
			return err
		}

		printPacks(cmd.OutOrStdout(), lib)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(packsCmd)
}

// printPacks writes each pack with its subfolders
func printPacks(w io.Writer, lib *library.Library) {
	packs := lib.Packs()
	if len(packs) == 0 {
		fmt.Fprintf(w, "No sound packs in %s\n", lib.Root())
		return
	}

	for _, pack := range packs {
		fmt.Fprintln(w, pack)
		subs, err := lib.Subfolders(pack)
		if err != nil {
			fmt.Fprintf(w, "  error: %v\n", err)
			continue
		}
		if len(subs) == 0 {
			fmt.Fprintln(w, "  (no subfolders)")
			continue
		}
		for _, sub := range subs {
			files, err := lib.Files(pack, sub)
			if err != nil {
				fmt.Fprintf(w, "  %s: error: %v\n", sub, err)
				continue
			}
			fmt.Fprintf(w, "  %s: %d file(s), %s\n", sub, len(files), humanize.Bytes(totalSize(files)))
		}
	}
}

func totalSize(files []string) uint64 {
	var total uint64
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			total += uint64(info.Size())
		}
	}
	return total
}
