package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/library"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that media files can be probed on this machine",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	caps, err := library.NewFFprobe(cfg.FFprobePath(), cfg.ProbeTimeout()).RunDoctor(cmd.Context())
	if err != nil {
		return err
	}
	if !caps.FFprobe {
		fmt.Fprintf(cmd.OutOrStdout(), "ffprobe: unavailable (%s)\n", caps.Error)
		return fmt.Errorf("ffprobe not found at %q", cfg.FFprobePath())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ffprobe: ok (version %s)\n", caps.Version)
	return nil
}
