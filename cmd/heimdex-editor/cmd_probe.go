package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/library"
	"github.com/heimdex/heimdex-editor/internal/logging"
)

func init() {
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe <files...>",
	Short: "Import files into a throwaway library and report what the timeline would see",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.New(db.MemoryDSN, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	lib := library.New(
		library.NewRepository(database.Conn()),
		library.NewFFprobe(cfg.FFprobePath(), cfg.ProbeTimeout()),
		logging.Discard(),
		library.WithConcurrency(cfg.ImportConcurrency()),
	)
	defer lib.Close(cmd.Context())

	results, err := lib.ImportAll(cmd.Context(), args)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tTITLE\tDURATION\tSIZE\tNOTE")
	failed := 0
	for _, r := range results {
		if r.Asset == nil {
			failed++
			fmt.Fprintf(w, "%s\t-\t-\t-\t%s\n", r.Path, r.Error)
			continue
		}
		note := ""
		if r.Duplicate {
			note = "duplicate"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Path, r.Asset.Title,
			formatSeconds(r.Asset.DurationSeconds), humanize.Bytes(uint64(r.Asset.SizeBytes)), note)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files could not be imported\n", failed, len(results))
	}
	return nil
}

func formatSeconds(s float64) string {
	return time.Duration(s * float64(time.Second)).Round(10 * time.Millisecond).String()
}
