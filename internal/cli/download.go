package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gwdc/gwlab-viterbi-go/internal/download"
	"github.com/gwdc/gwlab-viterbi-go/internal/filters"
	"github.com/gwdc/gwlab-viterbi-go/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	downloadFilter  string
	downloadOut     string
	downloadFlatten bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <job-id>",
	Short: "Download the result files of a job",
	Long: `Download the result files of a job into a directory.

Relative directories are kept unless --flatten is set, in which case only
file names are used and files with the same name overwrite each other.

Filters: ` + strings.Join(filters.Names(), ", ") + `

Examples:
  gwlab-viterbi download 42
  gwlab-viterbi download 42 --filter config --out ./configs --flatten`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadFilter, "filter", "f", "", "file filter name")
	downloadCmd.Flags().StringVarP(&downloadOut, "out", "o", ".", "output directory")
	downloadCmd.Flags().BoolVar(&downloadFlatten, "flatten", false, "drop relative directories")
}

func runDownload(cmd *cobra.Command, args []string) error {
	// Interrupts outside the progress UI (no TTY) cancel through the signal;
	// inside it the UI sees the key press and calls cancel.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobID := models.JobID(args[0])

	var reporter download.Reporter
	if term.IsTerminal(int(os.Stdout.Fd())) {
		reporter = newProgressReporter(fmt.Sprintf("job %s", jobID), cancel)
	}
	api := newAPI(reporter)

	files, err := jobFiles(ctx, api, jobID, downloadFilter)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No files to download")
		return nil
	}

	if err := api.SaveFilesByReference(ctx, files, downloadOut, !downloadFlatten); err != nil {
		if ctx.Err() != nil {
			return errors.New("download aborted")
		}
		return fmt.Errorf("download files: %w", err)
	}

	fmt.Printf("Saved %d files (%s) to %s\n", len(files), humanize.Bytes(uint64(files.TotalBytes())), downloadOut)
	return nil
}
