package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gwdc/gwlab-viterbi-go/internal/filters"
	"github.com/gwdc/gwlab-viterbi-go/internal/models"
	"github.com/gwdc/gwlab-viterbi-go/internal/viterbi"
	"github.com/spf13/cobra"
)

var filesFilter string

var filesCmd = &cobra.Command{
	Use:   "files <job-id>",
	Short: "List the result files of a job",
	Long: `List the result files of a job, optionally restricted by a named filter.

Filters: ` + strings.Join(filters.Names(), ", ") + `

Examples:
  gwlab-viterbi files 42
  gwlab-viterbi files 42 --filter candidates`,
	Args: cobra.ExactArgs(1),
	RunE: runFiles,
}

func init() {
	filesCmd.Flags().StringVarP(&filesFilter, "filter", "f", "", "file filter name")
}

func runFiles(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	files, err := jobFiles(ctx, newAPI(nil), models.JobID(args[0]), filesFilter)
	if err != nil {
		return err
	}
	printFiles(os.Stdout, files)
	return nil
}

// jobFiles fetches the job and lists its files, all of them when filter
// is empty and only those passing the named filter otherwise.
func jobFiles(ctx context.Context, api *viterbi.GWLabViterbi, jobID models.JobID, filter string) (models.FileReferenceList, error) {
	job, err := api.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	var files models.FileReferenceList
	if filter == "" {
		files, err = job.FullFileList(ctx)
	} else {
		files, err = job.FileList(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

func printFiles(w io.Writer, files models.FileReferenceList) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No files found")
		return
	}

	for _, f := range files {
		fmt.Fprintf(w, "%10s  %s\n", humanize.Bytes(uint64(f.FileSize())), f.Path())
	}
	fmt.Fprintf(w, "\n%d files, %s\n", len(files), humanize.Bytes(uint64(files.TotalBytes())))
}
