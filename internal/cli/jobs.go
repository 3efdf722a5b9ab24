package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gwdc/gwlab-viterbi-go/internal/models"
	"github.com/gwdc/gwlab-viterbi-go/internal/viterbi"
	"github.com/spf13/cobra"
)

var (
	jobsLimit       int
	publicSearch    string
	publicTimeRange string
	publicLimit     int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List your Viterbi jobs",
	Long: `List the Viterbi jobs owned by the authenticated user.

Examples:
  gwlab-viterbi jobs
  gwlab-viterbi jobs -n 10`,
	Args: cobra.NoArgs,
	RunE: runJobs,
}

var publicCmd = &cobra.Command{
	Use:   "public",
	Short: "Search public Viterbi jobs",
	Long: `Search public Viterbi jobs by text and creation time.

Time ranges: any, day, week, month, year.

Examples:
  gwlab-viterbi public
  gwlab-viterbi public --search "Sco X-1" --time-range month`,
	Args: cobra.NoArgs,
	RunE: runPublic,
}

var jobCmd = &cobra.Command{
	Use:   "job <job-id>",
	Short: "Show a single job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJob,
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", viterbi.DefaultJobLimit, "max results")

	publicCmd.Flags().StringVarP(&publicSearch, "search", "s", "", "search text")
	publicCmd.Flags().StringVarP(&publicTimeRange, "time-range", "t", string(models.TimeRangeAny), "time range")
	publicCmd.Flags().IntVarP(&publicLimit, "limit", "n", viterbi.DefaultJobLimit, "max results")
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	jobs, err := newAPI(nil).GetUserJobs(ctx, jobsLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	printJobs(os.Stdout, jobs)
	return nil
}

func runPublic(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	timeRange, err := models.ParseTimeRange(publicTimeRange)
	if err != nil {
		return err
	}

	jobs, err := newAPI(nil).GetPublicJobList(ctx, viterbi.PublicJobListOptions{
		Search:    publicSearch,
		TimeRange: timeRange,
		First:     publicLimit,
	})
	if err != nil {
		return fmt.Errorf("search public jobs: %w", err)
	}
	printJobs(os.Stdout, jobs)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	job, err := newAPI(nil).GetJobByID(ctx, models.JobID(args[0]))
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", args[0])
	}

	fmt.Printf("ID:          %s\n", job.JobID)
	fmt.Printf("Name:        %s\n", job.Name)
	fmt.Printf("User:        %s\n", job.User)
	fmt.Printf("Status:      %s\n", job.Status.Status)
	if job.Status.Date != "" {
		fmt.Printf("Updated:     %s\n", job.Status.Date)
	}
	if job.Description != "" {
		fmt.Printf("Description: %s\n", job.Description)
	}
	return nil
}

func printJobs(w io.Writer, jobs []*viterbi.ViterbiJob) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return
	}

	fmt.Fprintf(w, "%-8s %-30s %-20s %-12s %s\n", "ID", "NAME", "USER", "STATUS", "DATE")
	fmt.Fprintln(w, "--------------------------------------------------------------------------------")
	for _, job := range jobs {
		fmt.Fprintf(w, "%-8s %-30s %-20s %-12s %s\n",
			job.JobID, truncate(job.Name, 30), truncate(job.User, 20), job.Status.Status, job.Status.Date)
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
