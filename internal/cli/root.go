// Package cli provides the command-line interface for gwlab-viterbi.
package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gwdc/gwlab-viterbi-go/internal/client"
	"github.com/gwdc/gwlab-viterbi-go/internal/config"
	"github.com/gwdc/gwlab-viterbi-go/internal/download"
	"github.com/gwdc/gwlab-viterbi-go/internal/metrics"
	"github.com/gwdc/gwlab-viterbi-go/internal/viterbi"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose  bool
	token    string
	endpoint string

	// Global state, set up in PersistentPreRunE
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	collector *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gwlab-viterbi",
	Short: "Client for GWLab Viterbi jobs",
	Long: `gwlab-viterbi submits and inspects Viterbi continuous-wave searches on
GWLab and downloads their result files.

The API token is read from --token, GWLAB_TOKEN or a .env file in the
working directory.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// .env is optional
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if token != "" {
			cfg.Token = token
		}
		if endpoint != "" {
			cfg.Endpoint = endpoint
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		collector = metrics.NewCollector()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if verbose && collector != nil {
			printMetrics(os.Stderr, collector.Snapshot())
		}
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// newAPI builds the Viterbi client from the loaded config. Download
// progress is sent to reporter, which may be nil.
func newAPI(reporter download.Reporter) *viterbi.GWLabViterbi {
	gql := client.New(cfg.Token, cfg.Endpoint,
		client.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		client.WithLogger(logger),
		client.WithMetrics(collector),
	)

	opts := []download.Option{
		download.WithConcurrency(cfg.Concurrency),
		download.WithLogger(logger),
		download.WithMetrics(collector),
	}
	if reporter != nil {
		opts = append(opts, download.WithReporter(reporter))
	}
	dl := download.New(cfg.DownloadEndpoint, opts...)

	return viterbi.New(gql, dl, viterbi.WithLogger(logger))
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and timing summary")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "GWLab API token (default $GWLAB_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "GraphQL endpoint (default $GWLAB_VITERBI_ENDPOINT)")

	// Add subcommands
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(publicCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(submitCmd)
}
