package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gwdc/gwlab-viterbi-go/internal/viterbi"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	submitName        string
	submitDescription string
	submitPrivate     bool
	submitConfig      string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new Viterbi job",
	Long: `Submit a new Viterbi job. The search is described by a YAML file with
data, data_parameters and search_parameters sections.

Example file:
  data:
    data_choice: real
    source_dataset: o1
  data_parameters:
    start_frequency_band: 188.0
    freq_band: 1.0
  search_parameters:
    search_a0_bins: 1200

Examples:
  gwlab-viterbi submit --name sco-x1 --description "Sco X-1 O1" --config search.yaml`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitName, "name", "", "job name (required)")
	submitCmd.Flags().StringVar(&submitDescription, "description", "", "job description")
	submitCmd.Flags().BoolVar(&submitPrivate, "private", false, "hide the job from public searches")
	submitCmd.Flags().StringVarP(&submitConfig, "config", "c", "", "YAML job parameters (required)")
	_ = submitCmd.MarkFlagRequired("name")
	_ = submitCmd.MarkFlagRequired("config")
}

// jobFile is the YAML layout of a job parameter file.
type jobFile struct {
	Data             viterbi.DataInput        `yaml:"data"`
	DataParameters   viterbi.DataParameters   `yaml:"data_parameters"`
	SearchParameters viterbi.SearchParameters `yaml:"search_parameters"`
}

func loadJobInput(path, name, description string, private bool) (viterbi.StartJobInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return viterbi.StartJobInput{}, fmt.Errorf("read job file: %w", err)
	}

	var jf jobFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return viterbi.StartJobInput{}, fmt.Errorf("parse job file %s: %w", path, err)
	}
	if jf.Data.DataChoice == "" {
		return viterbi.StartJobInput{}, errors.New("job file: data.data_choice is required")
	}

	return viterbi.StartJobInput{
		Name:             name,
		Description:      description,
		Private:          private,
		Data:             jf.Data,
		DataParameters:   jf.DataParameters,
		SearchParameters: jf.SearchParameters,
	}, nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	input, err := loadJobInput(submitConfig, submitName, submitDescription, submitPrivate)
	if err != nil {
		return err
	}

	job, err := newAPI(nil).StartViterbiJob(ctx, input)
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}
	if job == nil {
		return errors.New("job was submitted but could not be fetched")
	}

	fmt.Printf("Submitted %s\n", job)
	return nil
}
