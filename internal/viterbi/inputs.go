package viterbi

import (
	"encoding/json"
	"fmt"
)

// StartJobInput describes a new Viterbi job.
type StartJobInput struct {
	Name             string
	Description      string
	Private          bool
	Data             DataInput
	DataParameters   DataParameters
	SearchParameters SearchParameters
}

// DataInput selects the strain data the search runs on.
type DataInput struct {
	DataChoice    string `json:"data_choice" yaml:"data_choice"`
	SourceDataset string `json:"source_dataset" yaml:"source_dataset"`
}

// DataParameters configures data preparation.
type DataParameters struct {
	StartFrequencyBand float64 `json:"start_frequency_band" yaml:"start_frequency_band"`
	MinStartTime       float64 `json:"min_start_time" yaml:"min_start_time"`
	MaxStartTime       float64 `json:"max_start_time" yaml:"max_start_time"`
	Asini              float64 `json:"asini" yaml:"asini"`
	FreqBand           float64 `json:"freq_band" yaml:"freq_band"`
	Alpha              float64 `json:"alpha" yaml:"alpha"`
	Delta              float64 `json:"delta" yaml:"delta"`
	OrbitTp            float64 `json:"orbit_tp" yaml:"orbit_tp"`
	OrbitPeriod        float64 `json:"orbit_period" yaml:"orbit_period"`
	DriftTime          float64 `json:"drift_time" yaml:"drift_time"`
	DFreq              float64 `json:"d_freq" yaml:"d_freq"`
}

// SearchParameters configures the Viterbi search grid.
type SearchParameters struct {
	SearchStartTime      float64 `json:"search_start_time" yaml:"search_start_time"`
	SearchTBlock         float64 `json:"search_t_block" yaml:"search_t_block"`
	SearchCentralA0      float64 `json:"search_central_a0" yaml:"search_central_a0"`
	SearchA0Band         float64 `json:"search_a0_band" yaml:"search_a0_band"`
	SearchA0Bins         int     `json:"search_a0_bins" yaml:"search_a0_bins"`
	SearchCentralP       float64 `json:"search_central_p" yaml:"search_central_p"`
	SearchPBand          float64 `json:"search_p_band" yaml:"search_p_band"`
	SearchPBins          int     `json:"search_p_bins" yaml:"search_p_bins"`
	SearchCentralOrbitTp float64 `json:"search_central_orbit_tp" yaml:"search_central_orbit_tp"`
	SearchOrbitTpBand    float64 `json:"search_orbit_tp_band" yaml:"search_orbit_tp_band"`
	SearchOrbitTpBins    int     `json:"search_orbit_tp_bins" yaml:"search_orbit_tp_bins"`
	SearchLLThreshold    float64 `json:"search_l_l_threshold" yaml:"search_l_l_threshold"`
}

// variables builds the mutation input. Nested parameter structs are
// flattened to field maps keyed by their json names.
func (in StartJobInput) variables() (map[string]any, error) {
	data, err := toFields(in.Data)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	dataParams, err := toFields(in.DataParameters)
	if err != nil {
		return nil, fmt.Errorf("data parameters: %w", err)
	}
	searchParams, err := toFields(in.SearchParameters)
	if err != nil {
		return nil, fmt.Errorf("search parameters: %w", err)
	}

	return map[string]any{
		"input": map[string]any{
			"start": map[string]any{
				"name":        in.Name,
				"description": in.Description,
				"private":     in.Private,
			},
			"data":              data,
			"data_parameters":   dataParams,
			"search_parameters": searchParams,
		},
	}, nil
}

func toFields(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
