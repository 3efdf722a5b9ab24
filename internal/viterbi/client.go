// Package viterbi is the client for GWLab Viterbi jobs and their result files.
package viterbi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gwdc/gwlab-viterbi-go/internal/download"
	"github.com/gwdc/gwlab-viterbi-go/internal/keys"
	"github.com/gwdc/gwlab-viterbi-go/internal/models"
)

// DefaultJobLimit is the number of jobs requested by list operations.
const DefaultJobLimit = 100

var (
	// ErrUnexpectedResponse is returned when the response data does not
	// have the expected shape.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrDownloadIDMismatch is returned when the server returns a different
	// number of download ids than tokens were sent.
	ErrDownloadIDMismatch = errors.New("download id count does not match token count")
)

// Requester sends GraphQL documents. Variables and response data use
// snake_case keys.
type Requester interface {
	Request(ctx context.Context, query string, variables map[string]any) (map[string]any, error)
}

// Downloader transfers files by download id. ids and dests are paired
// by position.
type Downloader interface {
	Download(ctx context.Context, fn download.MapFunc, ids, dests []string, total int64) ([]download.File, error)
}

// GWLabViterbi is the entry point for the GWLab Viterbi API.
type GWLabViterbi struct {
	requester  Requester
	downloader Downloader
	logger     *slog.Logger
}

// Option configures a GWLabViterbi client.
type Option func(*GWLabViterbi)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *GWLabViterbi) { c.logger = l }
}

// New creates a client that sends requests through requester and fetches
// files through downloader.
func New(requester Requester, downloader Downloader, opts ...Option) *GWLabViterbi {
	c := &GWLabViterbi{
		requester:  requester,
		downloader: downloader,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartViterbiJob submits a new job and returns it as stored by the server.
func (c *GWLabViterbi) StartViterbiJob(ctx context.Context, input StartJobInput) (*ViterbiJob, error) {
	vars, err := input.variables()
	if err != nil {
		return nil, fmt.Errorf("build job input: %w", err)
	}

	data, err := c.requester.Request(ctx, newViterbiJobMutation, vars)
	if err != nil {
		return nil, err
	}

	raw, err := lookup(data, "new_viterbi_job", "result", "job_id")
	if err != nil {
		return nil, err
	}
	jobID, err := models.JobIDFrom(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	c.logger.Info("job submitted", "job_id", jobID, "name", input.Name)
	return c.GetJobByID(ctx, jobID)
}

// GetJobByID returns the job with the given id, or nil if there is none.
func (c *GWLabViterbi) GetJobByID(ctx context.Context, jobID models.JobID) (*ViterbiJob, error) {
	data, err := c.requester.Request(ctx, viterbiJobQuery, map[string]any{"id": string(jobID)})
	if err != nil {
		return nil, err
	}

	job, err := c.jobFromNode(data["viterbi_job"])
	if err != nil {
		return nil, err
	}
	if job == nil {
		c.logger.Info("no job matching input ID was returned", "job_id", jobID)
	}
	return job, nil
}

// PublicJobListOptions configures GetPublicJobList. Zero values select an
// empty search, TimeRangeAny and DefaultJobLimit.
type PublicJobListOptions struct {
	Search    string
	TimeRange models.TimeRange
	First     int
}

// GetPublicJobList searches public jobs created within the time range.
func (c *GWLabViterbi) GetPublicJobList(ctx context.Context, opts PublicJobListOptions) ([]*ViterbiJob, error) {
	if opts.TimeRange == "" {
		opts.TimeRange = models.TimeRangeAny
	}
	if opts.First <= 0 {
		opts.First = DefaultJobLimit
	}

	data, err := c.requester.Request(ctx, publicViterbiJobsQuery, map[string]any{
		"search":     opts.Search,
		"time_range": opts.TimeRange.String(),
		"first":      opts.First,
	})
	if err != nil {
		return nil, err
	}
	return c.jobsFromEdges(data, "public_viterbi_jobs")
}

// GetUserJobs lists the jobs of the authenticated user.
func (c *GWLabViterbi) GetUserJobs(ctx context.Context, first int) ([]*ViterbiJob, error) {
	if first <= 0 {
		first = DefaultJobLimit
	}

	data, err := c.requester.Request(ctx, viterbiJobsQuery, map[string]any{"first": first})
	if err != nil {
		return nil, err
	}
	return c.jobsFromEdges(data, "viterbi_jobs")
}

// GetFilesByJobID lists the result files of a job. Directories are skipped.
func (c *GWLabViterbi) GetFilesByJobID(ctx context.Context, jobID models.JobID) (models.FileReferenceList, error) {
	data, err := c.requester.Request(ctx, viterbiResultFilesQuery, map[string]any{"job_id": string(jobID)})
	if err != nil {
		return nil, err
	}

	raw, err := lookup(data, "viterbi_result_files", "files")
	if err != nil {
		return nil, err
	}
	entries, ok := raw.([]any)
	if !ok && raw != nil {
		return nil, fmt.Errorf("%w: files is %T", ErrUnexpectedResponse, raw)
	}

	files := models.FileReferenceList{}
	for _, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: file entry is %T", ErrUnexpectedResponse, entry)
		}
		if isDir, _ := fields["is_dir"].(bool); isDir {
			continue
		}
		ref, err := models.FileReferenceFromFields(fields, jobID)
		if err != nil {
			return nil, err
		}
		files.Append(ref)
	}
	return files, nil
}

// GetDownloadIDsFromTokens exchanges download tokens of one job for
// short-lived download ids, in the same order.
func (c *GWLabViterbi) GetDownloadIDsFromTokens(ctx context.Context, jobID models.JobID, tokens []string) ([]string, error) {
	data, err := c.requester.Request(ctx, generateFileDownloadIDsMutation, map[string]any{
		"input": map[string]any{
			"job_id":          string(jobID),
			"download_tokens": tokens,
		},
	})
	if err != nil {
		return nil, err
	}

	raw, err := lookup(data, "generate_file_download_ids", "result")
	if err != nil {
		return nil, err
	}
	list, ok := raw.([]any)
	if !ok && raw != nil {
		return nil, fmt.Errorf("%w: result is %T", ErrUnexpectedResponse, raw)
	}

	ids := make([]string, len(list))
	for i, v := range list {
		id, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: download id is %T", ErrUnexpectedResponse, v)
		}
		ids[i] = id
	}
	return ids, nil
}

// GetDownloadIDFromToken exchanges a single download token.
func (c *GWLabViterbi) GetDownloadIDFromToken(ctx context.Context, jobID models.JobID, token string) (string, error) {
	ids, err := c.GetDownloadIDsFromTokens(ctx, jobID, []string{token})
	if err != nil {
		return "", err
	}
	if len(ids) != 1 {
		return "", fmt.Errorf("%w: got %d ids for 1 token", ErrDownloadIDMismatch, len(ids))
	}
	return ids[0], nil
}

// GetFilesByReference downloads the files into memory. The result is
// ordered by job (first-seen order), then by position within the job.
func (c *GWLabViterbi) GetFilesByReference(ctx context.Context, refs models.FileReferenceList) ([]download.File, error) {
	ids, ordered, err := c.resolveDownloadIDs(ctx, refs)
	if err != nil {
		return nil, err
	}

	files, err := c.downloader.Download(ctx, download.GetFile, ids, ordered.Paths(), ordered.TotalBytes())
	if err != nil {
		return nil, err
	}
	c.logger.Info(fmt.Sprintf("All %d files downloaded!", len(ids)))
	return files, nil
}

// SaveFilesByReference downloads the files below root, keeping their
// relative directories when preserveStructure is set.
func (c *GWLabViterbi) SaveFilesByReference(ctx context.Context, refs models.FileReferenceList, root string, preserveStructure bool) error {
	ids, ordered, err := c.resolveDownloadIDs(ctx, refs)
	if err != nil {
		return err
	}

	_, err = c.downloader.Download(ctx, download.SaveFile, ids, ordered.OutputPaths(root, preserveStructure), ordered.TotalBytes())
	if err != nil {
		return err
	}
	c.logger.Info(fmt.Sprintf("All %d files saved!", len(ids)))
	return nil
}

// resolveDownloadIDs exchanges tokens job by job and returns the ids
// together with the references in the matching order.
func (c *GWLabViterbi) resolveDownloadIDs(ctx context.Context, refs models.FileReferenceList) ([]string, models.FileReferenceList, error) {
	batches := refs.BatchedByJob()

	ids := make([]string, 0, len(refs))
	for _, batch := range batches {
		batchIDs, err := c.GetDownloadIDsFromTokens(ctx, batch.JobID, batch.Files.Tokens())
		if err != nil {
			return nil, nil, err
		}
		if len(batchIDs) != len(batch.Files) {
			return nil, nil, fmt.Errorf("%w: job %s sent %d tokens, got %d ids",
				ErrDownloadIDMismatch, batch.JobID, len(batch.Files), len(batchIDs))
		}
		ids = append(ids, batchIDs...)
	}
	return ids, models.FlattenBatches(batches), nil
}

func (c *GWLabViterbi) jobsFromEdges(data map[string]any, field string) ([]*ViterbiJob, error) {
	raw, err := lookup(data, field, "edges")
	if err != nil {
		return nil, err
	}
	edges, ok := raw.([]any)
	if !ok && raw != nil {
		return nil, fmt.Errorf("%w: edges is %T", ErrUnexpectedResponse, raw)
	}
	if len(edges) == 0 {
		c.logger.Info("job search returned no results")
		return []*ViterbiJob{}, nil
	}

	jobs := make([]*ViterbiJob, 0, len(edges))
	for _, edge := range edges {
		e, ok := edge.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: edge is %T", ErrUnexpectedResponse, edge)
		}
		job, err := c.jobFromNode(e["node"])
		if err != nil {
			return nil, err
		}
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// jobFromNode returns nil for a null or empty node.
func (c *GWLabViterbi) jobFromNode(node any) (*ViterbiJob, error) {
	fields, ok := node.(map[string]any)
	if !ok || len(fields) == 0 {
		return nil, nil
	}
	return NewViterbiJob(c, keys.RenameMap(fields, map[string]string{"id": "job_id"}))
}

// lookup walks nested maps along path.
func lookup(data map[string]any, path ...string) (any, error) {
	var cur any = data
	for i, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %v is %T", ErrUnexpectedResponse, path[:i], cur)
		}
		cur, ok = m[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing %v", ErrUnexpectedResponse, path[:i+1])
		}
	}
	return cur, nil
}
