package viterbi

import (
	"context"
	"fmt"

	"github.com/gwdc/gwlab-viterbi-go/internal/filters"
	"github.com/gwdc/gwlab-viterbi-go/internal/models"
)

// FileLister resolves the file listing of a job.
type FileLister interface {
	GetFilesByJobID(ctx context.Context, jobID models.JobID) (models.FileReferenceList, error)
}

// ViterbiJob is a remote Viterbi job. It keeps a reference to the client
// that created it only to list its files.
type ViterbiJob struct {
	JobID       models.JobID
	Name        string
	Description string
	User        string
	Status      models.JobStatus

	// Other holds fields returned by the API that are not modelled above.
	Other map[string]any

	client FileLister
}

// NewViterbiJob builds a job from a normalized job node
// ({job_id, name, description, user, job_status: {name, date}}).
func NewViterbiJob(client FileLister, fields map[string]any) (*ViterbiJob, error) {
	id, err := models.JobIDFrom(fields["job_id"])
	if err != nil {
		return nil, fmt.Errorf("job node: %w", err)
	}

	job := &ViterbiJob{
		JobID:       id,
		Name:        stringField(fields, "name"),
		Description: stringField(fields, "description"),
		User:        stringField(fields, "user"),
		Other:       map[string]any{},
		client:      client,
	}
	if status, ok := fields["job_status"].(map[string]any); ok {
		job.Status = models.JobStatus{
			Status: stringField(status, "name"),
			Date:   stringField(status, "date"),
		}
	}

	for k, v := range fields {
		switch k {
		case "job_id", "name", "description", "user", "job_status":
		default:
			job.Other[k] = v
		}
	}
	return job, nil
}

// Equal compares jobs by id, name and user only. Description, status and
// extra fields are ignored.
func (j *ViterbiJob) Equal(other *ViterbiJob) bool {
	if j == nil || other == nil {
		return j == other
	}
	return j.JobID == other.JobID && j.Name == other.Name && j.User == other.User
}

func (j *ViterbiJob) String() string {
	return fmt.Sprintf("ViterbiJob(name=%s, job_id=%s)", j.Name, j.JobID)
}

// FullFileList lists every file of the job. Each call queries the API.
func (j *ViterbiJob) FullFileList(ctx context.Context) (models.FileReferenceList, error) {
	return j.client.GetFilesByJobID(ctx, j.JobID)
}

// FileList lists the job's files that pass the named filter. Unknown
// filter names fail before any request is made.
func (j *ViterbiJob) FileList(ctx context.Context, filter string) (models.FileReferenceList, error) {
	f, err := filters.Lookup(filter)
	if err != nil {
		return nil, err
	}
	files, err := j.FullFileList(ctx)
	if err != nil {
		return nil, err
	}
	return f(files), nil
}

// ConfigFiles lists the job's .ini configuration files.
func (j *ViterbiJob) ConfigFiles(ctx context.Context) (models.FileReferenceList, error) {
	return j.FileList(ctx, filters.Config)
}

// CandidateFiles lists the job's candidate output files.
func (j *ViterbiJob) CandidateFiles(ctx context.Context) (models.FileReferenceList, error) {
	return j.FileList(ctx, filters.Candidates)
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
