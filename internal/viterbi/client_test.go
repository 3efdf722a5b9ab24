package viterbi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gwdc/gwlab-viterbi-go/internal/client"
	"github.com/gwdc/gwlab-viterbi-go/internal/download"
	"github.com/gwdc/gwlab-viterbi-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type request struct {
	field     string
	variables map[string]any
}

// fakeRequester answers each request by the root field of its operation.
type fakeRequester struct {
	t         *testing.T
	mu        sync.Mutex
	responses map[string]func(vars map[string]any) (map[string]any, error)
	requests  []request
}

func newFakeRequester(t *testing.T) *fakeRequester {
	return &fakeRequester{t: t, responses: map[string]func(map[string]any) (map[string]any, error){}}
}

func (f *fakeRequester) on(field string, fn func(vars map[string]any) (map[string]any, error)) {
	f.responses[field] = fn
}

func (f *fakeRequester) Request(_ context.Context, query string, variables map[string]any) (map[string]any, error) {
	field := rootField(f.t, query)

	f.mu.Lock()
	f.requests = append(f.requests, request{field: field, variables: variables})
	f.mu.Unlock()

	fn, ok := f.responses[field]
	if !ok {
		f.t.Fatalf("unexpected request for %s", field)
	}
	return fn(variables)
}

func (f *fakeRequester) fields() []string {
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.field
	}
	return out
}

func rootField(t *testing.T, query string) string {
	t.Helper()
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	require.NoError(t, err)
	require.NotEmpty(t, doc.Operations)
	field, ok := doc.Operations[0].SelectionSet[0].(*ast.Field)
	require.True(t, ok)
	return field.Name
}

type fakeDownloader struct {
	calls int
	ids   []string
	dests []string
	total int64
	fn    download.MapFunc
	err   error
}

func (f *fakeDownloader) Download(_ context.Context, fn download.MapFunc, ids, dests []string, total int64) ([]download.File, error) {
	f.calls++
	f.ids, f.dests, f.total, f.fn = ids, dests, total, fn
	if f.err != nil {
		return nil, f.err
	}
	files := make([]download.File, len(ids))
	for i := range ids {
		files[i] = download.File{Path: dests[i], Content: []byte("content-" + ids[i])}
	}
	return files, nil
}

func node(id, name, user string) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        name,
		"user":        user,
		"description": "test description",
		"job_status":  map[string]any{"name": "Completed", "date": "2021-01-01"},
	}
}

func edges(nodes ...map[string]any) map[string]any {
	list := make([]any, len(nodes))
	for i, n := range nodes {
		list[i] = map[string]any{"node": n}
	}
	return map[string]any{"edges": list}
}

func TestGetJobByID(t *testing.T) {
	req := newFakeRequester(t)
	req.on("viterbiJob", func(vars map[string]any) (map[string]any, error) {
		assert.Equal(t, map[string]any{"id": "1"}, vars)
		return map[string]any{"viterbi_job": node("1", "test_name", "Test User")}, nil
	})
	c := New(req, &fakeDownloader{}, WithLogger(testLogger()))

	job, err := c.GetJobByID(context.Background(), "1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, models.JobID("1"), job.JobID)
	assert.Equal(t, "test_name", job.Name)
	assert.Equal(t, "Test User", job.User)
	assert.Equal(t, models.JobStatus{Status: "Completed", Date: "2021-01-01"}, job.Status)
}

func TestGetJobByIDNotFound(t *testing.T) {
	for name, resp := range map[string]map[string]any{
		"null":  {"viterbi_job": nil},
		"empty": {"viterbi_job": map[string]any{}},
	} {
		t.Run(name, func(t *testing.T) {
			req := newFakeRequester(t)
			req.on("viterbiJob", func(map[string]any) (map[string]any, error) { return resp, nil })
			c := New(req, &fakeDownloader{}, WithLogger(testLogger()))

			job, err := c.GetJobByID(context.Background(), "404")
			require.NoError(t, err)
			assert.Nil(t, job)
		})
	}
}

func TestGetPublicJobList(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		req := newFakeRequester(t)
		req.on("publicViterbiJobs", func(vars map[string]any) (map[string]any, error) {
			assert.Equal(t, map[string]any{"search": "", "time_range": "any", "first": 100}, vars)
			return map[string]any{"public_viterbi_jobs": edges(
				node("1", "a", "u1"),
				node("2", "b", "u2"),
			)}, nil
		})
		c := New(req, &fakeDownloader{}, WithLogger(testLogger()))

		jobs, err := c.GetPublicJobList(context.Background(), PublicJobListOptions{})
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, models.JobID("1"), jobs[0].JobID)
		assert.Equal(t, models.JobID("2"), jobs[1].JobID)
	})

	t.Run("options", func(t *testing.T) {
		req := newFakeRequester(t)
		req.on("publicViterbiJobs", func(vars map[string]any) (map[string]any, error) {
			assert.Equal(t, map[string]any{"search": "pulsar", "time_range": "week", "first": 5}, vars)
			return map[string]any{"public_viterbi_jobs": edges()}, nil
		})
		c := New(req, &fakeDownloader{}, WithLogger(testLogger()))

		jobs, err := c.GetPublicJobList(context.Background(), PublicJobListOptions{
			Search:    "pulsar",
			TimeRange: models.TimeRangeWeek,
			First:     5,
		})
		require.NoError(t, err)
		assert.NotNil(t, jobs)
		assert.Empty(t, jobs)
	})
}

func TestGetUserJobs(t *testing.T) {
	req := newFakeRequester(t)
	req.on("viterbiJobs", func(vars map[string]any) (map[string]any, error) {
		assert.Equal(t, map[string]any{"first": 100}, vars)
		return map[string]any{"viterbi_jobs": map[string]any{"edges": nil}}, nil
	})
	c := New(req, &fakeDownloader{}, WithLogger(testLogger()))

	jobs, err := c.GetUserJobs(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestGetFilesByJobID(t *testing.T) {
	req := newFakeRequester(t)
	req.on("viterbiResultFiles", func(vars map[string]any) (map[string]any, error) {
		assert.Equal(t, map[string]any{"job_id": "id1"}, vars)
		return map[string]any{"viterbi_result_files": map[string]any{"files": []any{
			map[string]any{"path": "data/dir", "is_dir": true, "file_size": json.Number("0"), "download_token": nil},
			map[string]any{"path": "data/dir/test1.png", "is_dir": false, "file_size": json.Number("1"), "download_token": "test_token_1"},
			map[string]any{"path": "data/dir/test2.png", "is_dir": false, "file_size": json.Number("2"), "download_token": "test_token_2"},
		}}}, nil
	})
	c := New(req, &fakeDownloader{}, WithLogger(testLogger()))

	files, err := c.GetFilesByJobID(context.Background(), "id1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, []string{"data/dir/test1.png", "data/dir/test2.png"}, files.Paths())
	assert.Equal(t, []string{"test_token_1", "test_token_2"}, files.Tokens())
	assert.Equal(t, int64(3), files.TotalBytes())
	for _, f := range files {
		assert.Equal(t, models.JobID("id1"), f.JobID())
	}
}

func TestGetDownloadIDs(t *testing.T) {
	req := newFakeRequester(t)
	req.on("generateFileDownloadIds", func(vars map[string]any) (map[string]any, error) {
		input := vars["input"].(map[string]any)
		tokens := input["download_tokens"].([]string)
		ids := make([]any, len(tokens))
		for i, tok := range tokens {
			ids[i] = "id-" + tok
		}
		return map[string]any{"generate_file_download_ids": map[string]any{"result": ids}}, nil
	})
	c := New(req, &fakeDownloader{}, WithLogger(testLogger()))

	ids, err := c.GetDownloadIDsFromTokens(context.Background(), "id1", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id-a", "id-b"}, ids)

	id, err := c.GetDownloadIDFromToken(context.Background(), "id1", "c")
	require.NoError(t, err)
	assert.Equal(t, "id-c", id)

	assert.Equal(t, map[string]any{"input": map[string]any{
		"job_id":          "id1",
		"download_tokens": []string{"c"},
	}}, req.requests[1].variables)
}

func TestGetDownloadIDsMismatch(t *testing.T) {
	req := newFakeRequester(t)
	req.on("generateFileDownloadIds", func(map[string]any) (map[string]any, error) {
		return map[string]any{"generate_file_download_ids": map[string]any{"result": []any{"only-one"}}}, nil
	})
	dl := &fakeDownloader{}
	c := New(req, dl, WithLogger(testLogger()))

	files := models.NewFileReferenceList(
		mustRef(t, "a.txt", 1, "t1", "id1"),
		mustRef(t, "b.txt", 1, "t2", "id1"),
	)
	_, err := c.GetFilesByReference(context.Background(), files)
	assert.ErrorIs(t, err, ErrDownloadIDMismatch)
	assert.Equal(t, 0, dl.calls)
}

// downloadRequester hands out "<job>-<token>" ids so that ordering is
// observable downstream.
func downloadRequester(t *testing.T) *fakeRequester {
	req := newFakeRequester(t)
	req.on("generateFileDownloadIds", func(vars map[string]any) (map[string]any, error) {
		input := vars["input"].(map[string]any)
		jobID := input["job_id"].(string)
		tokens := input["download_tokens"].([]string)
		ids := make([]any, len(tokens))
		for i, tok := range tokens {
			ids[i] = jobID + "-" + tok
		}
		return map[string]any{"generate_file_download_ids": map[string]any{"result": ids}}, nil
	})
	return req
}

func mixedJobFiles(t *testing.T) models.FileReferenceList {
	return models.NewFileReferenceList(
		mustRef(t, "data/dir/test1.png", 1, "test_token_1", "id1"),
		mustRef(t, "data/dir/test2.png", 2, "test_token_2", "id2"),
		mustRef(t, "result/dir/test1.txt", 3, "test_token_3", "id1"),
		mustRef(t, "result/dir/test2.txt", 4, "test_token_4", "id3"),
		mustRef(t, "test1.json", 5, "test_token_5", "id2"),
	)
}

func TestGetFilesByReference(t *testing.T) {
	req := downloadRequester(t)
	dl := &fakeDownloader{}
	c := New(req, dl, WithLogger(testLogger()))

	files, err := c.GetFilesByReference(context.Background(), mixedJobFiles(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"generateFileDownloadIds",
		"generateFileDownloadIds",
		"generateFileDownloadIds",
	}, req.fields())

	wantIDs := []string{
		"id1-test_token_1", "id1-test_token_3",
		"id2-test_token_2", "id2-test_token_5",
		"id3-test_token_4",
	}
	wantPaths := []string{
		"data/dir/test1.png", "result/dir/test1.txt",
		"data/dir/test2.png", "test1.json",
		"result/dir/test2.txt",
	}
	assert.Equal(t, 1, dl.calls)
	assert.Equal(t, wantIDs, dl.ids)
	assert.Equal(t, wantPaths, dl.dests)
	assert.Equal(t, int64(15), dl.total)

	require.Len(t, files, 5)
	for i, f := range files {
		assert.Equal(t, wantPaths[i], f.Path)
		assert.Equal(t, "content-"+wantIDs[i], string(f.Content))
	}
}

func TestSaveFilesByReference(t *testing.T) {
	tests := []struct {
		name     string
		preserve bool
		want     []string
	}{
		{
			name:     "preserve structure",
			preserve: true,
			want: []string{
				filepath.Join("out", "data", "dir", "test1.png"),
				filepath.Join("out", "result", "dir", "test1.txt"),
				filepath.Join("out", "data", "dir", "test2.png"),
				filepath.Join("out", "test1.json"),
				filepath.Join("out", "result", "dir", "test2.txt"),
			},
		},
		{
			name:     "flatten",
			preserve: false,
			want: []string{
				filepath.Join("out", "test1.png"),
				filepath.Join("out", "test1.txt"),
				filepath.Join("out", "test2.png"),
				filepath.Join("out", "test1.json"),
				filepath.Join("out", "test2.txt"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dl := &fakeDownloader{}
			c := New(downloadRequester(t), dl, WithLogger(testLogger()))

			err := c.SaveFilesByReference(context.Background(), mixedJobFiles(t), "out", tt.preserve)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dl.dests)
			assert.Len(t, dl.ids, 5)
		})
	}
}

func TestDownloadErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	dl := &fakeDownloader{err: boom}
	c := New(downloadRequester(t), dl, WithLogger(testLogger()))

	err := c.SaveFilesByReference(context.Background(), mixedJobFiles(t), t.TempDir(), true)
	assert.ErrorIs(t, err, boom)
}

func TestStartViterbiJob(t *testing.T) {
	req := newFakeRequester(t)
	req.on("newViterbiJob", func(vars map[string]any) (map[string]any, error) {
		input := vars["input"].(map[string]any)
		assert.Equal(t, map[string]any{
			"name":        "test_job",
			"description": "a test",
			"private":     true,
		}, input["start"])
		assert.Equal(t, "real", input["data"].(map[string]any)["data_choice"])
		assert.Equal(t, 188.0, input["data_parameters"].(map[string]any)["start_frequency_band"])
		assert.Equal(t, 3.0, input["search_parameters"].(map[string]any)["search_a0_bins"])
		return map[string]any{"new_viterbi_job": map[string]any{"result": map[string]any{"job_id": "42"}}}, nil
	})
	req.on("viterbiJob", func(vars map[string]any) (map[string]any, error) {
		assert.Equal(t, "42", vars["id"])
		return map[string]any{"viterbi_job": node("42", "test_job", "Test User")}, nil
	})
	c := New(req, &fakeDownloader{}, WithLogger(testLogger()))

	job, err := c.StartViterbiJob(context.Background(), StartJobInput{
		Name:             "test_job",
		Description:      "a test",
		Private:          true,
		Data:             DataInput{DataChoice: "real", SourceDataset: "o1"},
		DataParameters:   DataParameters{StartFrequencyBand: 188},
		SearchParameters: SearchParameters{SearchA0Bins: 3},
	})
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, models.JobID("42"), job.JobID)
	assert.Equal(t, []string{"newViterbiJob", "viterbiJob"}, req.fields())
}

func TestRequestErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	req := newFakeRequester(t)
	req.on("viterbiJobs", func(map[string]any) (map[string]any, error) { return nil, boom })
	c := New(req, &fakeDownloader{}, WithLogger(testLogger()))

	_, err := c.GetUserJobs(context.Background(), 10)
	assert.ErrorIs(t, err, boom)
}

func TestJobListUnexpectedEdges(t *testing.T) {
	for name, edges := range map[string]any{
		"string": "oops",
		"map":    map[string]any{"node": node("1", "a", "u")},
	} {
		t.Run(name, func(t *testing.T) {
			req := newFakeRequester(t)
			req.on("viterbiJobs", func(map[string]any) (map[string]any, error) {
				return map[string]any{"viterbi_jobs": map[string]any{"edges": edges}}, nil
			})
			c := New(req, &fakeDownloader{}, WithLogger(testLogger()))

			jobs, err := c.GetUserJobs(context.Background(), 0)
			assert.ErrorIs(t, err, ErrUnexpectedResponse)
			assert.Nil(t, jobs)
		})
	}
}

func TestUnexpectedResponse(t *testing.T) {
	req := newFakeRequester(t)
	req.on("viterbiResultFiles", func(map[string]any) (map[string]any, error) {
		return map[string]any{"something_else": true}, nil
	})
	c := New(req, &fakeDownloader{}, WithLogger(testLogger()))

	_, err := c.GetFilesByJobID(context.Background(), "id1")
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

// TestEndToEnd runs the client against fake API and file servers.
func TestEndToEnd(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "content-"+r.URL.Query().Get("fileId"))
	}))
	t.Cleanup(files.Close)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "JWT my_token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(body.Query, "viterbiResultFiles"):
			assert.Equal(t, "7", body.Variables["jobId"])
			_, _ = io.WriteString(w, `{"data": {"viterbiResultFiles": {"files": [
				{"path": "results", "isDir": true, "fileSize": 0, "downloadToken": null},
				{"path": "results/a_candidates.txt", "isDir": false, "fileSize": 9, "downloadToken": "tok-a"},
				{"path": "config.ini", "isDir": false, "fileSize": 9, "downloadToken": "tok-b"}
			]}}}`)
		case strings.Contains(body.Query, "generateFileDownloadIds"):
			input := body.Variables["input"].(map[string]any)
			assert.Equal(t, "7", input["jobId"])
			tokens := input["downloadTokens"].([]any)
			ids := make([]string, len(tokens))
			for i, tok := range tokens {
				ids[i] = "dl-" + tok.(string)
			}
			resp, err := json.Marshal(map[string]any{"data": map[string]any{
				"generateFileDownloadIds": map[string]any{"result": ids},
			}})
			require.NoError(t, err)
			_, _ = w.Write(resp)
		default:
			t.Errorf("unexpected query: %s", body.Query)
		}
	}))
	t.Cleanup(api.Close)

	gql := client.New("my_token", api.URL, client.WithLogger(testLogger()))
	dl := download.New(files.URL+"/?fileId=", download.WithLogger(testLogger()))
	c := New(gql, dl, WithLogger(testLogger()))

	all, err := c.GetFilesByJobID(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, all, 2)

	job, err := NewViterbiJob(c, map[string]any{"job_id": "7", "name": "e2e"})
	require.NoError(t, err)
	candidates, err := job.CandidateFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"results/a_candidates.txt"}, candidates.Paths())

	root := t.TempDir()
	require.NoError(t, c.SaveFilesByReference(context.Background(), all, root, true))

	got, err := os.ReadFile(filepath.Join(root, "results", "a_candidates.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content-dl-tok-a", string(got))
	got, err = os.ReadFile(filepath.Join(root, "config.ini"))
	require.NoError(t, err)
	assert.Equal(t, "content-dl-tok-b", string(got))
}
