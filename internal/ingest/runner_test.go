package ingest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexPage lists two files in the IIS style the mirror source understands.
const indexPage = `<html><body><pre>
<A HREF="/pub/">[To Parent Directory]</A><br><br>
 2/11/2024  8:30 AM            5 <A HREF="/pub/pr/pr.class">pr.class</A><br>
 2/11/2024  8:31 AM            6 <A HREF="/pub/pr/pr.series">pr.series</A><br>
</pre></body></html>`

func newSourceServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/pub/pr/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pub/pr/":
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, indexPage)
		case "/pub/pr/pr.class":
			io.WriteString(w, "class")
		case "/pub/pr/pr.series":
			io.WriteString(w, "series")
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/api/population", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, populationPayload)
	})
	return httptest.NewServer(mux)
}

func TestRunner_ExecutesAllJobs(t *testing.T) {
	srv := newSourceServer()
	defer srv.Close()

	blsDir := filepath.Join(t.TempDir(), "bls_data")
	popDir := filepath.Join(t.TempDir(), "population_data")

	manifest := &Manifest{
		Contact: "data-team@example.com",
		Jobs: []*Job{
			{Name: "bls", Type: JobMirror, Source: srv.URL + "/pub/pr/", Dest: blsDir},
			{Name: "population", Type: JobDataset, Source: srv.URL + "/api/population", Dest: popDir, File: "population_data.json"},
		},
	}
	require.NoError(t, manifest.Validate())

	results := NewRunner(manifest, nil, 2).Run(context.Background())
	require.Len(t, results, 2)

	for _, res := range results {
		assert.True(t, res.Clean(), "job %q: %v", res.Job.Name, res.Err)
	}

	require.NotNil(t, results[0].Sync)
	assert.Equal(t, 2, results[0].Sync.Added)

	for _, name := range []string{"pr.class", "pr.series"} {
		_, err := os.Stat(filepath.Join(blsDir, name))
		assert.NoError(t, err)
	}
	_, err := os.Stat(filepath.Join(popDir, "population_data.json"))
	assert.NoError(t, err)
}

func TestRunner_OneFailingJobDoesNotStopOthers(t *testing.T) {
	srv := newSourceServer()
	defer srv.Close()

	manifest := &Manifest{
		Jobs: []*Job{
			{Name: "broken", Type: JobMirror, Source: srv.URL + "/nowhere/", Dest: filepath.Join(t.TempDir(), "a")},
			{Name: "good", Type: JobDataset, Source: srv.URL + "/api/population", Dest: filepath.Join(t.TempDir(), "b"), File: "population_data.json"},
		},
	}
	require.NoError(t, manifest.Validate())

	results := NewRunner(manifest, nil, 1).Run(context.Background())
	require.Len(t, results, 2)

	assert.False(t, results[0].Clean())
	assert.Error(t, results[0].Err)
	assert.True(t, results[1].Clean())
}
