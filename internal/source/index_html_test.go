package source

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iisIndexPage = `<html><head><title>download.example.gov - /pub/time.series/pr/</title></head>
<body><H1>download.example.gov - /pub/time.series/pr/</H1><hr>
<pre><A HREF="/pub/time.series/">[To Parent Directory]</A><br><br>
 2/11/2024  8:30 AM         4096 <A HREF="/pub/time.series/pr/pr.class">pr.class</A><br>
 3/5/2024  12:00 PM          123 <A HREF="/pub/time.series/pr/pr.data.0.Current">pr.data.0.Current</A><br>
 1/2/2024   9:05 AM        &lt;dir&gt; <A HREF="/pub/time.series/pr/archive/">archive</A><br>
<A HREF="?C=N;O=D">Name</A><br>
</pre><hr></body></html>`

const apacheIndexPage = `<html><body>
<h1>Index of /datasets</h1>
<pre><a href="../">../</a>
<a href="data.csv">data.csv</a>                01-Feb-2024 09:15     2048
<a href="notes.txt">notes.txt</a>              02-Feb-2024 10:00     1.5K
</pre></body></html>`

func TestParseHTMLIndex_IISStyle(t *testing.T) {
	entries, err := parseHTMLIndex(strings.NewReader(iisIndexPage))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "pr.class", entries[0].Name)
	assert.Equal(t, int64(4096), entries[0].Size)
	assert.Equal(t, time.Date(2024, 2, 11, 8, 30, 0, 0, time.UTC), entries[0].LastModified)

	assert.Equal(t, "pr.data.0.Current", entries[1].Name)
	assert.Equal(t, int64(123), entries[1].Size)
	assert.Equal(t, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), entries[1].LastModified)
}

func TestParseHTMLIndex_ApacheStyle(t *testing.T) {
	entries, err := parseHTMLIndex(strings.NewReader(apacheIndexPage))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "data.csv", entries[0].Name)
	assert.Equal(t, int64(2048), entries[0].Size)
	assert.Equal(t, time.Date(2024, 2, 1, 9, 15, 0, 0, time.UTC), entries[0].LastModified)

	// rounded sizes ("1.5K") are not usable as identity, only the time is kept
	assert.Equal(t, "notes.txt", entries[1].Name)
	assert.Equal(t, int64(-1), entries[1].Size)
	assert.Equal(t, time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC), entries[1].LastModified)
}

func TestParseHTMLIndex_NoMetadataFallsBackToUnknown(t *testing.T) {
	page := `<html><body><ul><li><a href="report.pdf">report.pdf</a></li></ul></body></html>`

	entries, err := parseHTMLIndex(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.pdf", entries[0].Name)
	assert.False(t, entries[0].HasSize())
	assert.False(t, entries[0].HasMarker())
}

func TestIndexFileName(t *testing.T) {
	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"/pub/time.series/pr/pr.class", "pr.class", true},
		{"pr.data.0.Current", "pr.data.0.Current", true},
		{"file%20name.csv", "file name.csv", true},
		{"/pub/time.series/", "", false}, // directory
		{"../", "", false},
		{"?C=N;O=D", "", false}, // sort link
		{"#top", "", false},
		{"", "", false},
		{"archive", "", false}, // no extension, treated as directory
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			name, ok := indexFileName(tt.href)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, name)
			}
		})
	}
}
