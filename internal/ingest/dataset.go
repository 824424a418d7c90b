package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/lakemirror/lakemirror/internal/source"
	"github.com/lakemirror/lakemirror/internal/store"
)

const datasetTimeout = 2 * time.Minute

// DatasetConfig describes a single-file dataset ingest: one records API
// endpoint fetched as a whole and written to the destination under a stable
// file name.
type DatasetConfig struct {
	URL     string
	Contact string
	File    string
}

// DatasetFetcher fetches a JSON dataset from an API endpoint and writes it
// through a destination store.
type DatasetFetcher struct {
	http *req.Client
	url  string
	file string
}

func NewDatasetFetcher(cfg *DatasetConfig) (*DatasetFetcher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ingest: dataset url missing")
	}
	if cfg.File == "" {
		return nil, fmt.Errorf("ingest: dataset file name missing")
	}

	client := req.C().
		SetTimeout(datasetTimeout).
		SetCommonRetryCount(2).
		SetCommonRetryFixedInterval(1 * time.Second).
		SetUserAgent(source.UserAgent(cfg.Contact))

	return &DatasetFetcher{http: client, url: cfg.URL, file: cfg.File}, nil
}

// Fetch downloads the dataset and writes it to the store. The payload must be
// valid JSON; structural garbage fails with ErrSourceUnavailable instead of
// being stored.
func (f *DatasetFetcher) Fetch(ctx context.Context, dst store.Store) error {
	resp, err := f.http.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", source.ErrSourceUnavailable, f.url, err)
	}

	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%w: %s: %s", source.ErrSourceRejected, f.url, resp.Status)
	}
	if resp.IsErrorState() {
		return fmt.Errorf("%w: %s: %s", source.ErrSourceUnavailable, f.url, resp.Status)
	}

	body := resp.Bytes()
	if !json.Valid(body) {
		return fmt.Errorf("%w: %s: payload is not valid json", source.ErrSourceUnavailable, f.url)
	}

	var marker time.Time
	if lm := resp.GetHeader("Last-Modified"); lm != "" {
		if ts, err := http.ParseTime(lm); err == nil {
			marker = ts.UTC()
		}
	}

	err = dst.Put(ctx, &store.PutInput{
		Name:           f.file,
		Body:           bytes.NewReader(body),
		Size:           int64(len(body)),
		SourceModified: marker,
	})
	if err != nil {
		return fmt.Errorf("ingest: dataset %q: %w", f.file, err)
	}

	slog.Info("dataset saved", "file", f.file, "size", humanize.Bytes(uint64(len(body))))
	return nil
}
