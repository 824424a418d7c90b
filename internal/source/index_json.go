package source

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// jsonIndexEntry is the wire schema of one JSON file-index record.
type jsonIndexEntry struct {
	Name         string `json:"name"`
	Size         *int64 `json:"size"`
	LastModified string `json:"last_modified"`
}

// parseJSONIndex decodes a JSON file index. The schema is validated strictly:
// a record without a name, or with an unparseable timestamp, fails the whole
// listing instead of being coerced.
func parseJSONIndex(data []byte) ([]*RemoteEntry, error) {
	var raw []jsonIndexEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid json index: %w", err)
	}

	entries := make([]*RemoteEntry, 0, len(raw))
	for i, rec := range raw {
		if rec.Name == "" {
			return nil, fmt.Errorf("invalid json index: entry %d has no name", i)
		}

		entry := &RemoteEntry{Name: rec.Name, Size: -1}
		if rec.Size != nil {
			if *rec.Size < 0 {
				return nil, fmt.Errorf("invalid json index: entry %q has negative size", rec.Name)
			}
			entry.Size = *rec.Size
		}
		if rec.LastModified != "" {
			ts, err := time.Parse(time.RFC3339, rec.LastModified)
			if err != nil {
				return nil, fmt.Errorf("invalid json index: entry %q: %w", rec.Name, err)
			}
			entry.LastModified = ts.UTC()
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
