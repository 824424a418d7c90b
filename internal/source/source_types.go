package source

import "time"

// RemoteEntry is a single file advertised by the remote index.
type RemoteEntry struct {
	Name         string
	Size         int64     // -1 when the index does not expose a size
	LastModified time.Time // zero when the index does not expose one
}

// HasMarker reports whether the index exposed a modification marker for the entry.
func (e *RemoteEntry) HasMarker() bool {
	return !e.LastModified.IsZero()
}

// HasSize reports whether the index exposed a byte size for the entry.
func (e *RemoteEntry) HasSize() bool {
	return e.Size >= 0
}
