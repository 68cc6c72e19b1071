package graft

import "context"

// PageFetch is one page returned by a Fetcher call.
type PageFetch struct {
	Offset PageOffset
	Data   []byte // exactly PageSize bytes
}

// Fetcher is the remote pagestore client the core consumes from (§6
// "Remote pagestore client"): given a volume, the remote LSN a Pending
// marker was recorded at, and the set of offsets to resolve, it returns
// the page bytes for as many of those offsets as it can. Callers supply
// a concrete implementation backed by the out-of-scope HTTP pagestore
// client; this module never implements one itself.
type Fetcher interface {
	FetchPages(ctx context.Context, vid VolumeId, remoteLSN LSN, offsets []PageOffset) ([]PageFetch, error)
}
