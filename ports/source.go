package ports

import (
	"context"

	"tabclean/domain/records"
)

// RecordSource loads a complete record set
type RecordSource interface {
	// Name identifies the source in logs and reports
	Name() string
	Load(ctx context.Context) (*records.RecordSet, error)
}

// RowStreamer yields rows one at a time for sources too large to materialize.
// The schema is known before the first row is sent; out is closed when the stream ends.
type RowStreamer interface {
	Schema(ctx context.Context) (*records.Schema, error)
	ReadRows(ctx context.Context, out chan<- records.Row) error
}

// RecordSink persists a named record set (e.g. "train" or "test")
type RecordSink interface {
	Write(ctx context.Context, name string, rs *records.RecordSet) error
}
