// Package sink abstracts the spreadsheet the confirmed records land in.
package sink

import "context"

// RowSink appends one ordered row of strings durably. Implementations
// must report failure honestly: a failed append is never treated as
// written, and callers keep the draft so the user can retry without
// re-keying anything.
type RowSink interface {
	Append(ctx context.Context, row []string) error
}
