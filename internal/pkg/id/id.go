package id

import "github.com/oklog/ulid/v2"

// New returns a ULID that correlates the log lines of one trigger
// invocation. IDs sort by creation time.
func New() string {
	return ulid.Make().String()
}
