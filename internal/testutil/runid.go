package testutil

// FixedRunID returns the same run ID every time.
//
// Use it where a scheduler or store would otherwise mint a UUIDv7, so golden
// output and stored rows are byte-identical across runs. An empty id yields
// "test-run-default".
type FixedRunID string

// Generate returns the fixed ID.
func (id FixedRunID) Generate() string {
	if id == "" {
		return "test-run-default"
	}
	return string(id)
}
