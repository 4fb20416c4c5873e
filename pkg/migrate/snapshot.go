package migrate

// Snapshot is the scoped backup handle acquired before any destructive
// change. On every exit path it ends either committed-and-released or
// preserved-on-abort; the underlying file is never deleted automatically.
type Snapshot struct {
	// Path is the backup location on disk.
	Path string

	// Counts holds the per-table row counts at backup time, used by the
	// verify step's cross-check.
	Counts map[string]int

	retained bool
}

// NewSnapshot creates a retained snapshot handle.
func NewSnapshot(path string, counts map[string]int) *Snapshot {
	return &Snapshot{
		Path:     path,
		Counts:   counts,
		retained: true,
	}
}

// Release drops the retention pointer after a successful commit. The
// backup file itself stays on disk for the operator.
func (s *Snapshot) Release() {
	s.retained = false
}

// Retained reports whether the snapshot is still held for restore.
func (s *Snapshot) Retained() bool {
	return s.retained
}
