package migrate

import (
	"errors"
	"fmt"
)

// ErrNoBackup indicates the backup step failed and the operator did not
// override; the migration never progresses past Prepared in that case.
var ErrNoBackup = errors.New("backup failed and no override given")

// AbortedError is returned when a migration reaches the terminal Aborted
// state. It always carries the backup location so the operator can restore
// manually; the manager never restores automatically.
type AbortedError struct {
	FailedAt   State
	BackupPath string
	Err        error
}

func (e AbortedError) Error() string {
	return fmt.Sprintf("migration aborted at %s (backup preserved at %s): %v",
		e.FailedAt, e.BackupPath, e.Err)
}

func (e AbortedError) Unwrap() error {
	return e.Err
}

// IsAborted reports whether err is a migration abort.
func IsAborted(err error) bool {
	var ae AbortedError
	return errors.As(err, &ae)
}
