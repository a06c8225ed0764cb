// internal/domain/transformation/errors.go
package transformation

import (
	"errors"
	"fmt"
)

// Not-found sentinels; handlers map these to 404s
var (
	ErrBundleNotFound = errors.New("bundle not found")
	ErrRepackNotFound = errors.New("repack not found")
	ErrBatchNotFound  = errors.New("rolls batch not found")
)

// InvalidStateError is returned when a rolls batch operation is attempted in
// a lifecycle state that does not allow it
type InvalidStateError struct {
	BatchID uint
	Status  RollsStatus
	Action  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s rolls batch %d in status '%s'", e.Action, e.BatchID, e.Status)
}
