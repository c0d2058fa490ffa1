package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors or record outcomes.
//
//   - ErrNotFound: row does not exist
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrInvalidState: the row is not in the state the conditional update required
//   - ErrUnavailable: backing service temporarily unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
