package prime

import "github.com/dsnproject/dsn-core/internal/dsnerr"

// ErrIllFormed is the sentinel wrapped by every constructor rejection
// (spec.md §7 IllFormedTerm). Callers use errors.Is(err, prime.ErrIllFormed).
var ErrIllFormed = dsnerr.ErrIllFormedTerm

// ErrDeserialization is the sentinel wrapped when wire Term JSON cannot be
// decoded (spec.md §7 DeserializationError).
var ErrDeserialization = dsnerr.ErrDeserialization
