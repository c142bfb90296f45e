package snapshot

import "codeberg.org/mutker/metalsnapd/internal/errors"

const (
	// Mapping errors
	ErrIncompleteQuote = errors.ErrorCode("snapshot_incomplete_quote")

	// Storage errors
	ErrInvalidDBPath = errors.ErrorCode("snapshot_invalid_db_path")
	ErrStorageInit   = errors.ErrorCode("snapshot_storage_init_failed")
	ErrStorageAccess = errors.ErrorCode("snapshot_storage_access_failed")
	ErrStorageClose  = errors.ErrorCode("snapshot_storage_close_failed")

	// ErrDuplicate marks the benign case: a row for this (date, slot)
	// already exists, another run has captured the slot.
	ErrDuplicate = errors.ErrorCode("snapshot_duplicate")
)

// IsDuplicate reports whether err is a uniqueness conflict on the
// snapshot insert.
func IsDuplicate(err error) bool {
	return errors.HasCode(err, ErrDuplicate)
}
