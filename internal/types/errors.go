package types

import "fmt"

// Kind is a closed taxonomy of error kinds, independent of display string.
// Every error silo returns across package boundaries carries one of these
// so callers can dispatch with errors.As instead of string matching.
type Kind string

const (
	KindIO                     Kind = "io"
	KindDatabase               Kind = "database"
	KindDatabaseNotFound       Kind = "database_not_found"
	KindInit                   Kind = "init"
	KindConflict               Kind = "conflict"
	KindReferentialIntegrity   Kind = "referential_integrity"
	KindNotFound               Kind = "not_found"
	KindFileConflict           Kind = "file_conflict"
	KindOrphanConflict         Kind = "orphan_conflict"
	KindDowngradeRefused       Kind = "downgrade_refused"
	KindDependenciesWouldBreak Kind = "dependencies_would_break"
	KindNotReversible          Kind = "not_reversible"
	KindDepthExceeded          Kind = "depth_exceeded"
	KindVersionParse           Kind = "version_parse"
	KindDownload               Kind = "download"
	KindChecksumMismatch       Kind = "checksum_mismatch"
	KindParse                  Kind = "parse"
	KindAlreadyInstalled       Kind = "already_installed"
)

// Error is a typed error carrying one of the Kind values above plus an
// optional wrapped cause, following the teacher's fmt.Errorf("...: %w", err)
// wrapping idiom but keeping the Kind machine-checkable.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, &Error{Kind: types.KindConflict}) match by kind
// alone, ignoring Message and Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func NewIOError(msg string, cause error) *Error       { return newErr(KindIO, msg, cause) }
func NewDatabaseError(msg string, cause error) *Error { return newErr(KindDatabase, msg, cause) }
func NewDatabaseNotFoundError(path string) *Error {
	return newErr(KindDatabaseNotFound, "database not found at path: "+path, nil)
}
func NewInitError(msg string, cause error) *Error { return newErr(KindInit, msg, cause) }
func NewConflictError(msg string) *Error { return newErr(KindConflict, msg, nil) }
func NewReferentialIntegrityError(msg string) *Error {
	return newErr(KindReferentialIntegrity, msg, nil)
}
func NewNotFoundError(msg string) *Error { return newErr(KindNotFound, msg, nil) }
func NewFileConflictError(path string) *Error {
	return newErr(KindFileConflict, "path already owned by a different trove: "+path, nil)
}
func NewOrphanConflictError(path string) *Error {
	return newErr(KindOrphanConflict, "path present on disk but not tracked by the catalog: "+path, nil)
}
func NewDowngradeRefusedError(name, installed, requested string) *Error {
	return newErr(KindDowngradeRefused, fmt.Sprintf("refusing to downgrade %s from %s to %s", name, installed, requested), nil)
}
func NewDependenciesWouldBreakError(name string, dependents []string) *Error {
	return newErr(KindDependenciesWouldBreak, fmt.Sprintf("removing %s would break: %v", name, dependents), nil)
}
func NewNotReversibleError(msg string) *Error { return newErr(KindNotReversible, msg, nil) }
func NewDepthExceededError(name string, depth int) *Error {
	return newErr(KindDepthExceeded, fmt.Sprintf("dependency depth exceeded resolving %s (depth %d)", name, depth), nil)
}
func NewParseError(msg string) *Error { return newErr(KindParse, msg, nil) }
func NewVersionParseError(s string) *Error {
	return newErr(KindVersionParse, "unparseable version string: "+s, nil)
}
func NewDownloadError(msg string, cause error) *Error { return newErr(KindDownload, msg, cause) }
func NewChecksumMismatchError(expected, actual string) *Error {
	return newErr(KindChecksumMismatch, fmt.Sprintf("checksum mismatch: expected %s, got %s", expected, actual), nil)
}
func NewAlreadyInstalledError(name, version, arch string) *Error {
	return newErr(KindAlreadyInstalled, fmt.Sprintf("%s-%s (%s) is already installed", name, version, arch), nil)
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if te, ok := err.(*Error); ok {
			e = te
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
