package notedb

import "errors"

// ErrDataDir indicates the root data directory could not be resolved.
// Load and save fail as a whole on this error; nothing is partially
// applied.
var ErrDataDir = errors.New("data directory unresolved")

// Error carries entity context for failures isolated to one document.
//
// Use [errors.As] to extract the fields and [errors.Is] to match the
// underlying cause.
type Error struct {
	// ID is the entity id when known.
	ID string

	// Path is the document path relative to the data directory.
	Path string

	// Err is the underlying cause.
	Err error
}

// Error formats as "<cause> (entity=X path=Y)".
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}

	suffix := ""
	if e.ID != "" {
		suffix = "entity=" + e.ID
	}

	if e.Path != "" {
		if suffix != "" {
			suffix += " "
		}

		suffix += "path=" + e.Path
	}

	if suffix == "" {
		return msg
	}

	if msg == "" {
		return "(" + suffix + ")"
	}

	return msg + " (" + suffix + ")"
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

func withEntity(err error, id, path string) error {
	if err == nil {
		return nil
	}

	return &Error{ID: id, Path: path, Err: err}
}
