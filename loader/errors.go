package loader

import (
	"fmt"
)

// LoadError reports a catalog file that could not be opened or read.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// MalformedRecordError reports input whose fields disagree with the counts
// it declares. Token is the 1-based position of the offending token.
type MalformedRecordError struct {
	Token  int
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed catalog at token %d (%s): %s", e.Token, e.Field, e.Reason)
}
