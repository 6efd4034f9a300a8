package model

import "fmt"

// MissingFileError reports a required case file that does not exist.
type MissingFileError struct {
	Role string
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing %s file %s", e.Role, e.Path)
}

// NoBaseEventError reports a model without the seed event whose timing
// every generated event reuses.
type NoBaseEventError struct {
	Model string
	File  string
}

func (e *NoBaseEventError) Error() string {
	return fmt.Sprintf("%s: no base event in %s", e.Model, e.File)
}
