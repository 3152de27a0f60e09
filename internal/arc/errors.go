package arc

import "fmt"

// StructureError means the input does not follow the arc convention.
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("unrecognized arc structure: %s", e.Reason)
}

// ChapterNotFoundError means no block matches the requested chapter id.
type ChapterNotFoundError struct {
	ChapterID string
}

func (e *ChapterNotFoundError) Error() string {
	return fmt.Sprintf("chapter %q not found", e.ChapterID)
}
