package doctree

import "fmt"

// StructureError reports layout input that cannot be ordered into a
// consistent tree. It aborts the pipeline; there is no local recovery.
type StructureError struct {
	BlockIndex int
	Page       int
	Reason     string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("inconsistent document structure at block %d (page %d): %s",
		e.BlockIndex, e.Page, e.Reason)
}
