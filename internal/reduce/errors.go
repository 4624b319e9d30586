package reduce

import "fmt"

// InternalConsistencyError the reduced snapshot would contain a dependency
// reference to a pruned entity. This is a defect in the closure computation,
// never a user error, and the snapshot is not emitted.
type InternalConsistencyError struct {
	Reference string
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency violation in reduced recipe: %s", e.Reference)
}
