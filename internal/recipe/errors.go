package recipe

import "fmt"

// MalformedRecipeError the snapshot cannot be decoded into the expected
// shape. Section names the part of the recipe that failed so upstream
// generation issues can be diagnosed.
type MalformedRecipeError struct {
	Section string
	Err     error
}

func (e *MalformedRecipeError) Error() string {
	return fmt.Sprintf("malformed recipe: %s: %v", e.Section, e.Err)
}

func (e *MalformedRecipeError) Unwrap() error { return e.Err }

// SerializationError the reduced snapshot cannot be rendered. Only expected
// on internal invariant violations, never for a recipe built by the reducer.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize recipe: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
