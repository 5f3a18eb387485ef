package domain

// Constructor ties a Schema to the field-assignment constructor of T. It is
// the single path through which external keyword data becomes a T.
type Constructor[T any] struct {
	Schema Schema
	Build  func(fields map[string]any) *T
}

// Validate runs entry through the schema. On rejection it returns (nil, nil),
// or the *ValidationError when raiseInvalid is set. Errors other than a
// ValidationError are always returned.
func (c Constructor[T]) Validate(entry map[string]any, raiseInvalid bool) (map[string]any, error) {
	validated, err := c.Schema.Deserialize(entry)
	if err != nil {
		if _, ok := AsValidationError(err); ok && !raiseInvalid {
			return nil, nil
		}
		return nil, err
	}
	return validated, nil
}

// Create validates entry and builds a T from the validated fields. It returns
// (nil, nil) when entry is invalid and raiseInvalid is false.
func (c Constructor[T]) Create(entry map[string]any, raiseInvalid bool) (*T, error) {
	validated, err := c.Validate(entry, raiseInvalid)
	if err != nil || validated == nil {
		return nil, err
	}
	return c.Build(validated), nil
}

// CreateAll builds every valid entry and skips the invalid ones.
func (c Constructor[T]) CreateAll(entries []map[string]any) ([]*T, error) {
	out := make([]*T, 0, len(entries))
	for _, e := range entries {
		v, err := c.Create(e, false)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}
