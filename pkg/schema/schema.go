// Package schema evaluates declarative payload shapes against decoded JSON.
// A Schema is a tagged description of fields (kind, required, length and
// format constraints); Validate is a pure function over it, without
// reflection or struct tags.
package schema

import (
	"fmt"
	"regexp"
)

// Kind tags the expected JSON type of a field.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindEnum   Kind = "enum"
	KindArray  Kind = "array"
)

// Field describes one payload field and its constraints.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// MinLen/MaxLen bound string length in bytes, or element count for arrays.
	// Zero means unconstrained.
	MinLen int
	MaxLen int
	// Format names a builtin string format check. Supported: "email".
	Format string
	// Enum lists the admissible values for KindEnum fields.
	Enum []string
	// Elem describes array elements for KindArray fields.
	Elem *Field
}

// Schema is an ordered field list; violations are reported in declaration
// order, first failure wins.
type Schema struct {
	Fields []Field
}

// ViolationError describes the first violated constraint with a message
// suitable for returning to the client verbatim.
type ViolationError struct {
	Field   string
	Message string
}

func (e *ViolationError) Error() string { return e.Message }

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks payload against s and returns a copy containing only the
// declared fields. Unknown fields are dropped, never an error. The returned
// error, when non-nil, is always a *ViolationError.
func Validate(s Schema, payload map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))

	for _, f := range s.Fields {
		value, present := payload[f.Name]
		if !present || value == nil {
			if f.Required {
				return nil, &ViolationError{Field: f.Name, Message: fmt.Sprintf("Field %q is required.", f.Name)}
			}
			continue
		}

		checked, err := checkField(f, value)
		if err != nil {
			return nil, err
		}
		out[f.Name] = checked
	}

	return out, nil
}

func checkField(f Field, value any) (any, error) {
	switch f.Kind {
	case KindString:
		return checkString(f, value)
	case KindNumber:
		n, ok := value.(float64)
		if !ok {
			return nil, violation(f, "must be a number")
		}
		return n, nil
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, violation(f, "must be a boolean")
		}
		return b, nil
	case KindEnum:
		s, ok := value.(string)
		if !ok {
			return nil, violation(f, "must be a string")
		}
		for _, allowed := range f.Enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, violation(f, fmt.Sprintf("must be one of %v", f.Enum))
	case KindArray:
		return checkArray(f, value)
	default:
		return nil, violation(f, fmt.Sprintf("has unsupported kind %q", f.Kind))
	}
}

func checkString(f Field, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, violation(f, "must be a string")
	}
	if f.MinLen > 0 && len(s) < f.MinLen {
		return nil, violation(f, fmt.Sprintf("must be at least %d characters", f.MinLen))
	}
	if f.MaxLen > 0 && len(s) > f.MaxLen {
		return nil, violation(f, fmt.Sprintf("must be at most %d characters", f.MaxLen))
	}
	if f.Format == "email" && !emailPattern.MatchString(s) {
		return nil, violation(f, "must be a valid email address")
	}
	return s, nil
}

func checkArray(f Field, value any) (any, error) {
	arr, ok := value.([]any)
	if !ok {
		return nil, violation(f, "must be an array")
	}
	if f.MinLen > 0 && len(arr) < f.MinLen {
		return nil, violation(f, fmt.Sprintf("must contain at least %d items", f.MinLen))
	}
	if f.MaxLen > 0 && len(arr) > f.MaxLen {
		return nil, violation(f, fmt.Sprintf("must contain at most %d items", f.MaxLen))
	}
	if f.Elem == nil {
		return arr, nil
	}

	out := make([]any, 0, len(arr))
	for i, item := range arr {
		elem := *f.Elem
		if elem.Name == "" {
			elem.Name = fmt.Sprintf("%s[%d]", f.Name, i)
		}
		checked, err := checkField(elem, item)
		if err != nil {
			return nil, err
		}
		out = append(out, checked)
	}
	return out, nil
}

func violation(f Field, constraint string) *ViolationError {
	return &ViolationError{Field: f.Name, Message: fmt.Sprintf("Field %q %s.", f.Name, constraint)}
}
