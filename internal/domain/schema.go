package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
)

// Issue codes reported by FieldSchema.
const (
	CodeRequired    = "required"
	CodeInvalidType = "invalid_type"
)

// Issue is a single field-level validation failure.
type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError is returned by a Schema when the input does not conform.
type ValidationError struct {
	Issues []Issue
}

// Error summarizes the first few issues.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "validation failed"
	}
	const maxShown = 3
	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, it := range e.Issues {
		if i == maxShown {
			fmt.Fprintf(&b, "; ... (total %d)", len(e.Issues))
			break
		}
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s at %s", it.Code, it.Field)
	}
	return b.String()
}

// AsValidationError extracts a *ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Schema validates and coerces a mapping of raw values. Implementations return
// a *ValidationError when raw does not conform.
type Schema interface {
	Deserialize(raw map[string]any) (map[string]any, error)
}

// Coercer converts a raw input value into the field's Go type.
type Coercer func(v any) (any, error)

// Field declares one schema field.
type Field struct {
	Name     string
	Coerce   Coercer
	Rules    string // validator tag, e.g. "gte=0,lte=999"
	Required bool
	Default  any // applied when the field is absent and not required
}

// FieldSchema is a Schema over a fixed list of fields. Unknown input keys are
// dropped. It is safe for concurrent use.
type FieldSchema struct {
	name     string
	fields   []Field
	validate *validator.Validate
}

var sharedValidator = validator.New(validator.WithRequiredStructEnabled())

// NewFieldSchema returns a schema named name over fields.
func NewFieldSchema(name string, fields ...Field) *FieldSchema {
	return &FieldSchema{
		name:     name,
		fields:   append([]Field(nil), fields...),
		validate: sharedValidator,
	}
}

// Name returns the schema name.
func (s *FieldSchema) Name() string { return s.name }

// Deserialize validates raw and returns the coerced, defaulted field mapping.
func (s *FieldSchema) Deserialize(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.fields))
	var issues []Issue
	for _, f := range s.fields {
		v, present := raw[f.Name]
		if !present || v == nil {
			if f.Required {
				issues = append(issues, Issue{Field: f.Name, Code: CodeRequired, Message: "field is required"})
				continue
			}
			out[f.Name] = f.Default
			continue
		}
		if f.Coerce != nil {
			cv, err := f.Coerce(v)
			if err != nil {
				issues = append(issues, Issue{Field: f.Name, Code: CodeInvalidType, Message: err.Error()})
				continue
			}
			v = cv
		}
		if f.Rules != "" {
			if err := s.validate.Var(v, f.Rules); err != nil {
				issues = append(issues, ruleIssues(f.Name, err)...)
				continue
			}
		}
		out[f.Name] = v
	}
	if len(issues) > 0 {
		sort.SliceStable(issues, func(i, j int) bool { return issues[i].Field < issues[j].Field })
		return nil, &ValidationError{Issues: issues}
	}
	return out, nil
}

func ruleIssues(field string, err error) []Issue {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Field: field, Code: "invalid", Message: err.Error()}}
	}
	out := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		out = append(out, Issue{Field: field, Code: fe.Tag(), Message: msg})
	}
	return out
}

// ---- coercers ----

// String accepts strings only and trims surrounding whitespace.
func String(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	return strings.TrimSpace(s), nil
}

// Int accepts integral numbers (including JSON float64 without a fraction)
// and numeric strings.
func Int(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return nil, fmt.Errorf("expected integer, got %v", x)
		}
		return int(x), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", x)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
}

// Float accepts numbers and numeric strings.
func Float(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return nil, fmt.Errorf("expected finite number, got %v", x)
		}
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("expected number, got %q", x)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("expected number, got %T", v)
	}
}

// Radio is a cell network standard.
type Radio string

// Known radio types.
const (
	RadioGSM   Radio = "gsm"
	RadioWCDMA Radio = "wcdma"
	RadioLTE   Radio = "lte"
)

func (r Radio) String() string { return string(r) }

var radioAliases = map[string]Radio{
	"gsm":   RadioGSM,
	"umts":  RadioWCDMA,
	"wcdma": RadioWCDMA,
	"lte":   RadioLTE,
}

// ParseRadio resolves a case-insensitive radio name or alias.
func ParseRadio(s string) (Radio, bool) {
	// Casers are stateful; one per call.
	r, ok := radioAliases[cases.Fold().String(strings.TrimSpace(s))]
	return r, ok
}

// RadioType coerces radio names and aliases (e.g. "UMTS") to a Radio.
func RadioType(v any) (any, error) {
	switch x := v.(type) {
	case Radio:
		return x, nil
	case string:
		if r, ok := ParseRadio(x); ok {
			return r, nil
		}
		return nil, fmt.Errorf("unknown radio type %q", x)
	default:
		return nil, fmt.Errorf("expected radio name, got %T", v)
	}
}

var macSeparators = regexp.MustCompile(`[:\-.]`)

// MAC normalizes a MAC address to 12 lowercase hex characters. Separators
// ':', '-' and '.' are removed; validation of the result belongs to the
// field's Rules.
func MAC(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	return strings.ToLower(macSeparators.ReplaceAllString(strings.TrimSpace(s), "")), nil
}
