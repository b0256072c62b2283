// Package validate checks a native argument tree against a shape before
// serialization. Unlike a fail-fast validator it accumulates every
// violation found across the whole tree and reports them together.
package validate

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cloudera/cdpcore/pkg/codec"
	"github.com/cloudera/cdpcore/pkg/shape"
)

// Issue codes.
const (
	CodeMissingRequired = "MISSING_REQUIRED_PARAMETER"
	CodeUnknownMember   = "UNKNOWN_PARAMETER"
	CodeInvalidType     = "INVALID_TYPE"
	CodeOutOfRange      = "OUT_OF_RANGE"
	CodeInvalidLength   = "INVALID_LENGTH"
	CodeInvalidEnum     = "INVALID_ENUM_VALUE"
	CodeInvalidBlob     = "INVALID_BLOB"
	CodeInvalidMapKey   = "INVALID_MAP_KEY"
)

// Issue is one violation found in the argument tree.
type Issue struct {
	Code    string
	Path    string
	Message string
}

// Report is the aggregated outcome of one validation pass. An empty
// report means the tree is valid.
type Report struct {
	issues []Issue
}

// Empty reports whether no violations were found.
func (r *Report) Empty() bool {
	return len(r.issues) == 0
}

// Issues returns the accumulated violations in discovery order.
func (r *Report) Issues() []Issue {
	return r.issues
}

// Render produces the multi-line human-readable summary, or "" for an
// empty report.
func (r *Report) Render() string {
	if r.Empty() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "parameter validation failed (%d issues):", len(r.issues))
	for _, issue := range r.issues {
		fmt.Fprintf(&b, "\n  %s: %s", issue.Path, issue.Message)
	}
	return b.String()
}

func (r *Report) add(code, path, format string, args ...any) {
	r.issues = append(r.issues, Issue{
		Code:    code,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

// Validate walks the native value against the shape. It always returns a
// report, never an error: malformed input produces issues, not panics.
func Validate(value any, s *shape.Shape) *Report {
	r := &Report{}
	walk(value, s, "(root)", r)
	return r
}

func walk(v any, s *shape.Shape, path string, r *Report) {
	switch s.Kind {
	case shape.KindObject:
		walkObject(v, s, path, r)
	case shape.KindArray:
		walkArray(v, s, path, r)
	case shape.KindMap:
		walkMap(v, s, path, r)
	case shape.KindString:
		walkString(v, s, path, r)
	case shape.KindInteger, shape.KindLong:
		walkInteger(v, s, path, r)
	case shape.KindFloat, shape.KindDouble:
		walkFloat(v, s, path, r)
	case shape.KindBoolean:
		if _, ok := v.(bool); !ok {
			r.add(CodeInvalidType, path, "expected a boolean, got %T", v)
		}
	case shape.KindBlob:
		walkBlob(v, s, path, r)
	case shape.KindDatetime:
		walkDatetime(v, path, r)
	}
}

func walkObject(v any, s *shape.Shape, path string, r *Report) {
	members, ok := v.(map[string]any)
	if v == nil {
		members = map[string]any{}
	} else if !ok {
		r.add(CodeInvalidType, path, "expected an object, got %T", v)
		return
	}
	for _, name := range s.RequiredMembers() {
		if raw, present := members[name]; !present || raw == nil {
			r.add(CodeMissingRequired, join(path, name), "missing required parameter %q", name)
		}
	}
	for name, raw := range members {
		memberShape, known := s.MemberShape(name)
		if !known {
			r.add(CodeUnknownMember, join(path, name), "unknown parameter %q", name)
			continue
		}
		if raw == nil {
			continue
		}
		walk(raw, memberShape, join(path, name), r)
	}
}

func walkArray(v any, s *shape.Shape, path string, r *Report) {
	items, ok := v.([]any)
	if !ok {
		r.add(CodeInvalidType, path, "expected an array, got %T", v)
		return
	}
	checkLength(len(items), s, path, "elements", r)
	for i, item := range items {
		walk(item, s.ArrayMember, fmt.Sprintf("%s[%d]", path, i), r)
	}
}

func walkMap(v any, s *shape.Shape, path string, r *Report) {
	switch entries := v.(type) {
	case map[string]any:
		for k, raw := range entries {
			walk(raw, s.MapValue, join(path, k), r)
		}
	case map[any]any:
		// YAML-decoded trees can carry non-string keys.
		for k, raw := range entries {
			key, ok := k.(string)
			if !ok {
				r.add(CodeInvalidMapKey, path, "map key %v is not a string", k)
				continue
			}
			walk(raw, s.MapValue, join(path, key), r)
		}
	default:
		r.add(CodeInvalidType, path, "expected a map, got %T", v)
	}
}

func walkString(v any, s *shape.Shape, path string, r *Report) {
	text, ok := v.(string)
	if !ok {
		r.add(CodeInvalidType, path, "expected a string, got %T", v)
		return
	}
	checkLength(len(text), s, path, "characters", r)
	if len(s.Annotations.Enum) > 0 {
		for _, allowed := range s.Annotations.Enum {
			if text == allowed {
				return
			}
		}
		r.add(CodeInvalidEnum, path, "value %q is not one of %v", text, s.Annotations.Enum)
	}
}

func walkInteger(v any, s *shape.Shape, path string, r *Report) {
	n, ok := asNumber(v)
	if !ok {
		r.add(CodeInvalidType, path, "expected an integer, got %T", v)
		return
	}
	if n != math.Trunc(n) {
		r.add(CodeInvalidType, path, "expected an integer, got %v", n)
		return
	}
	checkRange(n, s, path, r)
}

// walkFloat accepts any numeric value: decimals are legal wherever a
// float or double is expected.
func walkFloat(v any, s *shape.Shape, path string, r *Report) {
	n, ok := asNumber(v)
	if !ok {
		r.add(CodeInvalidType, path, "expected a number, got %T", v)
		return
	}
	checkRange(n, s, path, r)
}

// walkBlob accepts raw bytes or base64 text. Padding is checked only for
// the textual form; raw bytes need no encoding check.
func walkBlob(v any, s *shape.Shape, path string, r *Report) {
	switch b := v.(type) {
	case []byte:
		checkLength(len(b), s, path, "bytes", r)
	case string:
		decoded, err := base64.StdEncoding.DecodeString(b)
		if err != nil {
			r.add(CodeInvalidBlob, path, "invalid base64 value: %v", err)
			return
		}
		checkLength(len(decoded), s, path, "bytes", r)
	default:
		r.add(CodeInvalidType, path, "expected bytes or base64 text, got %T", v)
	}
}

func walkDatetime(v any, path string, r *Report) {
	switch t := v.(type) {
	case time.Time:
	case string:
		if _, err := codec.ParseDatetime(t); err != nil {
			r.add(CodeInvalidType, path, "expected an ISO-8601 or RFC-822 datetime, got %q", t)
		}
	default:
		r.add(CodeInvalidType, path, "expected a datetime, got %T", v)
	}
}

func checkRange(n float64, s *shape.Shape, path string, r *Report) {
	a := s.Annotations
	if a.Minimum != nil && n < *a.Minimum {
		r.add(CodeOutOfRange, path, "value %v is below the minimum of %v", n, *a.Minimum)
	}
	if a.Maximum != nil && n > *a.Maximum {
		r.add(CodeOutOfRange, path, "value %v is above the maximum of %v", n, *a.Maximum)
	}
}

func checkLength(length int, s *shape.Shape, path, unit string, r *Report) {
	a := s.Annotations
	if a.MinLength != nil && length < *a.MinLength {
		r.add(CodeInvalidLength, path, "length %d %s is below the minimum of %d", length, unit, *a.MinLength)
	}
	if a.MaxLength != nil && length > *a.MaxLength {
		r.add(CodeInvalidLength, path, "length %d %s is above the maximum of %d", length, unit, *a.MaxLength)
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func join(path, name string) string {
	if path == "(root)" {
		return name
	}
	return path + "." + name
}
