package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudera/cdpcore/pkg/shape"
)

// UnknownErrorCode is synthesized when an error response body cannot be
// decoded as the protocol's error envelope (for example, a proxy returned
// plain text).
const UnknownErrorCode = "UNKNOWN_ERROR"

// errorStatusThreshold is the first HTTP status treated as an error
// envelope rather than an operation result.
const errorStatusThreshold = 301

// ErrorEnvelope is the decoded error body of a non-success response.
type ErrorEnvelope struct {
	Code    string
	Message string
}

func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Parse converts a raw response into a native value tree directed by the
// operation's output shape. A nil shape always yields an empty result
// (some operations declare no output). Responses with status >= 301
// return an *ErrorEnvelope as the error.
func Parse(status int, body []byte, s *shape.Shape) (any, error) {
	if status >= errorStatusThreshold {
		return nil, ParseErrorEnvelope(body)
	}
	if s == nil || len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return parseValue(raw, s, "")
}

// ParseErrorEnvelope decodes a {code, message} structure from an error
// body, accepting both the enveloped and the flat form. It never fails:
// an undecodable body is synthesized into an UNKNOWN_ERROR envelope
// carrying the raw text.
func ParseErrorEnvelope(body []byte) *ErrorEnvelope {
	var enveloped struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &enveloped); err == nil {
		if enveloped.Error.Code != "" || enveloped.Error.Message != "" {
			return &ErrorEnvelope{Code: enveloped.Error.Code, Message: enveloped.Error.Message}
		}
		if enveloped.Code != "" || enveloped.Message != "" {
			return &ErrorEnvelope{Code: enveloped.Code, Message: enveloped.Message}
		}
	}
	return &ErrorEnvelope{Code: UnknownErrorCode, Message: strings.TrimSpace(string(body))}
}

func parseValue(raw any, s *shape.Shape, path string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch s.Kind {
	case shape.KindObject:
		return parseObject(raw, s, path)
	case shape.KindArray:
		return parseArray(raw, s, path)
	case shape.KindMap:
		return parseMap(raw, s, path)
	case shape.KindDatetime:
		return parseDatetimeValue(raw, path)
	case shape.KindInteger, shape.KindLong:
		if n, ok := raw.(json.Number); ok {
			v, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("field %s: %q is not an integer", fieldPath(path), n)
			}
			return v, nil
		}
		return raw, nil
	case shape.KindFloat, shape.KindDouble:
		if n, ok := raw.(json.Number); ok {
			v, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("field %s: %q is not a number", fieldPath(path), n)
			}
			return v, nil
		}
		return raw, nil
	default:
		return raw, nil
	}
}

func parseObject(raw any, s *shape.Shape, path string) (any, error) {
	wire, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field %s: expected an object, got %T", fieldPath(path), raw)
	}
	out := map[string]any{}
	for _, m := range s.Members() {
		memberRaw, present := wire[m.Name]
		if !present {
			continue
		}
		parsed, err := parseValue(memberRaw, m.Shape, joinPath(path, m.Name))
		if err != nil {
			return nil, err
		}
		out[m.Name] = parsed
	}
	return out, nil
}

func parseArray(raw any, s *shape.Shape, path string) (any, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("field %s: expected an array, got %T", fieldPath(path), raw)
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		parsed, err := parseValue(item, s.ArrayMember, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

func parseMap(raw any, s *shape.Shape, path string) (any, error) {
	wire, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field %s: expected a map, got %T", fieldPath(path), raw)
	}
	out := map[string]any{}
	for k, v := range wire {
		parsed, err := parseValue(v, s.MapValue, joinPath(path, k))
		if err != nil {
			return nil, err
		}
		out[k] = parsed
	}
	return out, nil
}

func parseDatetimeValue(raw any, path string) (any, error) {
	text, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("field %s: expected a datetime string, got %T", fieldPath(path), raw)
	}
	t, err := ParseDatetime(text)
	if err != nil {
		return nil, fmt.Errorf("field %s: unparsable datetime %q", fieldPath(path), text)
	}
	return t, nil
}

// datetimeLayouts are tried in order: ISO-8601 first, then the RFC-822
// family some older services emit.
var datetimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC822Z,
}

// ParseDatetime parses a timestamp as ISO-8601, falling back to RFC-822
// forms.
func ParseDatetime(text string) (time.Time, error) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable datetime %q", text)
}
