// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// escaper applies the Cypher string-literal escapes in a single pass.
// Backslash is listed first so that escapes it introduces are never
// re-escaped. NUL bytes are dropped.
var escaper = strings.NewReplacer(
	"\x00", "",
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Escape makes s safe to embed inside a single-quoted Cypher literal.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverses Escape. Unknown escape sequences are kept verbatim.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Quote returns s as a single-quoted Cypher string literal.
func Quote(s string) string {
	return "'" + Escape(s) + "'"
}

// TagsLiteral renders tags as a Cypher list literal.
func TagsLiteral(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	quoted := make([]string, len(tags))
	for i, tag := range tags {
		quoted[i] = Quote(tag)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// idList renders IDs as a Cypher list literal.
func idList(ids []string) string {
	return TagsLiteral(ids)
}

// MetadataToJSON encodes metadata for storage as a string property.
func MetadataToJSON(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// JSONToMetadata decodes a stored metadata string. Invalid or empty input
// yields an empty map. Non-string values are kept as their JSON text.
func JSONToMetadata(s string) map[string]string {
	out := map[string]string{}
	if strings.TrimSpace(s) == "" {
		return out
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return out
	}
	for k, v := range raw {
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			out[k] = str
			continue
		}
		out[k] = string(v)
	}
	return out
}

// agtype payload suffixes.
var payloadSuffixes = []string{"::vertex", "::edge", "::path"}

// ParsePayload decodes a vertex or edge payload and returns its
// properties, or the whole object when it has none.
func ParsePayload(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	for _, suffix := range payloadSuffixes {
		text = strings.TrimSuffix(text, suffix)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, cairnerr.Wrap(err, cairnerr.CodeStoreDecodeFailure, "decoding agtype payload",
			cairnerr.Field("payload", truncate(text, 200)))
	}
	if props, ok := obj["properties"].(map[string]any); ok {
		return props, nil
	}
	return obj, nil
}

// payloadLabel returns the label of a vertex or edge payload.
func payloadLabel(text string) string {
	text = strings.TrimSpace(text)
	for _, suffix := range payloadSuffixes {
		text = strings.TrimSuffix(text, suffix)
	}
	var obj struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return ""
	}
	return obj.Label
}

func propString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}

func propTags(props map[string]any, key string) []string {
	list, ok := props[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func propTime(props map[string]any, key string) time.Time {
	return parseTime(propString(props, key))
}

func propFloat(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case json.Number:
		f, _ := v.Float64()
		return f
	case float64:
		return v
	case string:
		f, _ := ParseFloat(v)
		return f
	default:
		return 0
	}
}

// ParseFloat parses a numeric agtype scalar, which may be quoted or carry
// a type annotation such as ::numeric.
func ParseFloat(text string) (float64, error) {
	s := strings.TrimSpace(text)
	s = strings.Trim(s, `"`)
	if i := strings.Index(s, "::"); i >= 0 {
		s = s[:i]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, cairnerr.Wrap(err, cairnerr.CodeStoreDecodeFailure, "parsing numeric value",
			cairnerr.Field("value", truncate(text, 64)))
	}
	return f, nil
}

// ParseScalarString decodes an agtype string scalar such as "abc".
// Text that is not a JSON string is returned trimmed.
func ParseScalarString(text string) string {
	s := strings.TrimSpace(text)
	var out string
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out
	}
	return s
}

// floatLiteral renders f so that AGE stores it as a float, never an integer.
func floatLiteral(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// formatTime serialises a time for storage as an RFC 3339 string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a stored time string; failures yield the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
