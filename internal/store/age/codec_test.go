// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"single quote", "it's", `it\'s`},
		{"double quote", `say "hi"`, `say \"hi\"`},
		{"backslash", `a\b`, `a\\b`},
		{"backslash before quote", `\'`, `\\\'`},
		{"newline", "a\nb", `a\nb`},
		{"carriage return and tab", "a\r\tb", `a\r\tb`},
		{"nul dropped", "nul\x00byte", "nulbyte"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.in))
		})
	}
}

func TestUnescape_KeepsUnknownSequences(t *testing.T) {
	assert.Equal(t, `\x`, Unescape(`\x`))
	assert.Equal(t, `trailing\`, Unescape(`trailing\`))
	assert.Equal(t, "no escapes", Unescape("no escapes"))
}

func TestEscape_RoundTrip(t *testing.T) {
	alphabet := []rune("ab'\"\\\n\r\tzé日 ")
	r := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 500; i++ {
		n := r.IntN(24)
		s := make([]rune, n)
		for j := range s {
			s[j] = alphabet[r.IntN(len(alphabet))]
		}
		in := string(s)
		require.Equal(t, in, Unescape(Escape(in)), "round trip of %q", in)
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'it\'s'`, Quote("it's"))
	assert.Equal(t, "''", Quote(""))
}

func TestTagsLiteral(t *testing.T) {
	assert.Equal(t, "[]", TagsLiteral(nil))
	assert.Equal(t, `['a', 'b\'c']`, TagsLiteral([]string{"a", "b'c"}))
	assert.Equal(t, "['x']", idList([]string{"x"}))
}

func TestMetadataJSON(t *testing.T) {
	assert.Equal(t, "{}", MetadataToJSON(nil))
	assert.Equal(t, `{"k":"v"}`, MetadataToJSON(map[string]string{"k": "v"}))

	assert.Equal(t, map[string]string{}, JSONToMetadata(""))
	assert.Equal(t, map[string]string{}, JSONToMetadata("not json"))
	assert.Equal(t,
		map[string]string{"a": "x", "n": "3", "b": "true"},
		JSONToMetadata(`{"a":"x","n":3,"b":true}`))

	in := map[string]string{"owner": "ops", "quote": `it's "fine"`}
	assert.Equal(t, in, JSONToMetadata(MetadataToJSON(in)))
}

func TestParsePayload(t *testing.T) {
	vertex := `{"id": 844424930131969, "label": "Task", "properties": {"id": "t1", "content": "write docs", "tags": ["a", "b"]}}::vertex`

	props, err := ParsePayload(vertex)
	require.NoError(t, err)
	assert.Equal(t, "t1", propString(props, "id"))
	assert.Equal(t, "write docs", propString(props, "content"))
	assert.Equal(t, []string{"a", "b"}, propTags(props, "tags"))
	assert.Equal(t, "Task", payloadLabel(vertex))

	edge := `{"id": 1, "label": "PART_OF", "end_id": 2, "start_id": 3, "properties": {"position": 1500.5}}::edge`
	props, err = ParsePayload(edge)
	require.NoError(t, err)
	assert.InDelta(t, 1500.5, propFloat(props, "position"), 1e-9)
	assert.Equal(t, "PART_OF", payloadLabel(edge))

	bare, err := ParsePayload(`{"id": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, "x", propString(bare, "id"))

	_, err = ParsePayload("not json")
	require.Error(t, err)
	assert.Equal(t, cairnerr.CodeStoreDecodeFailure, cairnerr.CodeOf(err))
	assert.Equal(t, "", payloadLabel("not json"))
}

func TestPropAccessors_MissingKeys(t *testing.T) {
	props := map[string]any{}
	assert.Equal(t, "", propString(props, "id"))
	assert.Equal(t, []string{}, propTags(props, "tags"))
	assert.True(t, propTime(props, "created_at").IsZero())
	assert.Zero(t, propFloat(props, "position"))
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1000.5", 1000.5},
		{`"12"`, 12},
		{"3::numeric", 3},
		{" 42 ", 42},
		{"1e3", 1000},
	}
	for _, tt := range tests {
		got, err := ParseFloat(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}

	_, err := ParseFloat("abc")
	require.Error(t, err)
	assert.Equal(t, cairnerr.CodeStoreDecodeFailure, cairnerr.CodeOf(err))
}

func TestParseScalarString(t *testing.T) {
	assert.Equal(t, "abc", ParseScalarString(`"abc"`))
	assert.Equal(t, `it's "q"`, ParseScalarString(`"it's \"q\""`))
	assert.Equal(t, "42", ParseScalarString("42"))
	assert.Equal(t, "plain", ParseScalarString(" plain "))
	assert.Equal(t, "", ParseScalarString(""))
}

func TestFloatLiteral(t *testing.T) {
	assert.Equal(t, "1000.0", floatLiteral(1000))
	assert.Equal(t, "1000.25", floatLiteral(1000.25))
	assert.Equal(t, "0.0", floatLiteral(0))
	assert.Equal(t, "-5.0", floatLiteral(-5))
}

func TestTimeFormat(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 89, time.FixedZone("x", 3600))
	s := formatTime(ts)
	assert.Equal(t, "2026-03-04T04:06:07.000000089Z", s)
	assert.True(t, ts.Equal(parseTime(s)))

	assert.Equal(t, "", formatTime(time.Time{}))
	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("garbage").IsZero())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
