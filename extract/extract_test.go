package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectCleanJSON(t *testing.T) {
	obj, ok := Object(`{"intent":"outreach","tasks":[{"agent":"outreach"}]}`)
	require.True(t, ok)
	assert.Equal(t, "outreach", String(obj, "intent"))
	assert.Len(t, List(obj, "tasks"), 1)
}

func TestObjectRecoveryMatchesCleanParse(t *testing.T) {
	clean := `{"intent":"content","priority":"high","note":"a {brace} inside"}`

	tests := []struct {
		name string
		text string
	}{
		{"fenced block with language tag", "Here is the plan:\n```json\n" + clean + "\n```\nDone."},
		{"fenced block without language tag", "```\n" + clean + "\n```"},
		{"prose wrapped around object", "Sure! The result is " + clean + " — let me know."},
		{"trailing garbage after object", clean + "\nSome closing remarks."},
	}

	want, ok := Object(clean)
	require.True(t, ok)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Object(tt.text)
			require.True(t, ok, "extraction should succeed")
			assert.Equal(t, want, got)
		})
	}
}

func TestObjectBracesInsideStrings(t *testing.T) {
	text := `prefix {"msg":"use {{placeholders}} like this","n":2} suffix`
	obj, ok := Object(text)
	require.True(t, ok)
	assert.Equal(t, "use {{placeholders}} like this", String(obj, "msg"))
}

func TestObjectEscapedQuotes(t *testing.T) {
	text := `{"quote":"she said \"go\" and left","depth":{"x":1}}`
	obj, ok := Object("noise " + text)
	require.True(t, ok)
	assert.Equal(t, `she said "go" and left`, String(obj, "quote"))
}

func TestObjectIrrecoverableInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t "},
		{"plain prose", "I could not produce a structured answer."},
		{"truncated object", `{"tasks":[{"agent":"copywriter"`},
		{"top-level array", `[1,2,3]`},
		{"json null", `null`},
		{"fenced null", "```json\nnull\n```"},
		{"unclosed fence", "```json\n{\"a\":"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, ok := Object(tt.text)
			assert.False(t, ok)
			assert.Nil(t, obj)
		})
	}
}

func TestNumber(t *testing.T) {
	obj, ok := Object(`{"overall":72.5,"label":"72"}`)
	require.True(t, ok)

	n, ok := Number(obj, "overall")
	require.True(t, ok)
	assert.InDelta(t, 72.5, n, 0.001)

	_, ok = Number(obj, "label")
	assert.False(t, ok, "string-wrapped numbers are not accepted")
	_, ok = Number(obj, "missing")
	assert.False(t, ok)
}

func TestSegmentsMarkdownHeaders(t *testing.T) {
	text := "## Welcome Email\nHi there, welcome aboard.\n\n## Follow-up\nJust checking in."
	segs := Segments(text)
	require.Len(t, segs, 2)
	assert.Equal(t, "Welcome Email", segs[0].Title)
	assert.Contains(t, segs[0].Body, "welcome aboard")
	assert.Equal(t, "Follow-up", segs[1].Title)
}

func TestSegmentsCapsLabels(t *testing.T) {
	text := "SUBJECT LINE:\nWe miss you\n\nEMAIL BODY:\nCome back for 20% off."
	segs := Segments(text)
	require.Len(t, segs, 2)
	assert.Equal(t, "SUBJECT LINE", segs[0].Title)
	assert.Equal(t, "EMAIL BODY", segs[1].Title)
}

func TestSegmentsNumberedItems(t *testing.T) {
	text := "1. Draft the teaser post\n2. Schedule it for Monday\n3. Follow up midweek"
	segs := Segments(text)
	require.Len(t, segs, 3)
	assert.Equal(t, "Schedule it for Monday", segs[1].Title)
}

func TestSegmentsWholeTextFallback(t *testing.T) {
	text := "A single paragraph with no recognizable structure at all."
	segs := Segments(text)
	require.Len(t, segs, 1)
	assert.Equal(t, text, segs[0].Body)
	assert.NotEmpty(t, segs[0].Title)
}

func TestSegmentsNonEmptyGuarantee(t *testing.T) {
	inputs := []string{
		"x",
		"## only a header",
		"1. single item",
		"### A\nbody\n### B\n", // trailing header with no body
	}
	for _, in := range inputs {
		assert.NotEmpty(t, Segments(in), "input %q must yield at least one segment", in)
	}
	assert.Empty(t, Segments("  \n "))
}
