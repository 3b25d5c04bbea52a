package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSpansPlainOnly(t *testing.T) {
	spans := ParseSpans("just a normal answer")
	assert.Equal(t, []Span{{Kind: SpanPlain, Text: "just a normal answer"}}, spans)
}

func TestParseSpansEmpty(t *testing.T) {
	assert.Empty(t, ParseSpans(""))
}

func TestParseSpansDelimitedReasoning(t *testing.T) {
	spans := ParseSpans("<think>pondering</think>The answer is 4.")
	assert.Equal(t, []Span{
		{Kind: SpanReasoning, Text: "pondering"},
		{Kind: SpanPlain, Text: "The answer is 4."},
	}, spans)
}

func TestParseSpansReasoningBetweenPlainText(t *testing.T) {
	spans := ParseSpans("intro <think>hmm</think> outro")
	assert.Equal(t, []Span{
		{Kind: SpanPlain, Text: "intro "},
		{Kind: SpanReasoning, Text: "hmm"},
		{Kind: SpanPlain, Text: " outro"},
	}, spans)
}

func TestParseSpansUnterminatedReasoning(t *testing.T) {
	// Mid-stream content often ends inside an open think block.
	spans := ParseSpans("<think>still thinking abo")
	assert.Equal(t, []Span{
		{Kind: SpanReasoning, Text: "still thinking abo"},
	}, spans)
}

func TestParseSpansStrayCloseTagIsPlain(t *testing.T) {
	spans := ParseSpans("no opener here</think> trailing")
	assert.Equal(t, []Span{
		{Kind: SpanPlain, Text: "no opener here</think> trailing"},
	}, spans)
}

func TestParseSpansMultipleBlocks(t *testing.T) {
	spans := ParseSpans("<think>a</think>one<think>b</think>two")
	assert.Equal(t, []Span{
		{Kind: SpanReasoning, Text: "a"},
		{Kind: SpanPlain, Text: "one"},
		{Kind: SpanReasoning, Text: "b"},
		{Kind: SpanPlain, Text: "two"},
	}, spans)
}

func TestRendererSmoke(t *testing.T) {
	r, err := NewRenderer(80)
	assert.NoError(t, err)

	out, err := r.Render("<think>weighing options</think>plain answer")
	assert.NoError(t, err)
	assert.Contains(t, out, "weighing options")
	assert.Contains(t, out, "plain answer")
}
