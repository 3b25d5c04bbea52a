package render

import "strings"

// Reasoning models wrap their chain-of-thought in <think> tags. The parser
// splits assistant content into plain and reasoning spans so the two can
// be rendered differently.
const (
	openTag  = "<think>"
	closeTag = "</think>"
)

type SpanKind int

const (
	SpanPlain SpanKind = iota
	SpanReasoning
)

type Span struct {
	Kind SpanKind
	Text string
}

// ParseSpans splits content on <think>...</think> markers. An unterminated
// open tag (the common mid-stream case) yields a reasoning span running to
// the end of the input. A close tag with no matching open is plain text.
func ParseSpans(content string) []Span {
	var spans []Span
	for content != "" {
		open := strings.Index(content, openTag)
		if open < 0 {
			spans = append(spans, Span{Kind: SpanPlain, Text: content})
			break
		}
		if open > 0 {
			spans = append(spans, Span{Kind: SpanPlain, Text: content[:open]})
		}
		content = content[open+len(openTag):]

		end := strings.Index(content, closeTag)
		if end < 0 {
			if content != "" {
				spans = append(spans, Span{Kind: SpanReasoning, Text: content})
			}
			break
		}
		if end > 0 {
			spans = append(spans, Span{Kind: SpanReasoning, Text: content[:end]})
		}
		content = content[end+len(closeTag):]
	}
	return spans
}
