package normalize

import (
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n?(.*?)(?:```|$)")

// Span walk limits. Unclosed spans all run to the end of the text, so only
// the innermost few are salvaged; the outermost one is tried by the fenced
// tier. Objects nested under more than maxOpaqueDepth decoded but unused
// objects are not decoded again.
const (
	maxUnclosedSpans = 8
	maxOpaqueDepth   = 4
)

// span bounds one object found by scanObjects. Unclosed spans run to the
// end of the text.
type span struct {
	start  int
	end    int
	closed bool
}

func (s span) text(src string) string {
	if s.closed {
		return src[s.start:s.end]
	}
	return salvage(src[s.start:])
}

// scanObjects returns the span of every object in text, nested ones
// included, ordered by start offset. String state is only tracked inside
// objects so quotes in surrounding prose cannot derail it.
func scanObjects(text string) []span {
	var (
		spans    []span
		stack    []int
		inString bool
		escape   bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if len(stack) > 0 {
			if escape {
				escape = false
				continue
			}
			if inString {
				switch c {
				case '\\':
					escape = true
				case '"':
					inString = false
				}
				continue
			}
			if c == '"' {
				inString = true
				continue
			}
		}

		switch c {
		case '{':
			stack = append(stack, i)
		case '}':
			if len(stack) > 0 {
				start := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				spans = append(spans, span{start: start, end: i + 1, closed: true})
			}
		}
	}
	for _, start := range stack {
		spans = append(spans, span{start: start, end: len(text)})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

// frame is an enclosing span on the walk stack.
type frame struct {
	end    int
	opaque int // decoded but unused enclosing objects, this one included
	errPos int // syntax error offset in the innermost failed enclosing span, or -1
}

// walkSpans decodes spans in order and hands each object to visit, which
// reports whether it used the object. Spans nested in a used span are
// skipped, as are spans that contain the syntax error of an enclosing span:
// they fail at the same byte.
func walkSpans(text string, spans []span, visit func(map[string]any) bool) {
	unclosed := 0
	for _, s := range spans {
		if !s.closed {
			unclosed++
		}
	}
	skipUnclosed := unclosed - maxUnclosedSpans

	var stack []frame
	covered := -1
	for _, s := range spans {
		if !s.closed && skipUnclosed > 0 {
			skipUnclosed--
			continue
		}
		for len(stack) > 0 && stack[len(stack)-1].end <= s.start {
			stack = stack[:len(stack)-1]
		}
		if s.start < covered {
			continue
		}

		parent := frame{errPos: -1}
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		if parent.errPos > s.start && parent.errPos < s.end {
			continue
		}
		if parent.opaque >= maxOpaqueDepth {
			continue
		}

		f := frame{end: s.end, opaque: parent.opaque, errPos: parent.errPos}
		m, errPos, ok := decodeSpan(text, s)
		switch {
		case !ok:
			if errPos >= 0 {
				f.errPos = errPos
			}
		case visit(m):
			covered = s.end
			continue
		default:
			f.opaque++
		}
		stack = append(stack, f)
	}
}

// decodeSpan decodes one span as an object. For a closed span that fails
// with a syntax error it also returns the offending byte's offset in text.
func decodeSpan(text string, s span) (map[string]any, int, bool) {
	var m map[string]any
	err := json.Unmarshal([]byte(s.text(text)), &m)
	if err == nil && m != nil {
		return m, -1, true
	}
	var se *json.SyntaxError
	if s.closed && errors.As(err, &se) && se.Offset > 0 {
		return nil, s.start + int(se.Offset) - 1, false
	}
	return nil, -1, false
}

// embeddedCandidates returns fenced block bodies followed by the outermost
// bracketed span of text.
func embeddedCandidates(text string) []string {
	var out []string
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		if body := strings.TrimSpace(m[1]); body != "" {
			out = append(out, body)
		}
	}
	if outer := outermostSpan(text); outer != "" {
		out = append(out, outer)
	}
	return out
}

// outermostSpan returns text from the first opening bracket to the last
// matching closer, or to the end if the closer is missing.
func outermostSpan(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		return text[start:]
	}
	return text[start : end+1]
}

// singleValue reports whether text holds at most one top-level value, so
// repairing it cannot silently drop trailing content.
func singleValue(text string) bool {
	depth := 0
	inString, escape := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escape:
			escape = false
		case c == '\\' && inString:
			escape = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
			if depth <= 0 {
				return strings.TrimSpace(text[i+1:]) == ""
			}
		}
	}
	return true
}

// salvage repairs truncated JSON. If closing open delimiters is not enough,
// it backs off to earlier element boundaries until the result is valid.
func salvage(text string) string {
	repaired := repairTruncatedJSON(text)
	if json.Valid([]byte(repaired)) {
		return repaired
	}

	commas := commaOffsets(text)
	for tries := 0; tries < 64 && len(commas) > 0; tries++ {
		cut := commas[len(commas)-1]
		commas = commas[:len(commas)-1]
		if candidate := repairTruncatedJSON(text[:cut]); json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return repaired
}

// commaOffsets returns the offsets of commas outside strings.
func commaOffsets(text string) []int {
	var (
		out      []int
		inString bool
		escape   bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escape:
			escape = false
		case c == '\\' && inString:
			escape = true
		case c == '"':
			inString = !inString
		case c == ',' && !inString:
			out = append(out, i)
		}
	}
	return out
}

// repairTruncatedJSON closes an unterminated string and any unclosed
// brackets or braces in truncated JSON.
func repairTruncatedJSON(text string) string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return text
	}

	var stack []byte
	inString := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if escape {
			escape = false
			continue
		}

		if c == '\\' && inString {
			escape = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(text)
	if escape {
		s := sb.String()
		sb.Reset()
		sb.WriteString(s[:len(s)-1])
	}
	if inString {
		sb.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		sb.WriteByte(stack[i])
	}
	return sb.String()
}
