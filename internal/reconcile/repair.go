package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	fencePatterns = []*regexp.Regexp{
		regexp.MustCompile("(?i)^```json\\s*"),
		regexp.MustCompile("(?i)^```javascript\\s*"),
		regexp.MustCompile("(?i)^```\\s*"),
		regexp.MustCompile("(?i)\\s*```$"),
	}
	commaBeforeBracket = regexp.MustCompile(`,(\s*)\]`)
	commaBeforeBrace   = regexp.MustCompile(`,(\s*)\}`)
)

// Extract recovers the JSON object contained in raw model output. The text
// may be wrapped in markdown fences, surrounded by prose, truncated, or carry
// dangling commas. Extract never panics on malformed input; it either returns
// the parsed object or one of ErrNoJSONFound and *InvalidJSONError.
func Extract(raw string) (Value, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Value{}, fmt.Errorf("%w: empty response", ErrNoJSONFound)
	}

	text = StripFences(text)

	first := strings.IndexByte(text, '{')
	if first < 0 {
		return Value{}, ErrNoJSONFound
	}
	last := strings.LastIndexByte(text, '}')
	if last < first {
		// Truncated: no closing brace after the opening one.
		text = text[first:]
		first = 0
		text = closeTruncated(text)
		last = strings.LastIndexByte(text, '}')
		if last < 0 {
			return Value{}, ErrNoJSONFound
		}
	}

	candidate := text[first : last+1]

	v, err := Parse(candidate)
	if err == nil {
		return v, nil
	}

	repaired := repair(candidate, err)
	v, repairErr := Parse(repaired)
	if repairErr != nil {
		return Value{}, &InvalidJSONError{Message: err.Error(), Err: err}
	}
	return v, nil
}

// StripFences removes leading and trailing markdown code fences
func StripFences(text string) string {
	for _, re := range fencePatterns {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// repair applies the malformed-JSON fallbacks in order: cut back to the last
// complete object before the parse error, drop commas dangling before
// closers, then trim any partial tail token and close what is still open.
func repair(s string, parseErr error) string {
	var syntaxErr *json.SyntaxError
	if errors.As(parseErr, &syntaxErr) {
		s = truncateAtLastCompleteObject(s, int(syntaxErr.Offset))
	}

	s = commaBeforeBracket.ReplaceAllString(s, "$1]")
	s = commaBeforeBrace.ReplaceAllString(s, "$1}")

	return closeTruncated(s)
}

// truncateAtLastCompleteObject cuts s just after the comma that follows the
// nearest structural '}' before offset. It leaves s untouched when no such
// brace exists.
func truncateAtLastCompleteObject(s string, offset int) string {
	if offset > len(s) {
		offset = len(s)
	}
	closes := scan(s).objectCloses
	for i := len(closes) - 1; i >= 0; i-- {
		pos := closes[i]
		if pos >= offset {
			continue
		}
		j := pos + 1
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j < len(s) && s[j] == ',' {
			return s[:j+1]
		}
	}
	return s
}

// closeTruncated cuts s back to the last point where the document is a
// well-formed prefix and appends the closers for every container still open,
// innermost first.
func closeTruncated(s string) string {
	r := scan(s)
	if r.cleanAt < 0 {
		return s
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(s[:r.cleanAt], " \t\r\n"))
	for i := len(r.cleanStack) - 1; i >= 0; i-- {
		if r.cleanStack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

type scanState int

const (
	expectValue scanState = iota
	expectKey
	expectColon
	afterValue
)

type frame struct {
	kind  byte
	state scanState
}

type scanResult struct {
	// cleanAt is the offset after which s can be closed by appending closers
	// for cleanStack. It is -1 when no such point exists.
	cleanAt    int
	cleanStack []byte
	// objectCloses holds the offsets of '}' bytes outside string literals.
	objectCloses []int
}

// scan walks s as a JSON token stream, tolerating truncation. It stops at the
// first byte that cannot continue a valid document.
func scan(s string) scanResult {
	res := scanResult{cleanAt: -1}
	var stack []frame

	markClean := func(at int) {
		res.cleanAt = at
		res.cleanStack = res.cleanStack[:0]
		for _, f := range stack {
			res.cleanStack = append(res.cleanStack, f.kind)
		}
	}

	// valueDone advances the enclosing container after a complete token and
	// reports whether scanning can continue.
	valueDone := func(end int, isString bool) bool {
		if len(stack) == 0 {
			markClean(end)
			return true
		}
		top := &stack[len(stack)-1]
		switch top.state {
		case expectKey:
			if !isString {
				return false
			}
			top.state = expectColon
			return true
		case expectValue:
			top.state = afterValue
			markClean(end)
			return true
		}
		return false
	}

	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case isSpace(c):
			i++

		case c == '"':
			end := stringEnd(s, i)
			if end < 0 {
				return res
			}
			if !valueDone(end, true) {
				return res
			}
			i = end

		case c == '{' || c == '[':
			if len(stack) > 0 && stack[len(stack)-1].state != expectValue {
				return res
			}
			f := frame{kind: c, state: expectValue}
			if c == '{' {
				f.state = expectKey
			}
			stack = append(stack, f)
			i++
			markClean(i)

		case c == '}' || c == ']':
			if len(stack) == 0 {
				return res
			}
			top := stack[len(stack)-1]
			open := byte('{')
			if c == ']' {
				open = '['
			}
			if top.kind != open || top.state == expectColon {
				return res
			}
			if c == '}' {
				res.objectCloses = append(res.objectCloses, i)
			}
			stack = stack[:len(stack)-1]
			i++
			if !valueDone(i, false) {
				return res
			}

		case c == ':':
			if len(stack) == 0 || stack[len(stack)-1].state != expectColon {
				return res
			}
			stack[len(stack)-1].state = expectValue
			i++

		case c == ',':
			if len(stack) == 0 || stack[len(stack)-1].state != afterValue {
				return res
			}
			top := &stack[len(stack)-1]
			if top.kind == '{' {
				top.state = expectKey
			} else {
				top.state = expectValue
			}
			i++

		default:
			end := i
			for end < len(s) && !isDelimiter(s[end]) {
				end++
			}
			if end == len(s) && !isCompleteLiteral(s[i:end]) {
				return res
			}
			if !valueDone(end, false) {
				return res
			}
			i = end
		}
	}
	return res
}

// stringEnd returns the offset just past the closing quote of the string
// literal starting at i, or -1 when the literal is unterminated.
func stringEnd(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return -1
}

func isCompleteLiteral(tok string) bool {
	switch tok {
	case "true", "false", "null":
		return true
	}
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

func isDelimiter(c byte) bool {
	switch c {
	case ',', '}', ']', ':', '"', '{', '[':
		return true
	}
	return isSpace(c)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
