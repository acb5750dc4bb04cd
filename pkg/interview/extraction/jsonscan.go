package extraction

import "strings"

// nextObject finds the first balanced {...} in s at or after from, skipping
// braces inside JSON strings. A "{" that never closes is skipped in favour of
// the next one. end is the index of the closing brace.
func nextObject(s string, from int) (start, end int, ok bool) {
	offset := from
	for offset < len(s) {
		i := strings.IndexByte(s[offset:], '{')
		if i == -1 {
			return 0, 0, false
		}
		start = offset + i
		if end, ok = matchBrace(s, start); ok {
			return start, end, true
		}
		offset = start + 1
	}
	return 0, 0, false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
