package expression

// Span is one "{{ ... }}" occurrence found in a string, with Start/End
// byte offsets of the full "{{ ... }}" (inclusive of delimiters) and the
// trimmed expression text between them.
type Span struct {
	Start, End int
	Expr       string
}

// Scan finds every top-level "{{ ... }}" span in s, counting single-brace
// depth inside the expression body so that a nested object literal like
// "{{ {a: {b: 1}} }}" is treated as one span: the "}}" that closes it is
// only recognized once the single-brace depth it opened has returned to
// zero, not on the first adjacent "}}" encountered.
func Scan(s string) ([]Span, error) {
	var spans []Span
	i := 0
	n := len(s)
	for i < n-1 {
		if s[i] == '{' && s[i+1] == '{' {
			start := i
			j := i + 2
			exprStart := j
			depth := 0
			closed := false
			for j < n {
				switch s[j] {
				case '{':
					depth++
					j++
				case '}':
					if depth == 0 {
						if j+1 < n && s[j+1] == '}' {
							closed = true
						}
						goto done
					}
					depth--
					j++
				default:
					j++
				}
			}
		done:
			if !closed {
				return nil, ErrUnbalancedBraces
			}
			exprEnd := j
			end := j + 2
			spans = append(spans, Span{
				Start: start,
				End:   end,
				Expr:  trimSpace(s[exprStart:exprEnd]),
			})
			i = end
			continue
		}
		i++
	}
	return spans, nil
}

// IsSingleExpression reports whether s, once trimmed, is exactly one
// "{{ ... }}" span with nothing else around it — the case where the
// evaluated value keeps its native type instead of being stringified.
func IsSingleExpression(s string) (expr string, ok bool) {
	trimmed := trimSpace(s)
	spans, err := Scan(trimmed)
	if err != nil || len(spans) != 1 {
		return "", false
	}
	if spans[0].Start != 0 || spans[0].End != len(trimmed) {
		return "", false
	}
	return spans[0].Expr, true
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
