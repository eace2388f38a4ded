package migrate

import (
	"strings"
	"unicode"
)

// Split breaks a SQL script into statements on semicolons. Semicolons inside
// string literals, quoted identifiers, comments and CREATE TRIGGER bodies do
// not end a statement. Statements that are empty or hold only comments are
// dropped, so a comment-only script yields no statements.
func Split(script string) []string {
	var (
		out  []string
		stmt strings.Builder // statement text as written
		code strings.Builder // statement text without comments or literals
	)

	flush := func() {
		if strings.TrimSpace(code.String()) != "" {
			out = append(out, strings.TrimSpace(stmt.String()))
		}
		stmt.Reset()
		code.Reset()
	}

	src := []rune(script)
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			j := i
			for j < len(src) && src[j] != '\n' {
				j++
			}
			stmt.WriteString(string(src[i:j]))
			code.WriteByte(' ')
			i = j - 1

		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			j := i + 2
			for j+1 < len(src) && !(src[j] == '*' && src[j+1] == '/') {
				j++
			}
			end := min(j+2, len(src))
			stmt.WriteString(string(src[i:end]))
			code.WriteByte(' ')
			i = end - 1

		case c == '\'' || c == '"' || c == '`' || c == '[':
			closer := c
			if c == '[' {
				closer = ']'
			}
			j := i + 1
			for j < len(src) {
				if src[j] == closer {
					// A doubled quote is an escaped quote, not the end.
					if closer != ']' && j+1 < len(src) && src[j+1] == closer {
						j += 2
						continue
					}
					break
				}
				j++
			}
			end := min(j+1, len(src))
			stmt.WriteString(string(src[i:end]))
			code.WriteString("''")
			i = end - 1

		case c == ';':
			if inTriggerBody(code.String()) {
				stmt.WriteRune(c)
				code.WriteRune(c)
				continue
			}
			flush()

		default:
			stmt.WriteRune(c)
			code.WriteRune(c)
		}
	}
	flush()
	return out
}

// inTriggerBody reports whether code is an unfinished CREATE TRIGGER
// statement, one whose body has not yet reached its closing END.
func inTriggerBody(code string) bool {
	words := strings.Fields(strings.ToUpper(code))
	if len(words) < 2 || words[0] != "CREATE" {
		return false
	}
	i := 1
	if words[i] == "TEMP" || words[i] == "TEMPORARY" {
		i++
	}
	if i >= len(words) || words[i] != "TRIGGER" {
		return false
	}
	trimmed := strings.TrimRightFunc(strings.ToUpper(code), unicode.IsSpace)
	if !strings.HasSuffix(trimmed, "END") {
		return true
	}
	before := strings.TrimSuffix(trimmed, "END")
	if before == "" {
		return true
	}
	r := rune(before[len(before)-1])
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
