package warehouse

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNotReadOnly is returned for generated statements that could modify data.
var ErrNotReadOnly = errors.New("only read-only queries are allowed")

var (
	leadingKeyword = regexp.MustCompile(`(?i)^\s*(select|with)\b`)
	writeKeyword   = regexp.MustCompile(`(?i)\b(insert|update|delete|merge|drop|create|alter|truncate|grant|revoke|attach|detach|pragma|call|execute)\b`)
)

// CheckReadOnly accepts a single SELECT or WITH statement. Backends run it
// again before querying. Keywords inside
// comments, string literals and quoted identifiers are ignored.
func CheckReadOnly(sql string) error {
	bare, ok := stripLiterals(sql)
	if !ok {
		return ErrNotReadOnly
	}
	bare = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(bare), ";"))
	if !leadingKeyword.MatchString(bare) {
		return ErrNotReadOnly
	}
	if strings.Contains(bare, ";") || writeKeyword.MatchString(bare) {
		return ErrNotReadOnly
	}
	return nil
}

// stripLiterals blanks comments and replaces quoted text with an empty
// literal. Backslashes inside quotes are rejected because SQLite and
// BigQuery disagree on whether they escape. Unterminated quotes or block
// comments are rejected too.
func stripLiterals(sql string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == '-' && strings.HasPrefix(sql[i:], "--"):
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				return b.String(), true
			}
			b.WriteByte(' ')
			i += end + 1
		case c == '/' && strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return "", false
			}
			b.WriteByte(' ')
			i += end + 4
		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for {
				if j >= len(sql) {
					return "", false
				}
				if sql[j] == '\\' {
					return "", false
				}
				if sql[j] == c {
					// A doubled quote is an escaped quote.
					if j+1 < len(sql) && sql[j+1] == c {
						j += 2
						continue
					}
					break
				}
				j++
			}
			b.WriteString("''")
			i = j + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), true
}
