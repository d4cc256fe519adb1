package dialect

import (
	"mime/quotedprintable"
	"strings"
)

// unescapeText resolves the four escape sequences in one left-to-right
// pass: \n and \N to LF, \, to comma, \; to semicolon, \\ to backslash.
// A single pass guarantees that the output of one substitution is never
// reprocessed (a literal `\\n` decodes to `\n`, not to a line feed).
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n', 'N':
				sb.WriteByte('\n')
				i++
				continue
			case ',':
				sb.WriteByte(',')
				i++
				continue
			case ';':
				sb.WriteByte(';')
				i++
				continue
			case '\\':
				sb.WriteByte('\\')
				i++
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// escapeText is the output-side inverse of unescapeText. Semicolons are
// only escaped inside structured multi-part values; top-level scalars
// keep them verbatim.
func escapeText(s string, structured bool) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			sb.WriteString(`\\`)
		case ',':
			sb.WriteString(`\,`)
		case '\n':
			sb.WriteString(`\n`)
		case ';':
			if structured {
				sb.WriteString(`\;`)
			} else {
				sb.WriteByte(c)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// SplitParts splits a structured value on unescaped semicolons. A
// semicolon preceded by a backslash stays part of its field. The parts
// are returned still escaped.
func SplitParts(s string) []string {
	var parts []string
	var sb strings.Builder

	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			sb.WriteByte(c)
			escaped = false
			continue
		}
		switch c {
		case '\\':
			sb.WriteByte(c)
			escaped = true
		case ';':
			parts = append(parts, sb.String())
			sb.Reset()
		default:
			sb.WriteByte(c)
		}
	}
	parts = append(parts, sb.String())

	return parts
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// qpEncode encodes a value as quoted-printable with embedded newlines
// rendered as CRLF and the trailing soft break artifact stripped.
func qpEncode(s string) string {
	var sb strings.Builder
	w := quotedprintable.NewWriter(&sb)
	_, _ = w.Write([]byte(s)) // writes to strings.Builder cannot fail
	_ = w.Close()
	return strings.TrimSuffix(sb.String(), "=\r\n")
}
