package dialect

import (
	"strconv"
	"strings"

	"github.com/hupe1980/vcardio/spool"
)

// v30 implements the vCard 3.0 rules (RFC 2426): bare parameter tokens
// are TYPE values, no transport encoding, backslash text escaping.
type v30 struct{}

// Version returns "3.0".
func (v30) Version() string { return "3.0" }

// SoftLineBreaks reports false; 3.0 has no quoted-printable continuation.
func (v30) SoftLineBreaks() bool { return false }

// ParseParams applies the legacy grammar: a token without '=' is a bare
// TYPE value, except the literal PREF which sets preference 1.
func (v30) ParseParams(tokens []string) Params {
	return parseLegacyParams(tokens)
}

// TypeAndPref extracts label and preference from TYPE/PREF parameters.
func (v30) TypeAndPref(params Params) (string, int) {
	return typeAndPref(params)
}

// DecodeValue performs no transport decoding.
func (v30) DecodeValue(_ *Params, body *spool.Buffer, limit int64) (string, *spool.Buffer, error) {
	return decodePlain(body, limit)
}

// Unescape resolves backslash escape sequences.
func (v30) Unescape(s string) string { return unescapeText(s) }

// Escape applies backslash escaping.
func (v30) Escape(s string, structured bool) string { return escapeText(s, structured) }

// EncodeValue applies no transport encoding.
func (v30) EncodeValue(value string) (string, string) {
	return "", value
}

// RenderParams renders ;TYPE= and ;PREF= parameters.
func (v30) RenderParams(label string, pref int) string {
	return renderParamsModern(label, pref)
}

// parseLegacyParams is the shared 2.1/3.0 parameter grammar.
func parseLegacyParams(tokens []string) Params {
	var params Params
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		key, value, found := strings.Cut(tok, "=")
		if !found {
			if strings.EqualFold(tok, "PREF") {
				params.Set("PREF", "1")
			} else {
				params.AddType(tok)
			}
			continue
		}
		if strings.EqualFold(key, "TYPE") {
			params.AddType(value)
			continue
		}
		params = append(params, Param{Key: key, Value: value})
	}
	return params
}

// renderParamsModern renders 3.0/4.0 style collection entry parameters.
func renderParamsModern(label string, pref int) string {
	if label == "" && pref <= 0 {
		return ""
	}

	var sb strings.Builder
	if label != "" {
		sb.WriteString(";TYPE=")
		sb.WriteString(label)
	}
	if pref > 0 {
		sb.WriteString(";PREF=")
		sb.WriteString(strconv.Itoa(pref))
	}
	return sb.String()
}
