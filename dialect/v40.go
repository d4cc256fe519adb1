package dialect

import (
	"strings"

	"github.com/hupe1980/vcardio/spool"
)

// v40 implements the vCard 4.0 rules (RFC 6350): strict KEY=VALUE
// parameters, no transport encoding, backslash text escaping.
type v40 struct{}

// Version returns "4.0".
func (v40) Version() string { return "4.0" }

// SoftLineBreaks reports false; 4.0 has no quoted-printable continuation.
func (v40) SoftLineBreaks() bool { return false }

// ParseParams treats every token as KEY=VALUE. Bare tokens are not a
// supported form; they are kept as empty-valued keys rather than being
// interpreted, so they surface verbatim on catch-all properties. Repeated
// TYPE parameters aggregate into one comma-joined value.
func (v40) ParseParams(tokens []string) Params {
	var params Params
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		key, value, found := strings.Cut(tok, "=")
		if !found {
			params = append(params, Param{Key: tok})
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

// TypeAndPref extracts label and preference from TYPE/PREF parameters.
func (v40) TypeAndPref(params Params) (string, int) {
	return typeAndPref(params)
}

// DecodeValue performs no transport decoding.
func (v40) DecodeValue(_ *Params, body *spool.Buffer, limit int64) (string, *spool.Buffer, error) {
	return decodePlain(body, limit)
}

// Unescape resolves backslash escape sequences.
func (v40) Unescape(s string) string { return unescapeText(s) }

// Escape applies backslash escaping.
func (v40) Escape(s string, structured bool) string { return escapeText(s, structured) }

// EncodeValue applies no transport encoding.
func (v40) EncodeValue(value string) (string, string) {
	return "", value
}

// RenderParams renders ;TYPE= and ;PREF= parameters.
func (v40) RenderParams(label string, pref int) string {
	return renderParamsModern(label, pref)
}

// decodePlain reads the value into a string unless its unread size
// strictly exceeds the limit, in which case the handle is returned
// untouched.
func decodePlain(body *spool.Buffer, limit int64) (string, *spool.Buffer, error) {
	if body.Remaining() > limit {
		return "", body, nil
	}
	s, err := body.String()
	if err != nil {
		return "", nil, err
	}
	return s, nil, nil
}
