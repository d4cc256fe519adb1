package dialect

import (
	"encoding/base64"
	"io"
	"mime/quotedprintable"
	"strings"

	"github.com/hupe1980/vcardio/spool"
)

// v21 implements the vCard 2.1 rules (versit): bare parameter tokens,
// quoted-printable and base64 transport encoding, no backslash escaping
// in either direction.
type v21 struct{}

// Version returns "2.1".
func (v21) Version() string { return "2.1" }

// SoftLineBreaks reports true; 2.1 quoted-printable values continue
// across a trailing '='.
func (v21) SoftLineBreaks() bool { return true }

// ParseParams applies the legacy grammar: a token without '=' is a bare
// TYPE value, except the literal PREF which sets preference 1.
func (v21) ParseParams(tokens []string) Params {
	return parseLegacyParams(tokens)
}

// TypeAndPref extracts label and preference from TYPE/PREF parameters.
func (v21) TypeAndPref(params Params) (string, int) {
	return typeAndPref(params)
}

// DecodeValue resolves the ENCODING parameter: quoted-printable values
// decode as UTF-8, base64 values decode to raw bytes, and both drop the
// ENCODING and CHARSET parameters so they cannot leak into catch-all
// parameter strings. Values above the limit skip decoding entirely
// (decoding needs the whole value in memory) and keep ENCODING on the
// handle so consumers can decode out of band.
func (v21) DecodeValue(params *Params, body *spool.Buffer, limit int64) (string, *spool.Buffer, error) {
	if body.Remaining() > limit {
		return "", body, nil
	}

	enc, _ := params.Get("ENCODING")
	switch strings.ToUpper(enc) {
	case "QUOTED-PRINTABLE":
		params.Del("ENCODING")
		params.Del("CHARSET")

		raw, err := body.String()
		if err != nil {
			return "", nil, err
		}
		decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(raw)))
		if err != nil {
			return "", nil, newDecodeError("quoted-printable", err)
		}
		return string(decoded), nil, nil

	case "BASE64", "B":
		params.Del("ENCODING")
		params.Del("CHARSET")

		raw, err := body.String()
		if err != nil {
			return "", nil, err
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return "", nil, newDecodeError("base64", err)
		}
		return string(decoded), nil, nil

	default:
		s, err := body.String()
		if err != nil {
			return "", nil, err
		}
		return s, nil, nil
	}
}

// Unescape passes text through verbatim; 2.1 never resolves backslash
// sequences.
func (v21) Unescape(s string) string { return s }

// Escape passes text through verbatim.
func (v21) Escape(s string, _ bool) string { return s }

// EncodeValue emits ASCII values unchanged. Values with non-ASCII bytes
// switch the line to quoted-printable transport.
func (v21) EncodeValue(value string) (string, string) {
	if isASCII(value) {
		return "", value
	}
	return ";ENCODING=QUOTED-PRINTABLE;CHARSET=UTF-8", qpEncode(value)
}

// RenderParams renders the label as a bare upper-cased token and the
// preference as a bare PREF token.
func (v21) RenderParams(label string, pref int) string {
	if label == "" && pref <= 0 {
		return ""
	}

	var sb strings.Builder
	if label != "" {
		sb.WriteByte(';')
		sb.WriteString(strings.ToUpper(label))
	}
	if pref > 0 {
		sb.WriteString(";PREF")
	}
	return sb.String()
}
