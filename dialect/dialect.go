// Package dialect implements the version-specific rule sets of the vCard
// format.
//
// vCard 2.1, 3.0, and 4.0 disagree on parameter grammar, value transport
// encoding, and text escaping. Each version is captured as a [Dialect]
// strategy selected once per parse or serialize; the rest of the pipeline
// never branches on the version.
//
// Known quirk, kept on purpose: the escape path escapes semicolons only
// inside structured multi-part values (N, ADR), while the unescape path
// resolves `\;` everywhere. Both directions reproduce the historic
// behavior exactly.
package dialect

import (
	"strings"

	"github.com/hupe1980/vcardio/spool"
)

// Dialect is the rule set of one vCard version. Implementations are
// stateless values and safe for concurrent use.
type Dialect interface {
	// Version returns the version string ("2.1", "3.0", "4.0").
	Version() string

	// SoftLineBreaks reports whether the dialect continues
	// quoted-printable lines across a trailing '=' (2.1 only).
	SoftLineBreaks() bool

	// ParseParams applies the dialect parameter grammar to the raw
	// semicolon-separated tokens between property name and value.
	ParseParams(tokens []string) Params

	// TypeAndPref extracts the display label and preference rank.
	// The label is the first TYPE value that is not the literal token
	// "pref", lower-cased; "" when absent. The preference is 1 when the
	// TYPE values include "pref", otherwise the numeric PREF parameter,
	// otherwise 0.
	TypeAndPref(params Params) (label string, pref int)

	// DecodeValue turns the raw value bytes into the reported value.
	// Values whose unread size strictly exceeds limit are returned as the
	// untouched handle instead of a string; exactly one of value and
	// handle is meaningful. 2.1 removes transport encoding (and the
	// ENCODING/CHARSET parameters) for in-memory values.
	DecodeValue(params *Params, body *spool.Buffer, limit int64) (value string, handle *spool.Buffer, err error)

	// Unescape resolves backslash escape sequences in text values.
	// 2.1 passes text through verbatim.
	Unescape(s string) string

	// Escape is the inverse of Unescape for output. Semicolons are only
	// escaped inside structured multi-part values.
	Escape(s string, structured bool) string

	// EncodeValue applies the dialect transport encoding to one output
	// value. It returns extra parameters to emit after the property name
	// and the encoded value. Only 2.1 encodes (quoted-printable for
	// non-ASCII values); 3.0/4.0 pass the value through. Text escaping is
	// a separate concern, see Escape.
	EncodeValue(value string) (params string, encoded string)

	// RenderParams renders the label and preference of a collection
	// entry in the dialect parameter style, including any leading
	// semicolon.
	RenderParams(label string, pref int) string
}

// ByVersion returns a built-in dialect by its version string.
func ByVersion(version string) (Dialect, bool) {
	switch strings.TrimSpace(version) {
	case "2.1":
		return V21, true
	case "3.0":
		return V30, true
	case "4.0":
		return V40, true
	default:
		return nil, false
	}
}

// Built-in dialects.
var (
	V21 Dialect = v21{}
	V30 Dialect = v30{}
	V40 Dialect = v40{}
)

// Default is the dialect used when no VERSION property is present or its
// value is not recognized.
var Default = V40
