// Package lineio reconstructs logical vCard property lines from a raw
// byte stream.
//
// On the wire a single property can span several physical lines: RFC line
// folding continues a line when the bytes after the ending are a space or
// tab, and vCard 2.1 quoted-printable values continue across a trailing
// '=' soft break. The [Unfolder] undoes both, accepts CRLF, LF, and CR
// endings, and is insensitive to how the source chunks its bytes: a CR
// arriving as the last byte of one chunk and its LF as the first byte of
// the next are still one ending.
//
// Each logical line is returned as a fresh [spool.Buffer], so oversized
// property values (embedded photos, certificates) spill to disk instead
// of growing in memory.
package lineio
