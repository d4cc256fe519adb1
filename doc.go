// Package vcardio provides streaming vCard parsing and serialization for Go.
//
// Vcardio reads and writes vCard 2.1, 3.0, and 4.0 text with bounded
// memory: property values larger than a configurable threshold spill to
// disk-backed buffers instead of being materialized as strings.
//
// # Quick Start
//
// Parse a single card:
//
//	card, _ := vcardio.ParseString(input)
//	fmt.Println(card.FormattedName, card.Version)
//
// Decode a stream of concatenated cards:
//
//	dec := vcardio.NewDecoder(f)
//	for {
//	    card, err := dec.Decode()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    process(card)
//	}
//
// Serialize a card back to text:
//
//	text, _ := vcardio.Serialize(card)
//
// # Dialects
//
// The VERSION property selects the rule set. 2.1 uses bare parameter
// tokens, quoted-printable/base64 transport encoding, and no backslash
// escaping; 3.0 and 4.0 use KEY=VALUE parameters and backslash escaping.
// The version is auto-detected per card; pin it with WithDialect:
//
//	card, _ := vcardio.ParseString(input, vcardio.WithDialect(dialect.V21))
//
// # Large Values
//
// Values whose size exceeds the spool threshold (default 1 MiB) are
// reported as *spool.Buffer handles on custom properties instead of
// strings. The caller owns these handles and must Close them:
//
//	card, _ := vcardio.Parse(r, vcardio.WithSpoolThreshold(64<<10))
//	for _, p := range card.CustomProperties {
//	    if p.Body != nil {
//	        defer p.Body.Close()
//	        ...
//	    }
//	}
//
// # Custom Sinks
//
// The built-in accumulator can be replaced with any Sink to process
// properties on the fly without building a Card:
//
//	type counter struct{ n int }
//
//	func (c *counter) Consume(e vcardio.Event) error { c.n++; return nil }
//	func (c *counter) Finish() (*vcardio.Card, error) { return nil, nil }
//
//	vcardio.Parse(r, vcardio.WithSink(&counter{}))
//
// # Key Features
//
//   - Chunk-size independent line unfolding (CRLF/LF/CR, RFC folding,
//     2.1 soft line breaks)
//   - Transparent memory-to-disk buffer promotion for oversized values
//   - Dialect-aware parameter grammar, transport decoding, and escaping
//   - Pluggable event sink for streaming consumption
//   - Structured logging (log/slog) and pluggable metrics
package vcardio
