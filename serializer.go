// Package vcardio provides streaming vCard parsing and serialization.
//
// This file implements the card serializer.
package vcardio

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/vcardio/dialect"
)

// Serialize renders a card as vCard text, one CRLF-terminated line per
// property. The serializer never mutates the card.
//
// The dialect is taken from WithDialect when set, otherwise from the
// card's Version field; unknown versions serialize under 4.0 rules.
func Serialize(card *Card, optFns ...Option) (string, error) {
	opts := applyOptions(optFns)
	start := time.Now()

	text, version, err := serialize(card, &opts)

	opts.metricsCollector.RecordSerialize(len(text), time.Since(start), err)
	opts.logger.LogSerialize(version, len(text), err)

	return text, err
}

func serialize(card *Card, opts *options) (string, string, error) {
	if card == nil {
		return "", "", ErrNilCard
	}

	d := opts.dialect
	if d == nil {
		if byVersion, ok := dialect.ByVersion(card.Version); ok {
			d = byVersion
		} else {
			d = dialect.Default
		}
	}

	version := card.Version
	if version == "" {
		version = d.Version()
	}

	var sb strings.Builder

	writeLine := func(parts ...string) {
		for _, p := range parts {
			sb.WriteString(p)
		}
		sb.WriteString("\r\n")
	}

	// Escaped text scalars go through the dialect escape rules, raw
	// scalars only through the transport encoding.
	scalar := func(name, value string, text bool) {
		if text {
			value = d.Escape(value, false)
		}
		params, encoded := d.EncodeValue(value)
		writeLine(name, params, ":", encoded)
	}

	writeLine("BEGIN:VCARD")
	writeLine("VERSION:", version)
	scalar("UID", card.UID, false)

	if card.Name != nil && *card.Name != (Name{}) {
		writeLine("N:", joinStructured(d,
			card.Name.Family,
			card.Name.Given,
			card.Name.Additional,
			card.Name.Prefix,
			card.Name.Suffix,
		))
	}

	scalar("FN", card.FormattedName, true)

	if card.Kind != "" {
		scalar("KIND", card.Kind, false)
	}
	if card.Nickname != "" {
		scalar("NICKNAME", card.Nickname, true)
	}
	if card.Birthday != "" {
		scalar("BDAY", card.Birthday, false)
	}
	if card.Anniversary != "" {
		scalar("ANNIVERSARY", card.Anniversary, false)
	}
	if card.Gender != "" {
		scalar("GENDER", card.Gender, false)
	}
	if card.Note != "" {
		scalar("NOTE", card.Note, true)
	}
	if card.ProductID != "" {
		scalar("PRODID", card.ProductID, false)
	}

	for _, e := range card.Emails {
		writeLine("EMAIL", d.RenderParams(e.Label, e.Pref), ":", e.Address)
	}
	for _, ph := range card.Phones {
		writeLine("TEL", d.RenderParams(ph.Label, ph.Pref), ":", ph.Number)
	}
	for _, a := range card.Addresses {
		writeLine("ADR", d.RenderParams(a.Label, a.Pref), ":", joinStructured(d,
			a.POBox,
			a.ExtendedAdr,
			a.Street,
			a.Locality,
			a.Region,
			a.PostalCode,
			a.Country,
		))
	}
	for _, u := range card.URLs {
		writeLine("URL", d.RenderParams(u.Label, u.Pref), ":", u.Address)
	}
	for _, im := range card.IMPPs {
		writeLine("IMPP", d.RenderParams(im.Label, im.Pref), ":", im.URI)
	}

	for _, cp := range card.CustomProperties {
		value := cp.Value
		if cp.Body != nil {
			// Disk-backed payloads are fully read back to build the
			// line; serialization is not itself streaming.
			s, err := cp.Body.String()
			if err != nil {
				return "", version, fmt.Errorf("failed to read property %s: %w", cp.Name, err)
			}
			value = s
		}

		line := cp.Name + d.RenderParams(cp.Label, cp.Pref)
		if cp.Params != "" {
			line += ";" + cp.Params
		}
		writeLine(line, ":", value)
	}

	writeLine("END:VCARD")

	return sb.String(), version, nil
}

// joinStructured escapes the parts of a structured value and joins them
// with semicolons.
func joinStructured(d dialect.Dialect, parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = d.Escape(p, true)
	}
	return strings.Join(escaped, ";")
}
