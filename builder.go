// Package vcardio provides streaming vCard parsing and serialization.
//
// This file implements the built-in event sink that accumulates property
// events into a Card.
package vcardio

import (
	"fmt"

	"github.com/hupe1980/vcardio/dialect"
)

// CardBuilder is the built-in Sink. It accumulates property events into
// a Card and may be reused after Finish.
type CardBuilder struct {
	card Card
}

// NewCardBuilder creates an empty CardBuilder.
func NewCardBuilder() *CardBuilder {
	return &CardBuilder{}
}

// Consume implements Sink.
func (cb *CardBuilder) Consume(e Event) error {
	switch e.Name {
	case "VERSION", "UID", "FN", "KIND", "NICKNAME", "BDAY", "ANNIVERSARY", "GENDER", "NOTE", "PRODID":
		value, err := cb.text(e)
		if err != nil {
			return err
		}
		cb.setScalar(e, value)
	case "N":
		value, err := cb.text(e)
		if err != nil {
			return err
		}
		cb.setName(e.Dialect, value)
	case "ADR":
		value, err := cb.text(e)
		if err != nil {
			return err
		}
		cb.addAddress(e, value)
	case "EMAIL":
		value, err := cb.text(e)
		if err != nil {
			return err
		}
		cb.card.Emails = append(cb.card.Emails, Email{
			Address:  value,
			Label:    e.Label,
			Pref:     e.Pref,
			Position: len(cb.card.Emails),
		})
	case "TEL":
		value, err := cb.text(e)
		if err != nil {
			return err
		}
		cb.card.Phones = append(cb.card.Phones, Phone{
			Number:   value,
			Label:    e.Label,
			Pref:     e.Pref,
			Position: len(cb.card.Phones),
		})
	case "URL":
		value, err := cb.text(e)
		if err != nil {
			return err
		}
		cb.card.URLs = append(cb.card.URLs, URL{
			Address:  value,
			Label:    e.Label,
			Pref:     e.Pref,
			Position: len(cb.card.URLs),
		})
	case "IMPP":
		value, err := cb.text(e)
		if err != nil {
			return err
		}
		cb.card.IMPPs = append(cb.card.IMPPs, IMPP{
			URI:      value,
			Label:    e.Label,
			Pref:     e.Pref,
			Position: len(cb.card.IMPPs),
		})
	default:
		p := CustomProperty{
			Name:     e.Name,
			Params:   e.Params.String(),
			Label:    e.Label,
			Pref:     e.Pref,
			Position: len(cb.card.CustomProperties),
		}
		if e.Body != nil {
			p.Body = e.Body
		} else {
			p.Value = e.Value
		}
		cb.card.CustomProperties = append(cb.card.CustomProperties, p)
	}
	return nil
}

// Finish implements Sink. It returns the accumulated card and resets the
// builder for the next parse.
func (cb *CardBuilder) Finish() (*Card, error) {
	card := cb.card
	cb.card = Card{}
	return &card, nil
}

// text returns the event payload as a string. Payloads handed over as
// disk-backed handles are read back in full; only custom properties keep
// their handle.
func (cb *CardBuilder) text(e Event) (string, error) {
	if e.Body == nil {
		return e.Value, nil
	}

	value, err := e.Body.String()
	if err != nil {
		return "", fmt.Errorf("failed to read property %s: %w", e.Name, err)
	}

	if err := e.Body.Close(); err != nil {
		return "", fmt.Errorf("failed to release property %s: %w", e.Name, err)
	}

	return value, nil
}

// setScalar stores a recognized scalar field, last write wins. Textual
// fields are unescaped per dialect.
func (cb *CardBuilder) setScalar(e Event, value string) {
	switch e.Name {
	case "VERSION":
		cb.card.Version = value
	case "UID":
		cb.card.UID = value
	case "FN":
		cb.card.FormattedName = e.Dialect.Unescape(value)
	case "KIND":
		cb.card.Kind = value
	case "NICKNAME":
		cb.card.Nickname = e.Dialect.Unescape(value)
	case "BDAY":
		cb.card.Birthday = value
	case "ANNIVERSARY":
		cb.card.Anniversary = value
	case "GENDER":
		cb.card.Gender = value
	case "NOTE":
		cb.card.Note = e.Dialect.Unescape(value)
	case "PRODID":
		cb.card.ProductID = value
	}
}

// setName splits N into its five parts. All-blank parts leave Name nil.
func (cb *CardBuilder) setName(d dialect.Dialect, value string) {
	parts := splitStructured(d, value, 5)

	name := Name{
		Family:     parts[0],
		Given:      parts[1],
		Additional: parts[2],
		Prefix:     parts[3],
		Suffix:     parts[4],
	}
	if name == (Name{}) {
		cb.card.Name = nil
		return
	}
	cb.card.Name = &name
}

// addAddress splits ADR into its seven parts and appends the entry.
func (cb *CardBuilder) addAddress(e Event, value string) {
	parts := splitStructured(e.Dialect, value, 7)

	cb.card.Addresses = append(cb.card.Addresses, Address{
		POBox:       parts[0],
		ExtendedAdr: parts[1],
		Street:      parts[2],
		Locality:    parts[3],
		Region:      parts[4],
		PostalCode:  parts[5],
		Country:     parts[6],
		Label:       e.Label,
		Pref:        e.Pref,
		Position:    len(cb.card.Addresses),
	})
}

// splitStructured splits a structured value on unescaped semicolons into
// exactly n unescaped parts. Missing parts stay empty, extra parts are
// dropped.
func splitStructured(d dialect.Dialect, value string, n int) []string {
	parts := make([]string, n)
	for i, part := range dialect.SplitParts(value) {
		if i >= n {
			break
		}
		parts[i] = d.Unescape(part)
	}
	return parts
}
