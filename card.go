package vcardio

import (
	"github.com/hupe1980/vcardio/spool"
)

// Card is a parsed contact record. Scalar fields are optional strings
// where the empty string means absent. Collection fields preserve the
// original order of occurrence; that order is recoverable through the
// zero-based Position counter kept independently per collection.
//
// A Card is built once per parse (or once by the caller for
// serialization) and is immutable data thereafter. The serializer never
// mutates it.
type Card struct {
	// Version is the dialect the card was parsed with or should be
	// serialized as ("2.1", "3.0", "4.0"). Empty means 4.0.
	Version string

	// UID is the globally unique identifier of the contact.
	UID string

	// FormattedName is the display name (FN).
	FormattedName string

	// Name holds the structured name parts (N), nil when absent.
	Name *Name

	// Kind classifies the contact (individual, org, group, location).
	Kind string

	Nickname    string
	Birthday    string
	Anniversary string
	Gender      string
	Note        string
	ProductID   string

	Emails    []Email
	Phones    []Phone
	Addresses []Address
	URLs      []URL
	IMPPs     []IMPP

	// CustomProperties captures every property not mapped to a
	// first-class field, losslessly.
	CustomProperties []CustomProperty
}

// Name holds the five ordered parts of a structured name (N).
// Blank parts are stored as empty strings.
type Name struct {
	Family     string
	Given      string
	Additional string
	Prefix     string
	Suffix     string
}

// Email is a single EMAIL entry.
type Email struct {
	// Address is the email address payload.
	Address string

	// Label is the first non-preference TYPE value, lower-cased.
	// Empty when the property carried no type.
	Label string

	// Pref is the preference rank (1 = most preferred), 0 when absent.
	Pref int

	// Position is the zero-based occurrence index within the email
	// collection.
	Position int
}

// Phone is a single TEL entry.
type Phone struct {
	Number   string
	Label    string
	Pref     int
	Position int
}

// Address is a single ADR entry with its seven ordered parts.
type Address struct {
	POBox       string
	ExtendedAdr string
	Street      string
	Locality    string
	Region      string
	PostalCode  string
	Country     string

	Label    string
	Pref     int
	Position int
}

// URL is a single URL entry.
type URL struct {
	Address  string
	Label    string
	Pref     int
	Position int
}

// IMPP is a single instant-messaging handle (IMPP) entry.
type IMPP struct {
	URI      string
	Label    string
	Pref     int
	Position int
}

// CustomProperty preserves a property that has no first-class field.
// The value is passed through without unescaping.
type CustomProperty struct {
	// Name is the original property name, upper-cased.
	Name string

	// Params is the leftover parameter string: every surviving
	// KEY=VALUE pair after dialect processing, joined with ';' in
	// encounter order. Empty when none remain.
	Params string

	// Value is the in-memory payload. Empty when Body is set.
	Value string

	// Body is the disk-backed payload handle for values above the
	// spool threshold, nil otherwise. The caller owns the handle and
	// must Close it.
	Body *spool.Buffer

	Label    string
	Pref     int
	Position int
}
