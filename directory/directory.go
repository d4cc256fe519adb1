// Package directory keeps an in-memory, queryable collection of
// parsed cards. Membership queries (label, version, field presence)
// are answered from roaring bitmap postings, so combined filters
// cost a few bitmap operations instead of a scan.
package directory

import (
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vcardio"
)

// Query selects cards by the conjunction of its non-zero fields.
// Labels match any-of; Has terms must all be present.
type Query struct {
	// Labels matches cards carrying at least one entry with one of
	// these labels (case-insensitive), e.g. "work", "cell".
	Labels []string

	// Version matches the card's dialect version ("2.1", "3.0",
	// "4.0"). Empty means any.
	Version string

	// Has matches cards that carry all named fields: "email",
	// "phone", "address", "url", "impp", "name", "nickname",
	// "note", "birthday", or a custom property name like "photo".
	Has []string
}

// Directory is a mutable card collection with bitmap-indexed lookup.
// Safe for concurrent use.
type Directory struct {
	mu       sync.RWMutex
	nextID   uint32
	cards    map[uint32]*vcardio.Card
	all      *roaring.Bitmap
	postings map[string]*roaring.Bitmap // term -> member ids
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{
		cards:    make(map[uint32]*vcardio.Card),
		all:      roaring.New(),
		postings: make(map[string]*roaring.Bitmap),
	}
}

// Add stores card and returns its assigned id.
func (d *Directory) Add(card *vcardio.Card) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++

	d.cards[id] = card
	d.all.Add(id)

	for _, term := range terms(card) {
		bm, ok := d.postings[term]
		if !ok {
			bm = roaring.New()
			d.postings[term] = bm
		}
		bm.Add(id)
	}

	return id
}

// Get returns the card stored under id.
func (d *Directory) Get(id uint32) (*vcardio.Card, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	card, ok := d.cards[id]
	return card, ok
}

// Remove deletes the card stored under id. It reports whether the id
// was present.
func (d *Directory) Remove(id uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	card, ok := d.cards[id]
	if !ok {
		return false
	}

	delete(d.cards, id)
	d.all.Remove(id)

	for _, term := range terms(card) {
		bm, ok := d.postings[term]
		if !ok {
			continue
		}
		bm.Remove(id)
		if bm.IsEmpty() {
			delete(d.postings, term)
		}
	}

	return true
}

// Len returns the number of stored cards.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.cards)
}

// Find returns the ids of all cards matching q, ascending. A zero
// Query matches everything.
func (d *Directory) Find(q Query) []uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	acc := d.all.Clone()

	if len(q.Labels) > 0 {
		anyLabel := roaring.New()
		for _, label := range q.Labels {
			if bm, ok := d.postings["label:"+strings.ToLower(label)]; ok {
				anyLabel.Or(bm)
			}
		}
		acc.And(anyLabel)
	}

	if q.Version != "" {
		acc.And(d.posting("version:" + q.Version))
	}

	for _, field := range q.Has {
		acc.And(d.posting("has:" + strings.ToLower(field)))
		if acc.IsEmpty() {
			break
		}
	}

	return acc.ToArray()
}

// Walk calls fn for each stored card in id order until fn returns
// false.
func (d *Directory) Walk(fn func(id uint32, card *vcardio.Card) bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	it := d.all.Iterator()
	for it.HasNext() {
		id := it.Next()
		if !fn(id, d.cards[id]) {
			return
		}
	}
}

// IndexSize returns the serialized size of all posting bitmaps in
// bytes.
func (d *Directory) IndexSize() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var total uint64
	for _, bm := range d.postings {
		total += bm.GetSizeInBytes()
	}
	return total
}

var empty = roaring.New()

func (d *Directory) posting(term string) *roaring.Bitmap {
	if bm, ok := d.postings[term]; ok {
		return bm
	}
	return empty
}

// terms derives the index terms of a card. Labels and custom
// property names are folded to lower case.
func terms(card *vcardio.Card) []string {
	seen := make(map[string]struct{}, 8)

	add := func(term string) {
		seen[term] = struct{}{}
	}
	addLabel := func(label string) {
		if label != "" {
			add("label:" + strings.ToLower(label))
		}
	}

	version := card.Version
	if version == "" {
		version = "4.0"
	}
	add("version:" + version)

	if len(card.Emails) > 0 {
		add("has:email")
	}
	for _, e := range card.Emails {
		addLabel(e.Label)
	}

	if len(card.Phones) > 0 {
		add("has:phone")
	}
	for _, p := range card.Phones {
		addLabel(p.Label)
	}

	if len(card.Addresses) > 0 {
		add("has:address")
	}
	for _, a := range card.Addresses {
		addLabel(a.Label)
	}

	if len(card.URLs) > 0 {
		add("has:url")
	}
	for _, u := range card.URLs {
		addLabel(u.Label)
	}

	if len(card.IMPPs) > 0 {
		add("has:impp")
	}
	for _, im := range card.IMPPs {
		addLabel(im.Label)
	}

	if card.Name != nil {
		add("has:name")
	}
	if card.Nickname != "" {
		add("has:nickname")
	}
	if card.Note != "" {
		add("has:note")
	}
	if card.Birthday != "" {
		add("has:birthday")
	}

	for _, cp := range card.CustomProperties {
		add("has:" + strings.ToLower(cp.Name))
		addLabel(cp.Label)
	}

	out := make([]string, 0, len(seen))
	for term := range seen {
		out = append(out, term)
	}
	return out
}
