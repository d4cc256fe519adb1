package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/hupe1980/vcardio"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

var (
	givenNames = []string{
		"Alice", "Bob", "Carol", "Dan", "Erin", "Frank", "Grace",
		"Heidi", "Ivan", "Judy", "Mallory", "Niaj", "Olivia", "Peggy",
		"Rupert", "Sybil", "Trent", "Uma", "Victor", "Wendy",
	}
	familyNames = []string{
		"Anderson", "Brown", "Clark", "Davis", "Evans", "Fischer",
		"Garcia", "Hansen", "Ito", "Jones", "Kim", "Lopez", "Miller",
		"Novak", "Olsen", "Park", "Quinn", "Rossi", "Schmidt", "Tran",
	}
	streets = []string{
		"Main St", "Oak Ave", "Park Rd", "Elm St", "Lake Dr",
		"Hill Ln", "River Way", "Forest Blvd",
	}
	cities = []string{
		"Springfield", "Riverton", "Lakeside", "Hillview",
		"Brookfield", "Fairmont", "Georgetown", "Kingston",
	}
	labels   = []string{"work", "home", "cell", "voice"}
	versions = []string{"2.1", "3.0", "4.0"}
)

// Card generates one random contact. Roughly half the cards carry a
// phone number, a third an address, and a fifth a note, so batches
// exercise both sparse and dense cards.
func (r *RNG) Card() *vcardio.Card {
	r.mu.Lock()
	defer r.mu.Unlock()

	given := givenNames[r.rand.Intn(len(givenNames))]
	family := familyNames[r.rand.Intn(len(familyNames))]

	card := &vcardio.Card{
		Version:       versions[r.rand.Intn(len(versions))],
		UID:           fmt.Sprintf("urn:uuid:%08x-%04x", r.rand.Intn(1<<30), r.rand.Intn(1<<16)),
		FormattedName: given + " " + family,
		Name: &vcardio.Name{
			Family: family,
			Given:  given,
		},
	}

	for i := 0; i <= r.rand.Intn(2); i++ {
		card.Emails = append(card.Emails, vcardio.Email{
			Address:  fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(given), strings.ToLower(family), i),
			Label:    labels[r.rand.Intn(len(labels))],
			Position: i,
		})
	}

	if r.rand.Intn(2) == 0 {
		card.Phones = append(card.Phones, vcardio.Phone{
			Number: fmt.Sprintf("+1-555-%04d", r.rand.Intn(10000)),
			Label:  labels[r.rand.Intn(len(labels))],
			Pref:   1,
		})
	}

	if r.rand.Intn(3) == 0 {
		card.Addresses = append(card.Addresses, vcardio.Address{
			Street:     fmt.Sprintf("%d %s", 1+r.rand.Intn(999), streets[r.rand.Intn(len(streets))]),
			Locality:   cities[r.rand.Intn(len(cities))],
			PostalCode: fmt.Sprintf("%05d", r.rand.Intn(100000)),
			Country:    "USA",
			Label:      "home",
		})
	}

	if r.rand.Intn(5) == 0 {
		card.Note = "Met at the " + cities[r.rand.Intn(len(cities))] + " conference."
	}

	return card
}

// Cards generates a deterministic batch of n contacts.
func (r *RNG) Cards(n int) []*vcardio.Card {
	cards := make([]*vcardio.Card, n)
	for i := range cards {
		cards[i] = r.Card()
	}
	return cards
}

// Stream serializes cards into one concatenated vCard stream, each
// card in its own dialect.
func Stream(cards []*vcardio.Card) (string, error) {
	var sb strings.Builder
	for _, card := range cards {
		s, err := vcardio.Serialize(card)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}
