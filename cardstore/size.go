package cardstore

import (
	"github.com/hupe1980/vcardio"
)

const (
	perCardOverhead  = 512
	perEntryOverhead = 64
)

// CardSize approximates the memory held by a parsed card. Callers use
// it to account cards against cache capacities and import admission
// budgets. Spilled property bodies live on disk and count only their
// fixed overhead.
func CardSize(card *vcardio.Card) int64 {
	size := int64(perCardOverhead)

	size += int64(len(card.Version) + len(card.UID) + len(card.FormattedName) +
		len(card.Kind) + len(card.Nickname) + len(card.Birthday) +
		len(card.Anniversary) + len(card.Gender) + len(card.Note) + len(card.ProductID))

	if card.Name != nil {
		size += int64(len(card.Name.Family) + len(card.Name.Given) +
			len(card.Name.Additional) + len(card.Name.Prefix) + len(card.Name.Suffix))
	}

	for _, e := range card.Emails {
		size += int64(len(e.Address)+len(e.Label)) + perEntryOverhead
	}
	for _, p := range card.Phones {
		size += int64(len(p.Number)+len(p.Label)) + perEntryOverhead
	}
	for _, a := range card.Addresses {
		size += int64(len(a.POBox)+len(a.ExtendedAdr)+len(a.Street)+len(a.Locality)+
			len(a.Region)+len(a.PostalCode)+len(a.Country)+len(a.Label)) + perEntryOverhead
	}
	for _, u := range card.URLs {
		size += int64(len(u.Address)+len(u.Label)) + perEntryOverhead
	}
	for _, im := range card.IMPPs {
		size += int64(len(im.URI)+len(im.Label)) + perEntryOverhead
	}

	for i := range card.CustomProperties {
		p := &card.CustomProperties[i]
		size += int64(len(p.Name)+len(p.Params)+len(p.Value)+len(p.Label)) + perEntryOverhead
		if p.Body != nil && !p.Body.Spilled() {
			size += p.Body.Len()
		}
	}

	return size
}
