package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a ledger-tracked quantity of a tradable good. Several tokens can
// share a name; each one is a separate batch of that product.
type Token struct {
	ID          uint64         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Creator     common.Address `json:"creator"`
	CreatedAt   time.Time      `json:"createdAt"`
	Attributes  []Attribute    `json:"attributes"`
}

type Attribute struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// SetAttribute overwrites the attribute with the same name in place, or
// appends it. Attribute order is the order names were first seen.
func (t *Token) SetAttribute(attr Attribute) {
	for i := range t.Attributes {
		if t.Attributes[i].Name == attr.Name {
			t.Attributes[i] = attr
			return
		}
	}
	t.Attributes = append(t.Attributes, attr)
}

// Attribute returns the named attribute if present.
func (t Token) Attribute(name string) (Attribute, bool) {
	for _, attr := range t.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}
