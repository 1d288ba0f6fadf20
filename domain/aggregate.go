package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Batch is one token inside an aggregate, with the viewer's balance of it.
type Batch struct {
	ID          uint64         `json:"id"`
	Balance     Quantity       `json:"balance"`
	CreatedAt   time.Time      `json:"createdAt"`
	Description string         `json:"description,omitempty"`
	Creator     common.Address `json:"creator"`
	Attributes  []Attribute    `json:"attributes"`
}

// Aggregate groups every token sharing a product name.
type Aggregate struct {
	Name          string   `json:"name"`
	TotalBalance  Quantity `json:"totalBalance"`
	RelatedTokens []Batch  `json:"relatedTokens"`
}

func NewAggregate(name string) *Aggregate {
	return &Aggregate{Name: name, RelatedTokens: make([]Batch, 0, 1)}
}

// Add appends a batch and keeps TotalBalance equal to the sum of balances.
// A batch already present is ignored.
func (a *Aggregate) Add(b Batch) bool {
	for _, existing := range a.RelatedTokens {
		if existing.ID == b.ID {
			return false
		}
	}
	a.RelatedTokens = append(a.RelatedTokens, b)
	a.TotalBalance += b.Balance
	return true
}

// FirstCreatedAt is the creation time of the first batch added.
func (a *Aggregate) FirstCreatedAt() time.Time {
	if len(a.RelatedTokens) == 0 {
		return time.Time{}
	}
	return a.RelatedTokens[0].CreatedAt
}
