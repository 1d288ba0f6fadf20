package dashboard

import (
	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
)

// Direction selects which side of a transfer makes it relevant to a viewer.
type Direction uint8

const (
	Incoming Direction = 1 << iota
	Outgoing
)

func (d Direction) Has(other Direction) bool {
	return d&other != 0
}

// ViewPolicy decides which items a viewer sees.
type ViewPolicy struct {
	IncludeCreated     bool
	Directions         Direction
	AllItems           bool
	IncludeZeroBalance bool
}

var rolePolicies = map[domain.Role]ViewPolicy{
	domain.RoleProducer: {IncludeCreated: true, Directions: Incoming | Outgoing, IncludeZeroBalance: true},
	domain.RoleFactory:  {IncludeCreated: true, Directions: Incoming},
	domain.RoleRetailer: {Directions: Incoming},
	domain.RoleAdmin:    {AllItems: true, Directions: Incoming | Outgoing, IncludeZeroBalance: true},
}

// PolicyFor returns the default policy of a role. Unknown roles get the
// retailer policy, the narrowest one.
func PolicyFor(role domain.Role) ViewPolicy {
	if p, ok := rolePolicies[role]; ok {
		return p
	}
	return rolePolicies[domain.RoleRetailer]
}

// relevantTransfer reports whether a transfer event concerns identity under p.
func (p ViewPolicy) relevantTransfer(e domain.RawEvent, identity common.Address) bool {
	if p.AllItems {
		return true
	}
	if p.Directions.Has(Incoming) && e.To == identity {
		return true
	}
	return p.Directions.Has(Outgoing) && e.From == identity
}

func (p ViewPolicy) relevantCreated(e domain.RawEvent, identity common.Address) bool {
	if p.AllItems {
		return true
	}
	return p.IncludeCreated && e.Creator == identity
}
