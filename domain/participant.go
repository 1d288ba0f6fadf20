package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Role string

const (
	RoleProducer Role = "producer"
	RoleFactory  Role = "factory"
	RoleRetailer Role = "retailer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleProducer, RoleFactory, RoleRetailer, RoleAdmin:
		return true
	}
	return false
}

type Participant struct {
	Address   string    `db:"address" json:"address"`
	Name      string    `db:"name" json:"name"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ParseAddress validates a hex ledger address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, &ValidationError{Field: "address", Reason: "is not a valid ledger address"}
	}
	return common.HexToAddress(s), nil
}
