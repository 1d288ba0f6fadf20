package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// QuantityScale is the number of raw ledger units in one kilogram.
const QuantityScale = 1000

var (
	quantityScale = decimal.NewFromInt(QuantityScale)
	maxQuantity   = decimal.NewFromInt(math.MaxInt64)
)

// Quantity is an amount as stored on the ledger, in raw units.
type Quantity int64

// Kilograms returns the display value of q, exact to three decimals.
func (q Quantity) Kilograms() decimal.Decimal {
	return decimal.New(int64(q), -3)
}

func (q Quantity) String() string {
	return q.Kilograms().StringFixed(3)
}

// BigInt returns q as the uint256 value the contract expects.
func (q Quantity) BigInt() *big.Int {
	return big.NewInt(int64(q))
}

type quantityJSON struct {
	Raw       int64  `json:"raw"`
	Kilograms string `json:"kg"`
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(quantityJSON{Raw: int64(q), Kilograms: q.String()})
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var v quantityJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*q = Quantity(v.Raw)
	return nil
}

// QuantityFromKilograms converts a kilogram amount to raw units. The amount
// is rounded to three decimals and the raw integer is derived with an
// explicit floor.
func QuantityFromKilograms(kg decimal.Decimal) (Quantity, error) {
	if kg.IsNegative() {
		return 0, &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}

	raw := kg.Round(3).Mul(quantityScale).Floor()
	if raw.GreaterThan(maxQuantity) {
		return 0, &ValidationError{Field: "quantity", Reason: "is too large"}
	}

	return Quantity(raw.IntPart()), nil
}

// ParseKilograms parses a user supplied kilogram amount such as "12.5".
func ParseKilograms(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "quantity", Reason: "is required"}
	}

	kg, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &ValidationError{Field: "quantity", Reason: fmt.Sprintf("%q is not a number", s)}
	}

	return QuantityFromKilograms(kg)
}

// QuantityFromBig converts a uint256 read from the ledger.
func QuantityFromBig(v *big.Int) (Quantity, error) {
	if v == nil {
		return 0, nil
	}
	if v.Sign() < 0 || !v.IsInt64() {
		return 0, fmt.Errorf("quantity %s out of range", v.String())
	}
	return Quantity(v.Int64()), nil
}
