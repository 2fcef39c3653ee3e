package values

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Credits represents a platform currency amount. Amounts are always
// non-negative; debits are modeled as holds and transfers, never as
// negative values.
type Credits struct {
	amount decimal.Decimal
}

// NewCredits creates a Credits value object.
func NewCredits(amount decimal.Decimal) (Credits, error) {
	if amount.IsNegative() {
		return Credits{}, fmt.Errorf("credits cannot be negative: %s", amount)
	}
	return Credits{amount: amount}, nil
}

// NewCreditsFromInt creates Credits from a whole amount.
func NewCreditsFromInt(amount int64) (Credits, error) {
	return NewCredits(decimal.NewFromInt(amount))
}

// NewCreditsFromString creates Credits from a decimal string.
func NewCreditsFromString(amount string) (Credits, error) {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return Credits{}, fmt.Errorf("invalid amount: %w", err)
	}
	return NewCredits(dec)
}

// MustCredits creates Credits from a whole amount and panics on error.
// For constants and tests.
func MustCredits(amount int64) Credits {
	c, err := NewCreditsFromInt(amount)
	if err != nil {
		panic(err)
	}
	return c
}

// ZeroCredits returns the zero value.
func ZeroCredits() Credits {
	return Credits{amount: decimal.Zero}
}

// Amount returns the decimal amount.
func (c Credits) Amount() decimal.Decimal {
	return c.amount
}

// String returns the formatted amount (e.g. "150 CR").
func (c Credits) String() string {
	return c.amount.String() + " CR"
}

// IsZero checks if the amount is zero.
func (c Credits) IsZero() bool {
	return c.amount.IsZero()
}

// IsPositive checks if the amount is positive.
func (c Credits) IsPositive() bool {
	return c.amount.IsPositive()
}

// Add returns the sum of two amounts.
func (c Credits) Add(other Credits) Credits {
	return Credits{amount: c.amount.Add(other.amount)}
}

// Sub returns the difference, floored at zero.
func (c Credits) Sub(other Credits) Credits {
	result := c.amount.Sub(other.amount)
	if result.IsNegative() {
		return ZeroCredits()
	}
	return Credits{amount: result}
}

// Min returns the smaller of two amounts.
func (c Credits) Min(other Credits) Credits {
	if c.amount.LessThan(other.amount) {
		return c
	}
	return other
}

// Compare returns -1, 0, or 1.
func (c Credits) Compare(other Credits) int {
	return c.amount.Cmp(other.amount)
}

// Equal checks amount equality.
func (c Credits) Equal(other Credits) bool {
	return c.amount.Equal(other.amount)
}

// GreaterThan checks if this amount exceeds the other.
func (c Credits) GreaterThan(other Credits) bool {
	return c.amount.GreaterThan(other.amount)
}

// GreaterThanOrEqual checks if this amount is at least the other.
func (c Credits) GreaterThanOrEqual(other Credits) bool {
	return c.amount.GreaterThanOrEqual(other.amount)
}

// LessThan checks if this amount is below the other.
func (c Credits) LessThan(other Credits) bool {
	return c.amount.LessThan(other.amount)
}

// MarshalJSON implements json.Marshaler, encoding as a decimal string.
func (c Credits) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.amount.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Credits) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("credits must be a decimal string: %w", err)
	}
	parsed, err := NewCreditsFromString(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer for database storage.
func (c Credits) Value() (driver.Value, error) {
	return c.amount.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (c *Credits) Scan(value interface{}) error {
	if value == nil {
		*c = ZeroCredits()
		return nil
	}

	var dec decimal.Decimal
	var err error
	switch v := value.(type) {
	case []byte:
		dec, err = decimal.NewFromString(string(v))
	case string:
		dec, err = decimal.NewFromString(v)
	case int64:
		dec = decimal.NewFromInt(v)
	case float64:
		dec = decimal.NewFromFloat(v)
	default:
		return fmt.Errorf("cannot scan %T into Credits", value)
	}
	if err != nil {
		return fmt.Errorf("invalid credits value: %w", err)
	}

	parsed, err := NewCredits(dec)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
