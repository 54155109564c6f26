package amount

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Amount is a non-negative fixed-point integer in the asset's minor unit
// (wei for the native coin, 10^-6 units for the stablecoins). It stores as
// DECIMAL(38,0) and marshals to a JSON string so precision survives both
// the database and ethers-style clients.
type Amount struct {
	v big.Int
}

var reDigits = func(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func New(v int64) Amount {
	var a Amount
	a.v.SetInt64(v)
	return a
}

func FromBigInt(v *big.Int) (Amount, error) {
	var a Amount
	if v == nil || v.Sign() < 0 {
		return a, errors.New("amount must be non-negative")
	}
	a.v.Set(v)
	return a, nil
}

// FromString parses a base-10 unsigned integer string.
func FromString(s string) (Amount, error) {
	var a Amount
	if !reDigits(s) {
		return a, fmt.Errorf("invalid amount %q", s)
	}
	if _, ok := a.v.SetString(s, 10); !ok {
		return a, fmt.Errorf("invalid amount %q", s)
	}
	return a, nil
}

// MustFromString is for constants in tests and seed data.
func MustFromString(s string) Amount {
	a, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) String() string { return a.v.String() }
func (a Amount) Sign() int      { return a.v.Sign() }
func (a Amount) IsZero() bool   { return a.v.Sign() == 0 }

// BigInt returns a copy so callers cannot mutate the amount in place.
func (a Amount) BigInt() *big.Int { return new(big.Int).Set(&a.v) }

func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

func (a Amount) Add(b Amount) Amount {
	var out Amount
	out.v.Add(&a.v, &b.v)
	return out
}

// Sub clamps at zero; funded totals and capacities never go negative.
func (a Amount) Sub(b Amount) Amount {
	var out Amount
	out.v.Sub(&a.v, &b.v)
	if out.v.Sign() < 0 {
		out.v.SetInt64(0)
	}
	return out
}

func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// --- gorm / database/sql ---

func (Amount) GormDataType() string { return "decimal(38,0)" }

func (a Amount) Value() (driver.Value, error) { return a.v.String(), nil }

func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		a.v.SetInt64(0)
		return nil
	case int64:
		if v < 0 {
			return fmt.Errorf("amount: negative value %d", v)
		}
		a.v.SetInt64(v)
		return nil
	case []byte:
		return a.scanString(string(v))
	case string:
		return a.scanString(v)
	default:
		return fmt.Errorf("amount: cannot scan %T", src)
	}
}

func (a *Amount) scanString(s string) error {
	// MySQL DECIMAL may come back with a trailing ".000..." depending on driver flags.
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if strings.Trim(s[i+1:], "0") != "" {
			return fmt.Errorf("amount: fractional value %q", s)
		}
		s = s[:i]
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	a.v.Set(&parsed.v)
	return nil
}

// --- JSON ---

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		return nil
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	a.v.Set(&parsed.v)
	return nil
}
