package timecode

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Ratio is an exact rational value stored by value so compiled models stay
// immutable. The zero value is 0/1.
type Ratio struct {
	Num int64
	Den int64
}

// One is the identity speed.
var One = Ratio{Num: 1, Den: 1}

// NewRatio reduces num/den and normalises the sign onto the numerator.
func NewRatio(num, den int64) (Ratio, error) {
	if den == 0 {
		return Ratio{}, fmt.Errorf("zero denominator")
	}
	return ratioFromRat(big.NewRat(num, den))
}

func ratioFromRat(r *big.Rat) (Ratio, error) {
	if !r.Num().IsInt64() || !r.Denom().IsInt64() {
		return Ratio{}, fmt.Errorf("value out of range")
	}
	return Ratio{Num: r.Num().Int64(), Den: r.Denom().Int64()}, nil
}

// Rat returns a fresh big.Rat holding the value.
func (r Ratio) Rat() *big.Rat {
	den := r.Den
	if den == 0 {
		den = 1
	}
	return big.NewRat(r.Num, den)
}

// Sign returns -1, 0, or +1.
func (r Ratio) Sign() int { return r.Rat().Sign() }

// Cmp compares r and o.
func (r Ratio) Cmp(o Ratio) int { return r.Rat().Cmp(o.Rat()) }

// Equal reports exact equality.
func (r Ratio) Equal(o Ratio) bool { return r.Cmp(o) == 0 }

// Float64 is for display and export only; never use it for frame math.
func (r Ratio) Float64() float64 {
	f, _ := r.Rat().Float64()
	return f
}

// String renders integers plainly and other values as num/den.
func (r Ratio) String() string {
	rat := r.Rat()
	if rat.IsInt() {
		return rat.Num().String()
	}
	return rat.Num().String() + "/" + rat.Denom().String()
}

// Decimal renders the value with at most six decimals, trailing zeros trimmed.
func (r Ratio) Decimal() string {
	return trimDecimal(r.Rat().FloatString(6))
}

// ParseRate reads a frame rate written as an integer ("30"), a decimal
// ("29.97") or a fraction ("30000/1001"). The rate must be positive.
func ParseRate(raw string) (Ratio, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Ratio{}, malformed(raw, "frame rate is required")
	}
	var rat *big.Rat
	if num, den, ok := strings.Cut(value, "/"); ok {
		n, errN := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		d, errD := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if errN != nil || errD != nil || d == 0 {
			return Ratio{}, malformed(raw, "frame rate fraction must be integer/integer")
		}
		rat = big.NewRat(n, d)
	} else {
		parsed, err := parseDecimal(value)
		if err != nil {
			return Ratio{}, malformed(raw, err.Error())
		}
		rat = parsed
	}
	if rat.Sign() <= 0 {
		return Ratio{}, malformed(raw, "frame rate must be positive")
	}
	out, err := ratioFromRat(rat)
	if err != nil {
		return Ratio{}, malformed(raw, err.Error())
	}
	return out, nil
}

// ParseSpeed reads a playback speed as an exact decimal. Speeds must be
// strictly positive.
func ParseSpeed(raw string) (Ratio, error) {
	parsed, err := parseDecimal(raw)
	if err != nil {
		return Ratio{}, malformed(raw, err.Error())
	}
	if parsed.Sign() <= 0 {
		return Ratio{}, malformed(raw, "speed must be positive")
	}
	out, err := ratioFromRat(parsed)
	if err != nil {
		return Ratio{}, malformed(raw, err.Error())
	}
	return out, nil
}

// MarshalText renders the value the way String does.
func (r Ratio) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText accepts anything ParseRate accepts.
func (r *Ratio) UnmarshalText(text []byte) error {
	parsed, err := ParseRate(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
