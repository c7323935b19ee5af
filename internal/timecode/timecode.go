// Package timecode converts authored time values into exact frame positions.
//
// Every conversion from time to frames goes through NearestFrame so that the
// execution engine and the exporter always agree on frame boundaries.
package timecode

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// FrameSuffix marks an explicit frame literal such as "120@frame".
const FrameSuffix = "@frame"

// Error reports a malformed time, rate, or speed value.
type Error struct {
	Value  string
	Reason string
}

func (e *Error) Error() string {
	if e.Value == "" {
		return e.Reason
	}
	return fmt.Sprintf("%q: %s", e.Value, e.Reason)
}

func malformed(value, reason string) error {
	return &Error{Value: value, Reason: reason}
}

// Time is a parsed time value. It is either an exact number of seconds or an
// explicit frame index that bypasses rate conversion.
type Time struct {
	raw     string
	seconds Ratio
	frame   int64
	isFrame bool
}

// Parse reads seconds ("12.5"), timecodes ("01:02.5", "1:00:02.040") and
// frame literals ("300@frame"). Decimal digits are kept exact.
func Parse(raw string) (Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Time{}, malformed(raw, "time value is required")
	}

	if strings.HasSuffix(value, FrameSuffix) {
		digits := strings.TrimSpace(strings.TrimSuffix(value, FrameSuffix))
		frame, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || frame < 0 {
			return Time{}, malformed(raw, "frame literal must be a non-negative integer")
		}
		return Time{raw: value, frame: frame, isFrame: true}, nil
	}

	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return Time{}, malformed(raw, "timecode has too many fields")
	}

	total := new(big.Rat)
	seconds, err := parseDecimal(parts[len(parts)-1])
	if err != nil {
		return Time{}, malformed(raw, err.Error())
	}
	total.Add(total, seconds)

	multipliers := []int64{60, 3600}
	for i := len(parts) - 2; i >= 0; i-- {
		field := strings.TrimSpace(parts[i])
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil || n < 0 {
			return Time{}, malformed(raw, "hours and minutes must be non-negative integers")
		}
		scaled := new(big.Int).Mul(big.NewInt(n), big.NewInt(multipliers[len(parts)-2-i]))
		total.Add(total, new(big.Rat).SetInt(scaled))
	}

	exact, err := ratioFromRat(total)
	if err != nil {
		return Time{}, malformed(raw, err.Error())
	}
	return Time{raw: value, seconds: exact}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(raw string) Time {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// FromFrames builds a Time that resolves to the given frame at any rate.
func FromFrames(frame int64) Time {
	return Time{raw: strconv.FormatInt(frame, 10) + FrameSuffix, frame: frame, isFrame: true}
}

// Frames resolves the time to an integer frame index at fps.
func (t Time) Frames(fps Ratio) (int64, error) {
	if t.isFrame {
		return t.frame, nil
	}
	n, err := FramesFromSeconds(t.seconds, fps)
	if err != nil {
		return 0, malformed(t.raw, err.Error())
	}
	return n, nil
}

// IsFrame reports whether the value was authored as a frame literal.
func (t Time) IsFrame() bool { return t.isFrame }

// Seconds returns the exact seconds value; zero for frame literals.
func (t Time) Seconds() Ratio { return t.seconds }

func (t Time) String() string { return t.raw }

// ErrFrameRange is returned when a frame position is negative or does not
// fit in an int64.
var ErrFrameRange = errors.New("frame position out of range")

// NearestFrame rounds an exact rational to the nearest frame index. Values
// exactly halfway between two integers round up.
func NearestFrame(x *big.Rat) (int64, error) {
	n := roundHalfUp(x)
	if n.Sign() < 0 || !n.IsInt64() {
		return 0, ErrFrameRange
	}
	return n.Int64(), nil
}

func roundHalfUp(x *big.Rat) *big.Int {
	num := new(big.Int).Mul(x.Num(), big.NewInt(2))
	num.Add(num, x.Denom())
	den := new(big.Int).Mul(x.Denom(), big.NewInt(2))
	// Euclidean division floors for a positive divisor.
	return num.Div(num, den)
}

// FramesFromSeconds converts exact seconds to a frame index at fps.
func FramesFromSeconds(seconds Ratio, fps Ratio) (int64, error) {
	f := new(big.Rat).Mul(seconds.Rat(), fps.Rat())
	return NearestFrame(f)
}

// ScaleFrames returns the output length of frames source frames played at
// speed, rounded with NearestFrame.
func ScaleFrames(frames int64, speed Ratio) (int64, error) {
	f := new(big.Rat).SetInt64(frames)
	f.Quo(f, speed.Rat())
	return NearestFrame(f)
}

// SecondsAt returns the exact time of frame at fps.
func SecondsAt(frame int64, fps Ratio) *big.Rat {
	s := new(big.Rat).SetInt64(frame)
	return s.Quo(s, fps.Rat())
}

// FormatSeconds renders the time of frame as seconds with at most six
// decimals, trailing zeros trimmed.
func FormatSeconds(frame int64, fps Ratio) string {
	return trimDecimal(SecondsAt(frame, fps).FloatString(6))
}

// FormatChapter renders the time of frame as HH:MM:SS.mmm with the
// millisecond rounded half-up.
func FormatChapter(frame int64, fps Ratio) string {
	ms := new(big.Rat).Mul(SecondsAt(frame, fps), big.NewRat(1000, 1))
	millis := roundHalfUp(ms)
	if millis.Sign() < 0 {
		millis.SetInt64(0)
	}
	hours, rest := new(big.Int).QuoRem(millis, big.NewInt(3600000), new(big.Int))
	rem := rest.Int64()
	minutes := rem / 60000
	rem %= 60000
	secs := rem / 1000
	rem %= 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, rem)
}

func trimDecimal(s string) string {
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// parseDecimal accepts unsigned decimal text only: digits with an optional
// fractional part. Exponents and fractions are rejected so authored values
// stay readable.
func parseDecimal(field string) (*big.Rat, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, fmt.Errorf("empty number")
	}
	digits := 0
	dots := 0
	for _, r := range field {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return nil, fmt.Errorf("invalid character %q", r)
		}
	}
	if digits == 0 || dots > 1 {
		return nil, fmt.Errorf("not a decimal number")
	}
	r, ok := new(big.Rat).SetString(field)
	if !ok {
		return nil, fmt.Errorf("not a decimal number")
	}
	return r, nil
}
