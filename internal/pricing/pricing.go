// Package pricing computes parking charges in quarter-hour blocks.  Every
// started block of fifteen minutes is billed in full, so a 14 minute stay
// costs the same as a 15 minute one and a 16 minute stay costs two blocks.
package pricing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Block is the billing granularity.
const Block = 15 * time.Minute

var quarter = decimal.NewFromFloat(0.25)

// Blocks returns the number of started quarter-hour blocks in d, or zero
// when d is not positive.
func Blocks(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Minutes() / Block.Minutes()))
}

// Cost bills d at ratePerHour: blocks * 0.25h * rate, rounded to cents.
func Cost(d time.Duration, ratePerHour decimal.Decimal) decimal.Decimal {
	n := Blocks(d)
	if n == 0 {
		return decimal.Zero
	}
	hours := decimal.NewFromInt(n).Mul(quarter)
	return hours.Mul(ratePerHour).Round(2)
}

// Quote prices a reservation window [start, end).
func Quote(start, end time.Time, ratePerHour decimal.Decimal) decimal.Decimal {
	return Cost(end.Sub(start), ratePerHour)
}

// Overstay prices the time between the reserved end and the actual exit.
// An exit at or before the reserved end costs nothing.
func Overstay(reservedEnd, exit time.Time, ratePerHour decimal.Decimal) decimal.Decimal {
	return Cost(exit.Sub(reservedEnd), ratePerHour)
}
