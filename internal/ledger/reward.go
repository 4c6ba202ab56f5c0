package ledger

import "math"

// PointsPerMinute is the reward rate for completed study time.
const PointsPerMinute = 1

// ElapsedMinutes returns whole minutes between startMs and nowMs, excluding
// pausedSeconds. Seconds are floored first, then minutes.
func ElapsedMinutes(startMs, nowMs int64, pausedSeconds float64) int {
	effectiveStart := float64(startMs) + pausedSeconds*1000
	seconds := math.Floor((float64(nowMs) - effectiveStart) / 1000)
	if seconds <= 0 {
		return 0
	}
	return int(math.Floor(seconds / 60))
}

// Reward converts completed minutes into points.
func Reward(minutes int) float64 {
	return math.Round(PointsPerMinute * float64(minutes))
}

// ExchangeCost returns the points spent and the quantity received for buying
// units of a product priced per minQuantity.
func ExchangeCost(price, minQuantity float64, units int, unit string) (pointsSpent, quantity float64) {
	if minQuantity <= 0 {
		minQuantity = 1
	}
	pointsSpent = RoundPoints(price * float64(units))
	quantity = RoundQuantity(float64(units)*minQuantity, unit)
	return pointsSpent, quantity
}
