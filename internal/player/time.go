package player

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as "m:ss". Total: NaN, infinities, and
// negatives all render as "0:00".
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return "0:00"
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
