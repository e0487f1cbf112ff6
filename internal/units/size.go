// Package units formats byte counts for log output.
package units

import (
	"fmt"
	"math/bits"
)

var sizeSuffixes = [...]string{"bytes", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB", "ZiB", "YiB"}

// HumanSize renders n in binary orders of magnitude (steps of 1024) with at
// most 4 significant digits, e.g. "1.5 KiB" or "1023 bytes".
func HumanSize(n uint64) string {
	order := 0
	if n > 0 {
		// floor(log2(n)) / 10
		order = (bits.Len64(n) - 1) / 10
	}

	value := float64(n) / float64(uint64(1)<<(order*10))
	return fmt.Sprintf("%.4g %s", value, sizeSuffixes[order])
}
