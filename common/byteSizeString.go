package common

import (
	"strconv"
)

// Integer is a local stand-in for golang.org/x/exp/constraints.Integer: the
// teacher imports that package for this one generic, but the pack's actual
// go.mod never lists it as a dependency, so we declare the type set we need
// ourselves rather than add an unlisted module.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

var MegaSize = []string{
	"B",
	"KB",
	"MB",
	"GB",
	"TB",
	"PB",
	"EB",
}

// ByteSizeToString renders size using binary (KiB, MiB, ...) units, or
// decimal (KB, MB, ...) units when megaUnits is set.
func ByteSizeToString[T Integer](size T, megaUnits bool) string {
	units := []string{
		"B",
		"KiB",
		"MiB",
		"GiB",
		"TiB",
		"PiB",
		"EiB", // a benchmark corpus probably won't top an exbibyte in our lifetime
	}
	unit := 0
	floatSize := float64(size)
	gigSize := 1024

	if megaUnits {
		gigSize = 1000
		units = MegaSize
	}

	for floatSize/float64(gigSize) >= 1 {
		unit++
		floatSize /= float64(gigSize)
	}

	return strconv.FormatFloat(floatSize, 'f', 2, 64) + " " + units[unit]
}
