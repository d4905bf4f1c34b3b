// pkg/geography/borough.go
package geography

import "strings"

// Borough is one of the five NYC boroughs.
type Borough string

const (
	Manhattan    Borough = "Manhattan"
	Bronx        Borough = "Bronx"
	Brooklyn     Borough = "Brooklyn"
	Queens       Borough = "Queens"
	StatenIsland Borough = "Staten Island"
)

// Boroughs lists every borough in display order.
var Boroughs = []Borough{Manhattan, Bronx, Brooklyn, Queens, StatenIsland}

// boroughCodes are the letters used in the third DBN position.
var boroughCodes = map[Borough]string{
	Manhattan:    "M",
	Bronx:        "X",
	Brooklyn:     "K",
	Queens:       "Q",
	StatenIsland: "R",
}

// Code returns the single-letter DBN code, or "" for an unknown borough.
func (b Borough) Code() string {
	return boroughCodes[b]
}

func (b Borough) String() string {
	return string(b)
}

// Valid reports whether b is one of the five boroughs.
func (b Borough) Valid() bool {
	_, ok := boroughCodes[b]
	return ok
}

// ParseBorough accepts a borough name ("staten island", "Bronx") or its
// DBN letter ("R", "x"). Matching is case-insensitive.
func ParseBorough(s string) (Borough, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, b := range Boroughs {
		if strings.EqualFold(s, string(b)) || strings.EqualFold(s, b.Code()) {
			return b, true
		}
	}
	switch strings.ToLower(s) {
	case "staten_island", "staten-island", "statenisland":
		return StatenIsland, true
	}
	return "", false
}
