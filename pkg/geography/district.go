// pkg/geography/district.go
package geography

import "sort"

// MinDistrict and MaxDistrict bound the community school districts.
const (
	MinDistrict = 1
	MaxDistrict = 32
)

// districtBoroughs is the district -> borough table. District 32 is the
// Bushwick district and sits in Brooklyn; 31 covers all of Staten Island.
// Citywide districts (75, 79, 84, ...) are not mapped.
var districtBoroughs = func() map[int]Borough {
	m := make(map[int]Borough, MaxDistrict)
	assign := func(b Borough, from, to int) {
		for d := from; d <= to; d++ {
			m[d] = b
		}
	}
	assign(Manhattan, 1, 6)
	assign(Bronx, 7, 12)
	assign(Brooklyn, 13, 23)
	assign(Queens, 24, 30)
	assign(StatenIsland, 31, 31)
	assign(Brooklyn, 32, 32)
	return m
}()

// BoroughForDistrict maps a district number to its borough.
func BoroughForDistrict(district int) (Borough, bool) {
	b, ok := districtBoroughs[district]
	return b, ok
}

// DistrictsIn returns the sorted districts that belong to b.
func DistrictsIn(b Borough) []int {
	var out []int
	for d, owner := range districtBoroughs {
		if owner == b {
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}
