// pkg/geography/dbn.go
package geography

// ExtractDistrictFromDBN reads the zero-padded district number from the
// first two characters of a DBN ("02M158" -> 2). Anything that does not start
// with two ASCII digits yields 0, which maps to no borough.
func ExtractDistrictFromDBN(dbn string) int {
	if len(dbn) < 2 {
		return 0
	}
	tens, ones := dbn[0], dbn[1]
	if !isDigit(tens) || !isDigit(ones) {
		return 0
	}
	return int(tens-'0')*10 + int(ones-'0')
}

// BoroughFromDBN classifies a DBN. The second return value is false when
// the DBN is malformed or its district is outside the five boroughs.
func BoroughFromDBN(dbn string) (Borough, bool) {
	return BoroughForDistrict(ExtractDistrictFromDBN(dbn))
}

// IsNYC5Borough reports whether the DBN classifies into one of the five
// boroughs.
func IsNYC5Borough(dbn string) bool {
	_, ok := BoroughFromDBN(dbn)
	return ok
}

// Classification is the full geography breakdown of a DBN.
type Classification struct {
	DBN         string  `json:"dbn"`
	District    int     `json:"district"`
	Borough     Borough `json:"borough,omitempty"`
	BoroughCode string  `json:"boroughCode,omitempty"`
	IsNYC       bool    `json:"isNyc"`
}

func Classify(dbn string) Classification {
	c := Classification{DBN: dbn, District: ExtractDistrictFromDBN(dbn)}
	if b, ok := BoroughForDistrict(c.District); ok {
		c.Borough = b
		c.BoroughCode = b.Code()
		c.IsNYC = true
	}
	return c
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
