package domain

import "github.com/astarte-labs/stellium/pkg/degrees"

// Sign is a zodiac sign name.
type Sign string

// Signs lists the twelve signs in zodiacal order.
var Signs = []Sign{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// SignFor returns the sign containing the longitude and the degree
// offset within it.
func SignFor(lon float64) (Sign, float64) {
	n := degrees.Normalize(lon)
	idx := int(n / 30.0)
	if idx > 11 {
		idx = 11
	}
	return Signs[idx], n - float64(idx)*30.0
}
