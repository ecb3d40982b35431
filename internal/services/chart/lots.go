package chart

import (
	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/pkg/degrees"
)

// lotTable drives every lot from one formula shape: asc + plus - minus
// by day, with plus and minus swapped by night. Rows referencing an
// earlier lot (necessity uses fortune, love uses spirit) rely on the
// table order, so fortune and spirit come first.
var lotTable = []struct {
	lot   domain.Lot
	plus  string
	minus string
}{
	{lot: domain.LotFortune, plus: "moon", minus: "sun"},
	{lot: domain.LotSpirit, plus: "sun", minus: "moon"},
	{lot: domain.LotNecessity, plus: "saturn", minus: "fortune"},
	{lot: domain.LotLove, plus: "venus", minus: "spirit"},
	{lot: domain.LotCourage, plus: "mars", minus: "fortune"},
	{lot: domain.LotVictory, plus: "jupiter", minus: "spirit"},
	{lot: domain.LotNemesis, plus: "saturn", minus: "sun"},
}

// Lots computes the seven Hermetic lots from already-resolved
// longitudes. refs must contain sun, moon, venus, mars, jupiter and
// saturn; lot references are resolved as the table fills in.
func Lots(isDay bool, asc float64, refs map[string]float64) map[domain.Lot]float64 {
	resolved := make(map[string]float64, len(refs)+len(lotTable))
	for name, lon := range refs {
		resolved[name] = lon
	}

	out := make(map[domain.Lot]float64, len(lotTable))
	for _, row := range lotTable {
		plus, minus := resolved[row.plus], resolved[row.minus]
		if !isDay {
			plus, minus = minus, plus
		}
		lon := degrees.Normalize(asc + plus - minus)
		out[row.lot] = lon
		resolved[string(row.lot)] = lon
	}
	return out
}
