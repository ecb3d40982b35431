package domain

// AspectClass splits the aspect table into the classical majors and the
// narrower-orb minors.
type AspectClass string

const (
	AspectMajor AspectClass = "major"
	AspectMinor AspectClass = "minor"
)

// AspectDefinition is one row of the fixed process-wide aspect table.
type AspectDefinition struct {
	Angle float64     `json:"angle"`
	Class AspectClass `json:"class"`
}

// AspectTable enumerates every supported aspect angle in ascending
// order. The table is fixed at compile time and never mutated.
var AspectTable = []AspectDefinition{
	{Angle: 0, Class: AspectMajor},
	{Angle: 30, Class: AspectMinor},
	{Angle: 45, Class: AspectMinor},
	{Angle: 60, Class: AspectMajor},
	{Angle: 72, Class: AspectMinor},
	{Angle: 90, Class: AspectMajor},
	{Angle: 120, Class: AspectMajor},
	{Angle: 135, Class: AspectMinor},
	{Angle: 144, Class: AspectMinor},
	{Angle: 150, Class: AspectMinor},
	{Angle: 180, Class: AspectMajor},
}

// ClassOf returns the class of an angle from the table, defaulting to
// major for angles the table does not know (rejected upstream anyway).
func ClassOf(angle float64) AspectClass {
	for _, def := range AspectTable {
		if def.Angle == angle {
			return def.Class
		}
	}
	return AspectMajor
}

// KnownAngle reports whether the angle is in the aspect table.
func KnownAngle(angle float64) bool {
	for _, def := range AspectTable {
		if def.Angle == angle {
			return true
		}
	}
	return false
}

// MajorAngles returns the subset of table angles used by timelines.
func MajorAngles() []float64 {
	out := make([]float64, 0, len(AspectTable))
	for _, def := range AspectTable {
		if def.Class == AspectMajor {
			out = append(out, def.Angle)
		}
	}
	return out
}

// AspectRecord is one detected aspect between two chart targets.
// ExactAngle is the measured separation, Orb its deviation from Angle.
// A record with Orb == 0 is exact and carries neither direction flag.
type AspectRecord struct {
	BodyA      string      `json:"a"`
	BodyB      string      `json:"b"`
	Class      AspectClass `json:"type"`
	Angle      float64     `json:"angle"`
	ExactAngle Deg         `json:"exact_angle"`
	Orb        Deg         `json:"orb"`
	Applying   bool        `json:"applying"`
	Separating bool        `json:"separating"`
}
