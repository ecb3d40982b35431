package domain

// Location is a resolved geographic position.
type Location struct {
	Lat   float64 `json:"lat" yaml:"lat"`
	Lon   float64 `json:"lon" yaml:"lon"`
	AltM  float64 `json:"alt_m" yaml:"alt_m"`
	Place string  `json:"place,omitempty" yaml:"place,omitempty"`
}
