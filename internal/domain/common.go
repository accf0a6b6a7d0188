package domain

import "errors"

// ErrTwinNotFound is returned when an operation references a twin id
// that is not in the engine registry.
var ErrTwinNotFound = errors.New("crop twin not found")

// LocalizedText carries every user-facing string in both supported
// languages. The engine generates both variants from templates; it
// never translates.
type LocalizedText struct {
	EN string `json:"en"`
	ML string `json:"ml"`
}

// Location is a WGS84 coordinate pair
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Kerala region defaults used by the mock weather provider
const (
	KeralaCenterLat = 10.8505
	KeralaCenterLon = 76.2711
)
