package model

// Position is a zone-local coordinate: X/Y in world units, Rot in
// radians. Zone changes, warps, and spot lookups all operate in this
// space (spec.md §4.E, §4.H "ZONE_CHANGE").
type Position struct {
	X   float32
	Y   float32
	Rot float32
}
