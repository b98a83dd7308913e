package ram

import "math"

// Bit-pattern conversions between the signed domain word and its unsigned
// and float interpretations.

// FloatToDomain stores a float value as a domain word.
func FloatToDomain(f float32) Domain {
	return Domain(int32(math.Float32bits(f)))
}

// DomainToFloat reads a domain word as a float value.
func DomainToFloat(d Domain) float32 {
	return math.Float32frombits(uint32(d))
}

// UnsignedToDomain stores an unsigned value as a domain word.
func UnsignedToDomain(u uint32) Domain {
	return Domain(int32(u))
}

// DomainToUnsigned reads a domain word as an unsigned value.
func DomainToUnsigned(d Domain) uint32 {
	return uint32(d)
}
