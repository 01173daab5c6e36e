package signal

import "fmt"

// Width is a bus width in bits, legal range [1, 64]. Zero is used by the
// netlist layer to mean "unspecified, resolve at build time" and is never a
// valid Signal width.
type Width int

// MaxWidth is the largest bus width the kernel supports (spec §3.2).
const MaxWidth Width = 64

// Signal is an ordered bit vector, bit 0 least-significant.
type Signal struct {
	width Width
	bits  []Value
}

// New builds a Signal of the given width with every bit set to v.
func New(width Width, v Value) Signal {
	bits := make([]Value, width)
	for i := range bits {
		bits[i] = v
	}
	return Signal{width: width, bits: bits}
}

// FromBits packs the low `width` bits of u into a Signal, LSB first.
func FromBits(u uint64, width Width) Signal {
	bits := make([]Value, width)
	for i := range bits {
		if u&(1<<uint(i)) != 0 {
			bits[i] = High
		} else {
			bits[i] = Low
		}
	}
	return Signal{width: width, bits: bits}
}

// FromValues builds a Signal directly from a bit slice, bit 0 first.
func FromValues(bits []Value) Signal {
	cp := make([]Value, len(bits))
	copy(cp, bits)
	return Signal{width: Width(len(cp)), bits: cp}
}

// Width returns the bit width of the signal.
func (s Signal) Width() Width { return s.width }

// Bit returns the value of bit i (0 = LSB).
func (s Signal) Bit(i int) Value { return s.bits[i] }

// SetBit returns a copy of s with bit i set to v.
func (s Signal) SetBit(i int, v Value) Signal {
	cp := make([]Value, len(s.bits))
	copy(cp, s.bits)
	cp[i] = v
	return Signal{width: s.width, bits: cp}
}

// Bits exposes the underlying bit slice, bit 0 first. Callers must not
// mutate the returned slice.
func (s Signal) Bits() []Value { return s.bits }

// ToBits packs the signal into a uint64, returning ok=false if any bit is
// Unknown or Error.
func (s Signal) ToBits() (value uint64, ok bool) {
	for i, b := range s.bits {
		switch b {
		case High:
			value |= 1 << uint(i)
		case Low:
			// no-op
		default:
			return 0, false
		}
	}
	return value, true
}

// CombineSignals merges two signals bit-by-bit per the driver-strength
// lattice: the highest strength present wins; ties at that strength
// combine with Combine(). A width mismatch forces every bit of the result
// to Error, matching spec §4.1's width-mismatch failure mode.
func CombineSignals(a Signal, aStrength Strength, b Signal, bStrength Strength) (Signal, Strength) {
	if a.width != b.width {
		return New(a.width, Error), Strong
	}

	switch {
	case aStrength > bStrength:
		return a, aStrength
	case bStrength > aStrength:
		return b, bStrength
	}

	bits := make([]Value, a.width)
	for i := range bits {
		bits[i] = Combine(a.bits[i], b.bits[i])
	}
	return Signal{width: a.width, bits: bits}, aStrength
}

// Equal reports bitwise equality, treating Unknown==Unknown and
// Error==Error as equal (spec §4.1).
func Equal(a, b Signal) bool {
	if a.width != b.width {
		return false
	}
	for i := range a.bits {
		if a.bits[i] != b.bits[i] {
			return false
		}
	}
	return true
}

// Map applies f to every bit and returns the resulting signal. Widths of a
// and b must match; callers (the stdlib gate components) are responsible
// for enforcing that via their own pin width declarations.
func Map(a, b Signal, f func(Value, Value) Value) Signal {
	bits := make([]Value, a.width)
	for i := range bits {
		bits[i] = f(a.bits[i], b.bits[i])
	}
	return Signal{width: a.width, bits: bits}
}

// MapUnary applies f to every bit of a.
func MapUnary(a Signal, f func(Value) Value) Signal {
	bits := make([]Value, a.width)
	for i := range bits {
		bits[i] = f(a.bits[i])
	}
	return Signal{width: a.width, bits: bits}
}

// String renders bits MSB-first for human-readable traces.
func (s Signal) String() string {
	out := make([]byte, s.width)
	for i := 0; i < int(s.width); i++ {
		out[i] = s.bits[int(s.width)-1-i].String()[0]
	}
	return fmt.Sprintf("%d'b%s", s.width, out)
}
