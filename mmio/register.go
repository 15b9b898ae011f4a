// Package mmio provides typed access to memory-mapped peripheral registers.
//
// A register is never addressed by a raw number in driver code: it is a named
// Register32 field of a peripheral block, created through Block.Register which
// checks the offset against the extent of the block. The actual loads and
// stores go through a Bus, which is real memory on a microcontroller and a
// simulated register map on a host.
package mmio

// Bus performs 32-bit loads and stores at absolute addresses. Every access
// must complete before the call returns.
type Bus interface {
	Load32(addr uintptr) uint32
	Store32(addr uintptr, value uint32)
}

// Block is a contiguous range of registers belonging to one peripheral.
type Block struct {
	Name string
	Bus  Bus
	Base uintptr
	Size uintptr
}

// Register returns the 32-bit register at the given offset in this block. It
// panics if the offset is misaligned or outside the block.
func (b Block) Register(offset uintptr) Register32 {
	if offset%4 != 0 {
		panic("mmio: misaligned register offset in " + b.Name)
	}
	if offset+4 > b.Size {
		panic("mmio: register offset out of range in " + b.Name)
	}
	return Register32{bus: b.Bus, addr: b.Base + offset}
}

// Sub returns a block that covers part of this block, for example one port of
// a GPIO controller. It panics if the range does not fit.
func (b Block) Sub(name string, offset, size uintptr) Block {
	if offset+size > b.Size || offset+size < offset {
		panic("mmio: sub-block out of range in " + b.Name)
	}
	return Block{Name: name, Bus: b.Bus, Base: b.Base + offset, Size: size}
}

// Register32 is a single 32-bit hardware register.
type Register32 struct {
	bus  Bus
	addr uintptr
}

// Address returns the absolute address of the register.
func (r Register32) Address() uintptr {
	return r.addr
}

// Get returns the value in the register.
func (r Register32) Get() uint32 {
	return r.bus.Load32(r.addr)
}

// Set writes the value to the register, replacing all bits.
func (r Register32) Set(value uint32) {
	r.bus.Store32(r.addr, value)
}

// SetBits reads the register, sets the given bits, and writes it back.
func (r Register32) SetBits(value uint32) {
	r.Set(r.Get() | value)
}

// ClearBits reads the register, clears the given bits, and writes it back.
func (r Register32) ClearBits(value uint32) {
	r.Set(r.Get() &^ value)
}

// HasBits reads the register and returns true if any of the given bits are
// set.
func (r Register32) HasBits(value uint32) bool {
	return r.Get()&value != 0
}

// ReplaceBits is a helper to simplify setting multiple bits high and/or low at
// once. It is the equivalent of r.Set((r.Get() &^ (mask << pos)) | value <<
// pos).
func (r Register32) ReplaceBits(value uint32, mask uint32, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | value<<pos)
}

// Field returns the bits selected by mask after shifting the register right
// by pos.
func (r Register32) Field(mask uint32, pos uint8) uint32 {
	return r.Get() >> pos & mask
}
