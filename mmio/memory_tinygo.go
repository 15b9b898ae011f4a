//go:build tinygo && baremetal

package mmio

import (
	"runtime/volatile"
	"unsafe"
)

// Memory is the bus of the running chip: every access is a volatile load or
// store of the given address.
var Memory Bus = memory{}

type memory struct{}

func (memory) Load32(addr uintptr) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

func (memory) Store32(addr uintptr, value uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(addr)), value)
}
