//go:build tinygo

package xmega

import (
	"runtime/volatile"
	"unsafe"
)

// MMIO accesses the memory-mapped registers of the module at Base.
type MMIO struct {
	Base uintptr
}

func (m MMIO) reg(off uintptr) *volatile.Register8 {
	return (*volatile.Register8)(unsafe.Pointer(m.Base + off))
}

// Load implements Registers.
func (m MMIO) Load(off uintptr) uint8 {
	return m.reg(off).Get()
}

// Store implements Registers.
func (m MMIO) Store(off uintptr, v uint8) {
	m.reg(off).Set(v)
}
