/*
 * IOPMP reference model - backing memory / bus (Component H).
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package bus implements the byte-addressable backing store MSI delivery
// writes through, standing in for the system bus a real IOPMP instance
// would be wired to.
package bus

import "fmt"

// Memory is a sparse, bounds-checked byte-addressable store. Addresses are
// full 64-bit MSI target addresses, so the backing store is a map keyed by
// 8-byte-aligned word rather than a fixed-size array.
type Memory struct {
	size       uint64
	words      map[uint64]uint64
	faultAddrs map[uint64]bool
}

// NewMemory creates an empty store that accepts writes up to size bytes.
// A size of zero means unbounded.
func NewMemory(size uint64) *Memory {
	return &Memory{size: size, words: make(map[uint64]uint64)}
}

// SetSize changes the accepted address range.
func (m *Memory) SetSize(size uint64) { m.size = size }

// Size reports the accepted address range.
func (m *Memory) Size() uint64 { return m.size }

// CheckAddr reports whether a length-byte access at addr is in range.
func (m *Memory) CheckAddr(addr uint64, length int) bool {
	if m.size == 0 {
		return true
	}
	return addr+uint64(length) <= m.size
}

// InjectFault arms a one-shot BUS_ERROR for the next WriteMemory whose
// start address is exactly addr, for deterministic interrupt-delivery tests.
func (m *Memory) InjectFault(addr uint64) {
	if m.faultAddrs == nil {
		m.faultAddrs = make(map[uint64]bool)
	}
	m.faultAddrs[addr] = true
}

// WriteMemory implements iopmp.MemoryWriter. It returns ok=false (with a
// nil error) to model a BUS_ERROR response from the target device; a
// non-nil error means the request itself was malformed.
func (m *Memory) WriteMemory(addr uint64, data uint64, length int) (bool, error) {
	if length <= 0 || length > 8 {
		return false, fmt.Errorf("bus: unsupported write length %d", length)
	}
	if m.faultAddrs[addr] {
		delete(m.faultAddrs, addr)
		return false, nil
	}
	if !m.CheckAddr(addr, length) {
		return false, nil
	}

	word := addr &^ 0x7
	shift := (addr & 0x7) * 8
	mask := uint64(1)<<(uint(length)*8) - 1
	if length == 8 {
		mask = ^uint64(0)
	}

	cur := m.words[word]
	cur &^= mask << shift
	cur |= (data & mask) << shift
	m.words[word] = cur
	return true, nil
}

// ReadWord returns the 8-byte-aligned word containing addr, for tests that
// assert on what an MSI write actually deposited.
func (m *Memory) ReadWord(addr uint64) uint64 {
	return m.words[addr&^0x7]
}
