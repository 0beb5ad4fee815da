/*
 * IOPMP reference model - entry and table row types.
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

package iopmp

// Entry is one rule in the entry table: an address range plus permission
// and secondary-settings configuration.
type Entry struct {
	AddrLo uint32 // ENTRY_ADDR(i)
	AddrHi uint32 // ENTRY_ADDRH(i), zero when AddrhEn is false
	Cfg    entryCfgReg
	User   uint32 // ENTRY_USER_CFG(i), opaque to the core model
	Locked bool   // not updated by Device; entry locking follows ENTRYLCK (entryLocked)
}

// rawAddr returns the entry's address field as a 64-bit word address
// (the unit used throughout iopmp_rule_analyzer.c, before the x4 byte
// conversion applied in iopmpRuleAnalyzer).
func (e *Entry) rawAddr() uint64 {
	return uint64(e.AddrLo) | (uint64(e.AddrHi) << 32)
}

// SVWindow is one 16-bit subsequent-violation bitmap window of the
// Multi-Faults Record, covering RRIDs [16*i, 16*i+15].
type SVWindow struct {
	Bits uint16
}

func (w *SVWindow) set(bit int) {
	w.Bits |= uint16(1) << uint(bit)
}
