/*
 * IOPMP reference model - typed register layouts (Component A).
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

// Registers in this file provide a Pack method (Go fields -> wire uint32;
// MDSTALL and RRIDSCP split it into PackRead/PackWrite). Reserved bits are
// dropped by Pack. Registers with writable fields also have an unpack
// function (unpackHWCFG0, unpackErrCfg, ...; wire uint32 -> Go fields),
// used at the WriteRegister boundary, where reserved bits of the incoming
// word are masked off before being applied to fields. The SRCMD table rows
// (srcmdFmt0, srcmdFmt2) have bit accessors instead.

type versionReg struct {
	Vendor  uint32 // [23:0], RO
	SpecVer uint8  // [31:24], RO
}

func (r versionReg) Pack() uint32 {
	return (r.Vendor & 0xFFFFFF) | (uint32(r.SpecVer) << 24)
}

type implementationReg struct {
	ImpID uint32
}

func (r implementationReg) Pack() uint32 { return r.ImpID }

type hwcfg0Reg struct {
	Enable    bool
	HWCFG2En  bool
	HWCFG3En  bool
	MDNum     uint8 // [29:24]
	AddrhEn   bool
	TOREn     bool
}

func (r hwcfg0Reg) Pack() uint32 {
	var v uint32
	if r.Enable {
		v |= 1 << 0
	}
	if r.HWCFG2En {
		v |= 1 << 1
	}
	if r.HWCFG3En {
		v |= 1 << 2
	}
	v |= uint32(r.MDNum&0x3F) << 24
	if r.AddrhEn {
		v |= 1 << 30
	}
	if r.TOREn {
		v |= 1 << 31
	}
	return v
}

func unpackHWCFG0(v uint32) hwcfg0Reg {
	return hwcfg0Reg{
		Enable:   v&(1<<0) != 0,
		HWCFG2En: v&(1<<1) != 0,
		HWCFG3En: v&(1<<2) != 0,
		MDNum:    uint8((v >> 24) & 0x3F),
		AddrhEn:  v&(1<<30) != 0,
		TOREn:    v&(1<<31) != 0,
	}
}

type hwcfg1Reg struct {
	RRIDNum  uint16
	EntryNum uint16
}

func (r hwcfg1Reg) Pack() uint32 {
	return uint32(r.RRIDNum) | (uint32(r.EntryNum) << 16)
}

type hwcfg2Reg struct {
	PrioEntry   uint16 // [15:0]
	PrioEntProg bool   // [16], write-1-clear, sticky-0
	NonPrioEn   bool   // [17]
	ChkX        bool   // [26]
	Peis        bool   // [27]
	Pees        bool   // [28]
	SpsEn       bool   // [29]
	StallEn     bool   // [30]
	MfrEn       bool   // [31]
}

func (r hwcfg2Reg) Pack() uint32 {
	var v uint32
	v |= uint32(r.PrioEntry)
	if r.PrioEntProg {
		v |= 1 << 16
	}
	if r.NonPrioEn {
		v |= 1 << 17
	}
	if r.ChkX {
		v |= 1 << 26
	}
	if r.Peis {
		v |= 1 << 27
	}
	if r.Pees {
		v |= 1 << 28
	}
	if r.SpsEn {
		v |= 1 << 29
	}
	if r.StallEn {
		v |= 1 << 30
	}
	if r.MfrEn {
		v |= 1 << 31
	}
	return v
}

func unpackHWCFG2(v uint32) hwcfg2Reg {
	return hwcfg2Reg{
		PrioEntry:   uint16(v & 0xFFFF),
		PrioEntProg: v&(1<<16) != 0,
		NonPrioEn:   v&(1<<17) != 0,
		ChkX:        v&(1<<26) != 0,
		Peis:        v&(1<<27) != 0,
		Pees:        v&(1<<28) != 0,
		SpsEn:       v&(1<<29) != 0,
		StallEn:     v&(1<<30) != 0,
		MfrEn:       v&(1<<31) != 0,
	}
}

type hwcfg3Reg struct {
	MDCFGFmt       MDCFGFormat // [1:0]
	SRCMDFmt       SRCMDFormat // [3:2]
	MDEntryNum     uint8       // [11:4]
	NoX            bool        // [12]
	NoW            bool        // [13]
	RRIDTranslEn   bool        // [14]
	RRIDTranslProg bool        // [15], write-1-clear, sticky-0
	RRIDTransl     uint16      // [31:16]
}

func (r hwcfg3Reg) Pack() uint32 {
	var v uint32
	v |= uint32(r.MDCFGFmt) & 0x3
	v |= (uint32(r.SRCMDFmt) & 0x3) << 2
	v |= uint32(r.MDEntryNum) << 4
	if r.NoX {
		v |= 1 << 12
	}
	if r.NoW {
		v |= 1 << 13
	}
	if r.RRIDTranslEn {
		v |= 1 << 14
	}
	if r.RRIDTranslProg {
		v |= 1 << 15
	}
	v |= uint32(r.RRIDTransl) << 16
	return v
}

func unpackHWCFG3(v uint32) hwcfg3Reg {
	return hwcfg3Reg{
		MDCFGFmt:       MDCFGFormat(v & 0x3),
		SRCMDFmt:       SRCMDFormat((v >> 2) & 0x3),
		MDEntryNum:     uint8((v >> 4) & 0xFF),
		NoX:            v&(1<<12) != 0,
		NoW:            v&(1<<13) != 0,
		RRIDTranslEn:   v&(1<<14) != 0,
		RRIDTranslProg: v&(1<<15) != 0,
		RRIDTransl:     uint16(v >> 16),
	}
}

// mdstallReg bundles MDSTALL's dual write/read-only-bit-0 meaning: on write,
// bit 0 is "exempt"; on read, bit 0 is "is_busy".
type mdstallReg struct {
	Exempt bool
	MD     uint32 // [31:1]
	IsBusy bool
}

func (r mdstallReg) PackWrite() uint32 {
	v := r.MD << 1
	if r.Exempt {
		v |= 1
	}
	return v
}

func (r mdstallReg) PackRead() uint32 {
	v := r.MD << 1
	if r.IsBusy {
		v |= 1
	}
	return v
}

type mdstallhReg struct {
	MDH uint32
}

const (
	rridscpOpQuery        = 0
	rridscpOpStall        = 1
	rridscpOpUnstall      = 2
	rridscpStatNotStalled = 2
	rridscpStatStalled    = 1
)

type rridscpReg struct {
	RRID uint16
	Op   uint8 // write-only
	Stat uint8 // read-only
}

func (r rridscpReg) PackWrite() uint32 {
	return uint32(r.RRID) | (uint32(r.Op&0x3) << 30)
}

func (r rridscpReg) PackRead() uint32 {
	return uint32(r.Stat&0x3) << 30
}

func unpackRRIDSCPWrite(v uint32) rridscpReg {
	return rridscpReg{
		RRID: uint16(v & 0xFFFF),
		Op:   uint8((v >> 30) & 0x3),
	}
}

type mdlckReg struct {
	L  bool
	MD uint32 // [31:1]
}

func (r mdlckReg) Pack() uint32 {
	v := r.MD << 1
	if r.L {
		v |= 1
	}
	return v
}

type mdlckhReg struct{ MDH uint32 }

type mdcfglckReg struct {
	L bool
	F uint8 // [7:1]
}

func (r mdcfglckReg) Pack() uint32 {
	return boolBit(r.L, 0) | (uint32(r.F) << 1)
}

type entrylckReg struct {
	L bool
	F uint16 // [16:1]
}

func (r entrylckReg) Pack() uint32 {
	return boolBit(r.L, 0) | (uint32(r.F) << 1)
}

type errCfgReg struct {
	L                bool
	IE               bool
	RS               bool
	MsiEn            bool
	StallViolationEn bool
	MsiData          uint16 // [18:8], 11 bits
}

func (r errCfgReg) Pack() uint32 {
	v := boolBit(r.L, 0) | boolBit(r.IE, 1) | boolBit(r.RS, 2) | boolBit(r.MsiEn, 3) | boolBit(r.StallViolationEn, 4)
	v |= uint32(r.MsiData&0x7FF) << 8
	return v
}

func unpackErrCfg(v uint32) errCfgReg {
	return errCfgReg{
		L:                v&(1<<0) != 0,
		IE:               v&(1<<1) != 0,
		RS:               v&(1<<2) != 0,
		MsiEn:            v&(1<<3) != 0,
		StallViolationEn: v&(1<<4) != 0,
		MsiData:          uint16((v >> 8) & 0x7FF),
	}
}

type errInfoReg struct {
	V       bool
	TType   uint8 // [2:1]
	MsiWerr bool
	EType   ErrorType // [7:4]
	Svc     bool
}

func (r errInfoReg) Pack() uint32 {
	v := boolBit(r.V, 0)
	v |= uint32(r.TType&0x3) << 1
	v |= boolBit(r.MsiWerr, 3)
	v |= uint32(r.EType&0xF) << 4
	v |= boolBit(r.Svc, 8)
	return v
}

type errReqAddrReg struct{ Addr uint32 }
type errReqAddrHReg struct{ Addrh uint32 }

type errReqIDReg struct {
	RRID uint16
	Eid  uint16
}

func (r errReqIDReg) Pack() uint32 {
	return uint32(r.RRID) | (uint32(r.Eid) << 16)
}

type errMfrReg struct {
	Svw uint16 // [15:0]
	Svi uint16 // [27:16], 12 bits
	Svs bool
}

func (r errMfrReg) Pack() uint32 {
	v := uint32(r.Svw)
	v |= uint32(r.Svi&0xFFF) << 16
	v |= boolBit(r.Svs, 31)
	return v
}

type errMsiAddrReg struct{ MsiAddr uint32 }
type errMsiAddrHReg struct{ MsiAddrh uint32 }

type mdcfgReg struct {
	T uint16 // top-entry index for this MD, [15:0]
}

func (r mdcfgReg) Pack() uint32 { return uint32(r.T) }

// srcmdFmt0 holds one RRID's row in SRCMD table format 0: an association
// bitmap (bit md+1 set means this RRID is a member of memory domain md) and,
// when SpsEn is set, secondary per-MD read/write grant bitmaps. MD/R/W are
// each the 64-bit concatenation of the register pair's low (bits 31:0) and
// high (bits 63:32) MMIO words.
type srcmdFmt0 struct {
	Locked bool
	MD     uint64
	R      uint64
	W      uint64
}

func (s *srcmdFmt0) member(md int) bool {
	return s.MD&(uint64(1)<<uint(md+1)) != 0
}

func (s *srcmdFmt0) readGranted(md int) bool {
	return s.R&(uint64(1)<<uint(md+1)) != 0
}

func (s *srcmdFmt0) writeGranted(md int) bool {
	return s.W&(uint64(1)<<uint(md+1)) != 0
}

// srcmdFmt2 holds one MD's row in SRCMD table format 2: a read/write
// permission bitmap indexed by RRID (bit 2*rrid = read grant, bit
// 2*rrid+1 = write grant), stored as a 64-bit concatenation of the
// register pair's low and high MMIO words.
type srcmdFmt2 struct {
	Perm  uint32
	Permh uint32
}

func (s *srcmdFmt2) combined() uint64 {
	return uint64(s.Permh)<<32 | uint64(s.Perm)
}

func (s *srcmdFmt2) readGranted(rrid int) bool {
	return s.combined()&(uint64(1)<<uint(2*rrid)) != 0
}

func (s *srcmdFmt2) writeGranted(rrid int) bool {
	return s.combined()&(uint64(1)<<uint(2*rrid+1)) != 0
}

type entryCfgReg struct {
	R, W, X bool
	A       AddrMode
	Sire, Siwe, Sixe bool
	Sere, Sewe, Sexe bool
}

func (r entryCfgReg) Pack() uint32 {
	v := boolBit(r.R, 0) | boolBit(r.W, 1) | boolBit(r.X, 2)
	v |= uint32(r.A&0x3) << 3
	v |= boolBit(r.Sire, 5) | boolBit(r.Siwe, 6) | boolBit(r.Sixe, 7)
	v |= boolBit(r.Sere, 8) | boolBit(r.Sewe, 9) | boolBit(r.Sexe, 10)
	return v
}

func unpackEntryCfg(v uint32) entryCfgReg {
	return entryCfgReg{
		R:    v&(1<<0) != 0,
		W:    v&(1<<1) != 0,
		X:    v&(1<<2) != 0,
		A:    AddrMode((v >> 3) & 0x3),
		Sire: v&(1<<5) != 0,
		Siwe: v&(1<<6) != 0,
		Sixe: v&(1<<7) != 0,
		Sere: v&(1<<8) != 0,
		Sewe: v&(1<<9) != 0,
		Sexe: v&(1<<10) != 0,
	}
}

func boolBit(b bool, pos uint) uint32 {
	if b {
		return 1 << pos
	}
	return 0
}
