/*
 * IOPMP reference model - device instance and register decode (Component A).
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

import (
	"fmt"
	"log/slog"
)

// Register byte offsets, matching the original reference model's
// iopmp_registers.h map.
const (
	offVersion        = 0x00
	offImplementation = 0x04
	offHWCFG0         = 0x08
	offHWCFG1         = 0x0C
	offHWCFG2         = 0x10
	offHWCFG3         = 0x14
	offEntryOffset    = 0x2C
	offMDStall        = 0x30
	offMDStallH       = 0x34
	offRRIDSCP        = 0x38
	offMDLCK          = 0x40
	offMDLCKH         = 0x44
	offMDCFGLCK       = 0x48
	offEntryLCK       = 0x4C
	offErrCfg         = 0x60
	offErrInfo        = 0x64
	offErrReqAddr     = 0x68
	offErrReqAddrH    = 0x6C
	offErrReqID       = 0x70
	offErrMFR         = 0x74
	offErrMSIAddr     = 0x78
	offErrMSIAddrH    = 0x7C
	offErrUser0       = 0x80
	errUserCount      = 8
	errUserStride     = 4

	mdcfgTableBase = 0x0800
	mdcfgStride    = 4

	srcmdTableBase  = 0x1000
	srcmdFmt0Stride = 0x20 // 8 words per RRID row
	srcmdFmt2Stride = 0x20 // 8 words per MD row

	entryTableBase = 0x2000
	entryRowStride = 0x10 // addr, addrh, cfg, user_cfg
)

// MemoryWriter is the bus capability MSI delivery writes through. It
// returns ok=false (and a nil error) to model a BUS_ERROR response; a
// non-nil error indicates the bus itself could not be driven at all.
type MemoryWriter interface {
	WriteMemory(addr uint64, data uint64, length int) (ok bool, err error)
}

// Device is one configured IOPMP instance: register state, the MD/entry
// association tables, the entry table, error-capture state, and stall
// state. It is the unit ValidateAccess, ReadRegister and WriteRegister all
// operate on.
type Device struct {
	cfg Config
	mem MemoryWriter
	log *slog.Logger

	hwcfg0      hwcfg0Reg
	hwcfg2      hwcfg2Reg
	hwcfg3      hwcfg3Reg
	entryOffset int32

	mdlck    mdlckReg
	mdlckh   mdlckhReg
	mdcfglck mdcfglckReg
	entrylck entrylckReg

	errCfg      errCfgReg
	errInfo     errInfoReg
	errReqAddr  errReqAddrReg
	errReqAddrH errReqAddrHReg
	errReqID    errReqIDReg
	errMFR      errMfrReg
	errMSIAddr  errMsiAddrReg
	errMSIAddrH errMsiAddrHReg
	errUser     [errUserCount]uint32

	mdstallExempt   bool
	mdstallMD       uint32
	mdstallMDH      uint32
	rridStall       []bool
	stallCntr       int
	lastRRIDSCPRead uint32

	mdcfg     []mdcfgReg
	srcmdFmt0 []srcmdFmt0
	srcmdFmt2 []srcmdFmt2

	entries []Entry

	svWindows []SVWindow
}

// NewDevice builds a Device at its post-reset state from cfg. mem is the
// bus used for MSI writes; logger may be nil, in which case a discarding
// logger is used.
func NewDevice(cfg Config, mem MemoryWriter, logger *slog.Logger) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}

	d := &Device{
		cfg:         cfg,
		mem:         mem,
		log:         logger,
		entryOffset: cfg.EntryOffset,
		entries:     make([]Entry, cfg.EntryNum),
		svWindows:   make([]SVWindow, (int(cfg.RRIDNum)+15)/16),
		rridStall:   make([]bool, cfg.RRIDNum),
	}

	d.hwcfg0 = hwcfg0Reg{
		Enable:   cfg.Enable,
		HWCFG2En: true,
		HWCFG3En: true,
		MDNum:    cfg.MDNum,
		AddrhEn:  cfg.AddrhEn,
		TOREn:    cfg.TOREn,
	}
	d.hwcfg2 = hwcfg2Reg{
		PrioEntry:   cfg.PrioEntry,
		PrioEntProg: cfg.PrioEntProg,
		NonPrioEn:   cfg.NonPrioEn,
		ChkX:        cfg.ChkX,
		Peis:        cfg.Peis,
		Pees:        cfg.Pees,
		SpsEn:       cfg.SpsEn,
		StallEn:     cfg.StallEn,
		MfrEn:       cfg.MfrEn,
	}
	d.hwcfg3 = hwcfg3Reg{
		MDCFGFmt:       cfg.MDCFGFmt,
		SRCMDFmt:       cfg.SRCMDFmt,
		MDEntryNum:     cfg.MDEntryNum,
		NoX:            cfg.NoX,
		NoW:            cfg.NoW,
		RRIDTranslEn:   cfg.RRIDTranslEn,
		RRIDTranslProg: cfg.RRIDTranslProg,
		RRIDTransl:     cfg.RRIDTransl,
	}

	if cfg.MDCFGFmt == MDCFGFormat0 {
		d.mdcfg = make([]mdcfgReg, cfg.MDNum)
	}
	switch cfg.SRCMDFmt {
	case SRCMDFormat0, SRCMDFormat1:
		d.srcmdFmt0 = make([]srcmdFmt0, cfg.RRIDNum)
		if cfg.SRCMDFmt == SRCMDFormat1 {
			for i := range d.srcmdFmt0 {
				if i < int(cfg.MDNum) {
					d.srcmdFmt0[i].MD = uint64(1) << uint(i+1)
				}
			}
		}
	case SRCMDFormat2:
		d.srcmdFmt2 = make([]srcmdFmt2, cfg.MDNum)
	}

	return d, nil
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// ReadRegister decodes a register-space byte offset and returns its current
// value, zero-extended to width bytes (4 or 8).
func (d *Device) ReadRegister(offset uint64, width int) (uint64, error) {
	if width != 4 && width != 8 {
		return 0, fmt.Errorf("iopmp: unsupported register access width %d", width)
	}

	switch {
	case offset >= entryTableBase:
		return d.readEntryTable(offset-entryTableBase, width)
	case offset >= srcmdTableBase:
		return d.readSRCMDTable(offset-srcmdTableBase, width)
	case offset >= mdcfgTableBase:
		return d.readMDCFGTable(offset-mdcfgTableBase, width)
	}

	switch offset {
	case offVersion:
		return uint64(versionReg{Vendor: d.cfg.Vendor, SpecVer: d.cfg.SpecVer}.Pack()), nil
	case offImplementation:
		return uint64(implementationReg{ImpID: d.cfg.ImpID}.Pack()), nil
	case offHWCFG0:
		return uint64(d.hwcfg0.Pack()), nil
	case offHWCFG1:
		return uint64(hwcfg1Reg{RRIDNum: d.cfg.RRIDNum, EntryNum: d.cfg.EntryNum}.Pack()), nil
	case offHWCFG2:
		return uint64(d.hwcfg2.Pack()), nil
	case offHWCFG3:
		return uint64(d.hwcfg3.Pack()), nil
	case offEntryOffset:
		return uint64(uint32(d.entryOffset)), nil
	case offMDStall:
		if !d.cfg.StallEn {
			return 0, nil
		}
		return uint64(mdstallReg{MD: d.mdstallMD}.PackRead()), nil
	case offMDStallH:
		if !d.cfg.StallEn {
			return 0, nil
		}
		return uint64(d.mdstallMDH), nil
	case offRRIDSCP:
		if !d.cfg.StallEn || !d.cfg.ImpRRIDSCP {
			return 0, nil
		}
		return uint64(d.lastRRIDSCPRead), nil
	case offMDLCK:
		if !d.cfg.ImpMDLCK {
			return 0, nil
		}
		return uint64(d.mdlck.Pack()), nil
	case offMDLCKH:
		if !d.cfg.ImpMDLCK {
			return 0, nil
		}
		return uint64(d.mdlckh.MDH), nil
	case offMDCFGLCK:
		return uint64(d.mdcfglck.Pack()), nil
	case offEntryLCK:
		return uint64(d.entrylck.Pack()), nil
	case offErrCfg:
		return uint64(d.errCfg.Pack()), nil
	case offErrInfo:
		return uint64(d.errInfo.Pack()), nil
	case offErrReqAddr:
		return uint64(d.errReqAddr.Addr), nil
	case offErrReqAddrH:
		return uint64(d.errReqAddrH.Addrh), nil
	case offErrReqID:
		return uint64(d.errReqID.Pack()), nil
	case offErrMFR:
		return uint64(d.errMFR.Pack()), nil
	case offErrMSIAddr:
		return uint64(d.errMSIAddr.MsiAddr), nil
	case offErrMSIAddrH:
		return uint64(d.errMSIAddrH.MsiAddrh), nil
	}

	if offset >= offErrUser0 && offset < offErrUser0+errUserCount*errUserStride {
		idx := (offset - offErrUser0) / errUserStride
		return uint64(d.errUser[idx]), nil
	}

	return 0, fmt.Errorf("iopmp: read of undefined register offset 0x%x", offset)
}

// WriteRegister applies a write to offset, enforcing WARL field masks,
// sticky lock bits, and write-1-to-clear/write-1-to-set semantics.
func (d *Device) WriteRegister(offset uint64, width int, data uint64) error {
	if width != 4 && width != 8 {
		return fmt.Errorf("iopmp: unsupported register access width %d", width)
	}

	switch {
	case offset >= entryTableBase:
		return d.writeEntryTable(offset-entryTableBase, width, data)
	case offset >= srcmdTableBase:
		return d.writeSRCMDTable(offset-srcmdTableBase, width, data)
	case offset >= mdcfgTableBase:
		return d.writeMDCFGTable(offset-mdcfgTableBase, width, data)
	}

	v := uint32(data)
	switch offset {
	case offHWCFG0:
		in := unpackHWCFG0(v)
		if !d.hwcfg0.Enable {
			d.hwcfg0.Enable = in.Enable
		}
		return nil
	case offHWCFG2:
		in := unpackHWCFG2(v)
		if d.hwcfg2.PrioEntProg && in.PrioEntProg {
			d.hwcfg2.PrioEntProg = false
		}
		if d.hwcfg2.PrioEntProg {
			d.hwcfg2.PrioEntry = in.PrioEntry
		}
		return nil
	case offHWCFG3:
		in := unpackHWCFG3(v)
		if d.hwcfg3.RRIDTranslProg && in.RRIDTranslProg {
			d.hwcfg3.RRIDTranslProg = false
		}
		if d.hwcfg3.RRIDTranslProg {
			d.hwcfg3.RRIDTransl = in.RRIDTransl
		}
		return nil
	case offMDStall:
		if !d.cfg.StallEn {
			return nil
		}
		d.mdstallExempt = v&1 != 0
		d.mdstallMD = v >> 1
		d.applyStall()
		return nil
	case offMDStallH:
		if !d.cfg.StallEn {
			return nil
		}
		d.mdstallMDH = v
		d.applyStall()
		return nil
	case offRRIDSCP:
		if !d.cfg.StallEn || !d.cfg.ImpRRIDSCP {
			return nil
		}
		req := unpackRRIDSCPWrite(v)
		d.applyRRIDSCP(req)
		return nil
	case offMDLCK:
		if !d.cfg.ImpMDLCK {
			return nil
		}
		if d.mdlck.L {
			return nil
		}
		d.mdlck.MD |= v >> 1
		if v&1 != 0 {
			d.mdlck.L = true
		}
		return nil
	case offMDLCKH:
		if !d.cfg.ImpMDLCK || d.mdlck.L {
			return nil
		}
		d.mdlckh.MDH |= v
		return nil
	case offMDCFGLCK:
		if d.mdcfglck.L {
			return nil
		}
		if v>>1&0x7F > uint32(d.mdcfglck.F) {
			d.mdcfglck.F = uint8(v >> 1 & 0x7F)
		}
		if v&1 != 0 {
			d.mdcfglck.L = true
		}
		return nil
	case offEntryLCK:
		if d.entrylck.L {
			return nil
		}
		if uint16(v>>1) > d.entrylck.F {
			d.entrylck.F = uint16(v >> 1)
		}
		if v&1 != 0 {
			d.entrylck.L = true
		}
		return nil
	case offErrCfg:
		if d.errCfg.L {
			return nil
		}
		in := unpackErrCfg(v)
		d.errCfg = in
		return nil
	case offErrInfo:
		if v&1 != 0 {
			d.errInfo.V = false
		}
		if v&(1<<3) != 0 {
			d.errInfo.MsiWerr = false
		}
		if v&(1<<8) != 0 {
			d.errInfo.Svc = false
		}
		return nil
	case offErrMFR:
		if v&(1<<31) != 0 {
			d.errMFR.Svs = false
		}
		return nil
	case offErrMSIAddr:
		d.errMSIAddr.MsiAddr = v
		return nil
	case offErrMSIAddrH:
		d.errMSIAddrH.MsiAddrh = v
		return nil
	}

	if offset >= offErrUser0 && offset < offErrUser0+errUserCount*errUserStride {
		idx := (offset - offErrUser0) / errUserStride
		d.errUser[idx] = v
		return nil
	}

	switch offset {
	case offVersion, offImplementation, offHWCFG1, offEntryOffset, offErrReqAddr, offErrReqAddrH, offErrReqID:
		return nil // read-only registers accept writes silently, per WARL
	}

	return fmt.Errorf("iopmp: write to undefined register offset 0x%x", offset)
}

func (d *Device) readMDCFGTable(rel uint64, _ int) (uint64, error) {
	idx := rel / mdcfgStride
	if idx >= uint64(len(d.mdcfg)) {
		return 0, fmt.Errorf("iopmp: mdcfg index %d out of range", idx)
	}
	return uint64(d.mdcfg[idx].Pack()), nil
}

func (d *Device) writeMDCFGTable(rel uint64, _ int, data uint64) error {
	idx := rel / mdcfgStride
	if idx >= uint64(len(d.mdcfg)) {
		return fmt.Errorf("iopmp: mdcfg index %d out of range", idx)
	}
	if d.mdcfgLocked(int(idx)) {
		return nil
	}
	d.mdcfg[idx].T = uint16(data)
	return nil
}

func (d *Device) mdcfgLocked(idx int) bool {
	return d.mdcfglck.L && idx < int(d.mdcfglck.F)
}

func (d *Device) readSRCMDTable(rel uint64, _ int) (uint64, error) {
	if d.cfg.SRCMDFmt == SRCMDFormat2 {
		idx := rel / srcmdFmt2Stride
		word := rel % srcmdFmt2Stride
		if idx >= uint64(len(d.srcmdFmt2)) {
			return 0, fmt.Errorf("iopmp: srcmd index %d out of range", idx)
		}
		row := d.srcmdFmt2[idx]
		switch word {
		case 0:
			return uint64(row.Perm), nil
		case 4:
			return uint64(row.Permh), nil
		default:
			return 0, nil
		}
	}
	idx := rel / srcmdFmt0Stride
	word := rel % srcmdFmt0Stride
	if idx >= uint64(len(d.srcmdFmt0)) {
		return 0, fmt.Errorf("iopmp: srcmd index %d out of range", idx)
	}
	row := d.srcmdFmt0[idx]
	switch word {
	case 0x00:
		return uint64(srcmdEn{L: row.Locked, MD: uint32(row.MD)}.Pack()), nil
	case 0x04:
		return uint64(row.MD >> 32), nil
	case 0x08:
		return uint64(uint32(row.R)), nil
	case 0x0C:
		return uint64(row.R >> 32), nil
	case 0x10:
		return uint64(uint32(row.W)), nil
	case 0x14:
		return uint64(row.W >> 32), nil
	default:
		return 0, nil
	}
}

func (d *Device) writeSRCMDTable(rel uint64, _ int, data uint64) error {
	if d.cfg.SRCMDFmt == SRCMDFormat1 {
		return nil // fixed association, read-only
	}
	if d.cfg.SRCMDFmt == SRCMDFormat2 {
		idx := rel / srcmdFmt2Stride
		word := rel % srcmdFmt2Stride
		if idx >= uint64(len(d.srcmdFmt2)) {
			return fmt.Errorf("iopmp: srcmd index %d out of range", idx)
		}
		switch word {
		case 0:
			d.srcmdFmt2[idx].Perm = uint32(data)
		case 4:
			d.srcmdFmt2[idx].Permh = uint32(data)
		}
		return nil
	}
	idx := rel / srcmdFmt0Stride
	word := rel % srcmdFmt0Stride
	if idx >= uint64(len(d.srcmdFmt0)) {
		return fmt.Errorf("iopmp: srcmd index %d out of range", idx)
	}
	row := &d.srcmdFmt0[idx]
	if row.Locked {
		return nil
	}
	v := uint32(data)
	switch word {
	case 0x00:
		row.MD = (row.MD &^ 0xFFFFFFFE) | uint64(v&^1)
		if v&1 != 0 {
			row.Locked = true
		}
	case 0x04:
		row.MD = (row.MD & 0xFFFFFFFF) | (uint64(v) << 32)
	case 0x08:
		row.R = (row.R &^ 0xFFFFFFFF) | uint64(v)
	case 0x0C:
		row.R = (row.R & 0xFFFFFFFF) | (uint64(v) << 32)
	case 0x10:
		row.W = (row.W &^ 0xFFFFFFFF) | uint64(v)
	case 0x14:
		row.W = (row.W & 0xFFFFFFFF) | (uint64(v) << 32)
	}
	return nil
}

func (d *Device) readEntryTable(rel uint64, _ int) (uint64, error) {
	idx := rel / entryRowStride
	word := rel % entryRowStride
	if idx >= uint64(len(d.entries)) {
		return 0, fmt.Errorf("iopmp: entry index %d out of range", idx)
	}
	e := &d.entries[idx]
	switch word {
	case 0x0:
		return uint64(e.AddrLo), nil
	case 0x4:
		return uint64(e.AddrHi), nil
	case 0x8:
		return uint64(e.Cfg.Pack()), nil
	case 0xC:
		return uint64(e.User), nil
	default:
		return 0, nil
	}
}

func (d *Device) writeEntryTable(rel uint64, _ int, data uint64) error {
	idx := rel / entryRowStride
	word := rel % entryRowStride
	if idx >= uint64(len(d.entries)) {
		return fmt.Errorf("iopmp: entry index %d out of range", idx)
	}
	if d.entryLocked(int(idx)) {
		return nil
	}
	e := &d.entries[idx]
	v := uint32(data)
	switch word {
	case 0x0:
		e.AddrLo = v
	case 0x4:
		if d.cfg.AddrhEn {
			e.AddrHi = v
		}
	case 0x8:
		e.Cfg = unpackEntryCfg(v)
	case 0xC:
		e.User = v
	}
	return nil
}

func (d *Device) entryLocked(idx int) bool {
	return d.entrylck.L && idx < int(d.entrylck.F)
}

// EntryCount returns the configured size of the entry table, for shell and
// test code that wants to iterate it through ReadRegister rather than
// reaching into package-internal state.
func (d *Device) EntryCount() int {
	return len(d.entries)
}

func (d *Device) anyStalled() bool {
	for _, s := range d.rridStall {
		if s {
			return true
		}
	}
	return false
}

// srcmdEn is the low word of an SRCMD format-0 row (SRCMD_EN).
type srcmdEn struct {
	L  bool
	MD uint32
}

func (r srcmdEn) Pack() uint32 {
	v := r.MD &^ 1
	if r.L {
		v |= 1
	}
	return v
}
