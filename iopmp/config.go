/*
 * IOPMP reference model - reset-time instance configuration.
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

import "fmt"

// defaultStallBufDepth is used when Config.StallBufDepth is left at zero.
// The source spec treats STALL_BUF_DEPTH as an implementation constant;
// this value is a reasonable default for a reference model instance.
const defaultStallBufDepth = 8

// defaultUserToken is the implementation-defined value placed on
// Response.User when a fault is converted to SUCCESS by error suppression.
const defaultUserToken = 0x5A

// Config is the static, reset-time configuration of one IOPMP instance.
// It mirrors iopmp_cfg_t in the source reference model.
type Config struct {
	Vendor  uint32 // JEDEC manufacturer ID.
	SpecVer uint8  // Specification version.
	ImpID   uint32 // User-defined implementation ID.

	Enable bool // IOPMP checks transactions by default once set.

	MDNum     uint8  // Number of memory domains, 0..63.
	AddrhEn   bool   // ENTRY_ADDRH(i)/ERR_REQADDRH present.
	TOREn     bool   // TOR supported.
	RRIDNum   uint16 // Number of RRIDs.
	EntryNum  uint16 // Number of entries.
	PrioEntry uint16 // Number of priority entries, <= EntryNum.

	PrioEntProg bool // HWCFG2.prio_entry is programmable.
	NonPrioEn   bool // Non-priority entries supported.
	ChkX        bool // Instruction-fetch checking implemented.
	Peis        bool // Per-entry interrupt suppression implemented.
	Pees        bool // Per-entry error suppression implemented.
	SpsEn       bool // Secondary permission settings supported.
	StallEn     bool // MDSTALL/MDSTALLH/RRIDSCP implemented.
	MfrEn       bool // Multi-Faults Record implemented.

	MDCFGFmt   MDCFGFormat
	SRCMDFmt   SRCMDFormat
	MDEntryNum uint8 // For MDCFGFmt 1/2: entries per MD minus one.

	NoX bool // Deny all instruction fetches regardless of entry config.
	NoW bool // Deny all writes regardless of entry config.

	RRIDTranslEn   bool
	RRIDTranslProg bool
	RRIDTransl     uint16

	// EntryOffset is the value the ENTRYOFFSET register reads back. The
	// register decoder always places the entry table at entryTableBase
	// (0x2000); this value does not move it.
	EntryOffset int32

	// Granularity is the number of low-order address bits masked to zero
	// when deriving a TOR range (the smallest NAPOT region the
	// implementation supports). Zero means 4-byte granularity.
	Granularity uint8

	ImpMDLCK         bool // MDLCK/MDLCKH implemented.
	ImpErrorCapture  bool // Error-capture record implemented.
	ImpErrReqIDEid   bool // ERR_REQID.eid recorded.
	ImpRRIDSCP       bool // RRIDSCP-related features implemented.
	ImpMSI           bool // Message-signaled interrupts implemented.
	SrcEnforcementEn bool // Force rrid=0 before all lookups (source enforcement).

	// StallBufDepth bounds stall_cntr. Zero selects defaultStallBufDepth.
	StallBufDepth int
	// UserToken is the value placed on the response when a fault is
	// converted to SUCCESS by error suppression. Zero selects
	// defaultUserToken.
	UserToken uint8
}

// Validate checks the static invariants a Config must satisfy before a
// Device can be built from it.
func (c *Config) Validate() error {
	if c.MDNum > 63 {
		return fmt.Errorf("iopmp: md_num %d exceeds 63", c.MDNum)
	}
	if c.PrioEntry > c.EntryNum {
		return fmt.Errorf("iopmp: prio_entry %d exceeds entry_num %d", c.PrioEntry, c.EntryNum)
	}
	if c.EntryNum == 0 {
		return fmt.Errorf("iopmp: entry_num must be larger than zero")
	}
	if c.MDCFGFmt > MDCFGFormat2 {
		return fmt.Errorf("iopmp: invalid mdcfg_fmt %d", c.MDCFGFmt)
	}
	if c.SRCMDFmt > SRCMDFormat2 {
		return fmt.Errorf("iopmp: invalid srcmd_fmt %d", c.SRCMDFmt)
	}
	return nil
}

func (c *Config) stallBufDepth() int {
	if c.StallBufDepth <= 0 {
		return defaultStallBufDepth
	}
	return c.StallBufDepth
}

func (c *Config) userToken() uint8 {
	if c.UserToken == 0 {
		return defaultUserToken
	}
	return c.UserToken
}
