/*
 * IOPMP reference model - validation pipeline (Component C).
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

// ttypeFor maps a requested permission to the 2-bit transaction-type code
// recorded in ERR_INFO.ttype. PermRead/PermWrite/PermInstr already carry
// the 1/2/3 encoding ttype uses, so no remapping is needed.
func ttypeFor(perm Perm) uint8 {
	return uint8(perm)
}

// ValidateAccess runs one transaction through the full pipeline: source
// enforcement, RRID translation, bounds and stall checks, and the entry
// walk, returning the {response, interrupt} pair a DUT's golden model
// must match. The only error return is for a malformed Request (an
// instruction fetch that is also an atomic memory operation); every
// transaction-level fault is reported through Response.Status, not a Go
// error.
func (d *Device) ValidateAccess(req Request) (Response, error) {
	if req.Perm == PermInstr && req.IsAMO {
		return Response{}, fmt.Errorf("iopmp: instruction fetch cannot be an atomic memory operation")
	}

	rrid := req.RRID
	if d.cfg.SrcEnforcementEn {
		rrid = 0
	}

	rsp := Response{
		RRID:       uint32(rrid),
		Status:     StatusSuccess,
		RRIDTransl: rrid,
	}
	if d.hwcfg3.RRIDTranslEn {
		rsp.RRIDTransl = d.hwcfg3.RRIDTransl
	}

	if !d.hwcfg0.Enable {
		return rsp, nil
	}

	if int(rrid) >= int(d.cfg.RRIDNum) {
		return d.deny(rsp, req, rrid, 0, ErrUnknownRRID, false, false), nil
	}

	if d.rridIsStalled(rrid) {
		rsp.RRIDStalled = true
		if d.stallCntr < d.cfg.stallBufDepth() {
			d.stallCntr++
			return rsp, nil
		}
		rsp.RRIDStalledNoAvailableBuffer = true
		if d.errCfg.StallViolationEn {
			return d.deny(rsp, req, rrid, 0, ErrStalledTransaction, false, false), nil
		}
		return rsp, nil
	}

	if req.Perm == PermWrite && d.cfg.NoW {
		return d.deny(rsp, req, rrid, 0, ErrNotHitAnyRule, false, false), nil
	}
	if req.Perm == PermInstr {
		if d.cfg.ChkX && d.cfg.NoX {
			return d.deny(rsp, req, rrid, 0, ErrNotHitAnyRule, false, false), nil
		}
		if !d.cfg.ChkX {
			// Execute checking not implemented: the rest of the pipeline
			// treats this transaction as a plain read.
			req.Perm = PermRead
		}
	}

	ts := req.Addr
	te := req.end()

	// Priority and non-priority entries are walked together, MD by MD, in
	// the same order the C reference model's MD loop visits them: a
	// priority entry is only reached for MDs actually associated with
	// rrid, and its r/w/x check is still gated by that MD's SRCMD bits.
	var (
		firstIllegalSeen  bool
		firstIllegalEid   uint16
		firstIllegalEtype ErrorType
		firstIllegalIntr  bool
		firstIllegalErr   bool
	)

	for _, m := range d.associatedMDs(rrid) {
		lo, hi := d.entryRangeForMD(m)
		if hi > len(d.entries) {
			hi = len(d.entries)
		}
		rOK, wOK := d.mdGrant(rrid, m)

		for i := lo; i < hi; i++ {
			if i < int(d.hwcfg2.PrioEntry) {
				status, granted := d.tryEntry(i, req, ts, te, rOK, wOK)
				switch status {
				case Match:
					if granted {
						return rsp, nil
					}
					intrSup, errSup := suppressionFor(&d.cfg, &d.entries[i], req.Perm)
					return d.deny(rsp, req, rrid, uint16(i), permToErrorType(req.Perm), intrSup, errSup), nil
				case PartialMatch:
					return d.deny(rsp, req, rrid, uint16(i), ErrPartialHitPriority, false, false), nil
				}
				continue
			}

			if !d.hwcfg2.NonPrioEn {
				continue
			}
			status, granted := d.tryEntry(i, req, ts, te, rOK, wOK)
			switch status {
			case Match:
				if granted {
					return rsp, nil
				}
				if !firstIllegalSeen {
					firstIllegalSeen = true
					firstIllegalEid = uint16(i)
					firstIllegalEtype = permToErrorType(req.Perm)
					firstIllegalIntr, firstIllegalErr = suppressionFor(&d.cfg, &d.entries[i], req.Perm)
				}
			case PartialMatch:
				// Non-priority partial matches are not fatal: the walk
				// simply continues looking for a later grant or denial.
			}
		}
	}

	if firstIllegalSeen {
		return d.deny(rsp, req, rrid, firstIllegalEid, firstIllegalEtype, firstIllegalIntr, firstIllegalErr), nil
	}
	return d.deny(rsp, req, rrid, 0, ErrNotHitAnyRule, false, false), nil
}

// tryEntry evaluates entry idx against the transaction's byte range,
// returning its match status and, only when Match, whether the requested
// permission is granted. rOK/wOK carry the MD-level read/write grant a
// SRCMD lookup contributed for the entry's owning MD (always true for
// association-only SRCMD formats).
func (d *Device) tryEntry(idx int, req Request, ts, te uint64, rOK, wOK bool) (MatchStatus, bool) {
	e := &d.entries[idx]
	if e.Cfg.A == AddrOff {
		return NotMatch, false
	}

	var prev uint64
	if idx > 0 {
		prev = d.entries[idx-1].rawAddr()
	}
	lo, hi := addrRange(e.Cfg.A, prev, e.rawAddr(), d.cfg.Granularity)

	status := matchAddr(lo, hi, ts, te)
	if status != Match {
		return status, false
	}
	return status, grantFor(&d.cfg, e, req.Perm, req.IsAMO, rOK, wOK)
}

// associatedMDs returns the memory domains rrid must be checked against,
// per the configured SRCMD table format.
func (d *Device) associatedMDs(rrid uint16) []int {
	if d.cfg.SRCMDFmt == SRCMDFormat0 || d.cfg.SRCMDFmt == SRCMDFormat1 {
		if int(rrid) >= len(d.srcmdFmt0) {
			return nil
		}
		row := &d.srcmdFmt0[rrid]
		mds := make([]int, 0, d.cfg.MDNum)
		for m := 0; m < int(d.cfg.MDNum); m++ {
			if row.member(m) {
				mds = append(mds, m)
			}
		}
		return mds
	}

	// SRCMDFormat2 carries no association bitmap: every configured MD is
	// a lookup candidate, and its per-MD permission row (indexed by rrid)
	// gates the grant instead.
	mds := make([]int, d.cfg.MDNum)
	for m := range mds {
		mds[m] = m
	}
	return mds
}

// entryRangeForMD returns the half-open [lo, hi) entry-table range that
// belongs to memory domain m, per the configured MDCFG table format.
func (d *Device) entryRangeForMD(m int) (lo, hi int) {
	if d.cfg.MDCFGFmt == MDCFGFormat0 {
		if m < len(d.mdcfg) {
			hi = int(d.mdcfg[m].T)
		}
		if m > 0 && m-1 < len(d.mdcfg) {
			lo = int(d.mdcfg[m-1].T)
		}
		return lo, hi
	}
	span := int(d.cfg.MDEntryNum) + 1
	lo = m * span
	hi = lo + span
	return lo, hi
}

// mdGrant returns the MD-level read/write grant SRCMD contributes for
// (rrid, md), independent of any individual entry's own r/w/x bits.
func (d *Device) mdGrant(rrid uint16, md int) (rOK, wOK bool) {
	switch d.cfg.SRCMDFmt {
	case SRCMDFormat2:
		if md >= len(d.srcmdFmt2) {
			return false, false
		}
		row := &d.srcmdFmt2[md]
		return row.readGranted(int(rrid)), row.writeGranted(int(rrid))
	case SRCMDFormat0:
		if !d.cfg.SpsEn {
			return true, true
		}
		if int(rrid) >= len(d.srcmdFmt0) {
			return false, false
		}
		row := &d.srcmdFmt0[rrid]
		return row.readGranted(md), row.writeGranted(md)
	default: // SRCMDFormat1: association alone decides, no secondary bits
		return true, true
	}
}

// deny finishes a denied transaction: captures the fault (which may itself
// be suppressed into SUCCESS by errSuppress) and folds in the resulting
// wired-interrupt signal.
func (d *Device) deny(rsp Response, req Request, rrid uint16, eid uint16, etype ErrorType, intrSuppress, errSuppress bool) Response {
	wired := d.captureError(req.Addr, rrid, eid, etype, ttypeFor(req.Perm), intrSuppress, errSuppress)
	if errSuppress {
		rsp.Status = StatusSuccess
		rsp.User = d.cfg.userToken()
	} else {
		rsp.Status = StatusError
	}
	rsp.WiredInterrupt = wired
	return rsp
}
