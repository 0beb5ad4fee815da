/*
 * IOPMP reference model - stall controller (Component F).
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

// applyStall reacts to an MDSTALL/MDSTALLH write. Since the model has no
// internal concurrency, a stall request against a set of MDs completes
// synchronously: there is never an in-flight transaction left to wait for,
// so MDSTALL.is_busy always reads back zero once the write that requested
// the stall has been applied.
func (d *Device) applyStall() {
	if d.mdstallMD == 0 && d.mdstallMDH == 0 {
		return
	}
	// Entries belonging to a stalled MD are not removed from the table;
	// the stall only gates whether RRIDSCP can bring individual RRIDs to
	// a stopped state while software reprograms that MD's entries. The
	// reference model exposes this as a no-op beyond recording the
	// request, since ValidateAccess consults per-RRID stall state
	// (rridIsStalled), not mdstall, as its enforcement point.
}

// applyRRIDSCP executes one RRIDSCP request (query, stall, or unstall a
// single RRID) and latches the resulting status word for the next read of
// RRIDSCP, mirroring the source model's write-then-read-status protocol.
//
// stallCntr (the bounded stall buffer) counts transactions ValidateAccess has
// parked against an already-stalled RRID, not the set of stalled RRIDs
// itself; unstalling an RRID is what software uses to signal that it has
// drained/resumed the parked work, so it resets the buffer occupancy here.
func (d *Device) applyRRIDSCP(req rridscpReg) {
	if int(req.RRID) >= len(d.rridStall) {
		d.lastRRIDSCPRead = rridscpReg{Stat: rridscpStatNotStalled}.PackRead()
		return
	}

	switch req.Op {
	case rridscpOpStall:
		d.rridStall[req.RRID] = true
		d.lastRRIDSCPRead = rridscpReg{Stat: rridscpStatStalled}.PackRead()

	case rridscpOpUnstall:
		if d.rridStall[req.RRID] {
			d.rridStall[req.RRID] = false
			d.stallCntr = 0
		}
		d.lastRRIDSCPRead = rridscpReg{Stat: rridscpStatNotStalled}.PackRead()

	default: // rridscpOpQuery
		if d.rridStall[req.RRID] {
			d.lastRRIDSCPRead = rridscpReg{Stat: rridscpStatStalled}.PackRead()
		} else {
			d.lastRRIDSCPRead = rridscpReg{Stat: rridscpStatNotStalled}.PackRead()
		}
	}
}

// rridIsStalled reports whether rrid is currently held stalled. ValidateAccess
// parks such a transaction while the stall buffer has room; once it is full
// the transaction faults with STALLED_TRANSACTION if stall_violation_en is
// set, and is dropped otherwise.
func (d *Device) rridIsStalled(rrid uint16) bool {
	if !d.cfg.StallEn || int(rrid) >= len(d.rridStall) {
		return false
	}
	return d.rridStall[rrid]
}
