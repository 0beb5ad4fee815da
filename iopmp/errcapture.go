/*
 * IOPMP reference model - error capture (Component D).
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

// captureError records one violation into the first-record fields of
// ERR_INFO/ERR_REQADDR/ERR_REQID, or into the Multi-Faults Record if a
// record is already pending, then arbitrates the resulting interrupt. It
// returns the wired-interrupt signal, mirroring errorCapture plus its call
// into generate_interrupt.
func (d *Device) captureError(addr uint64, rrid uint16, eid uint16, etype ErrorType, ttype uint8, intrptSuppress, errSuppress bool) bool {
	if !d.cfg.ImpErrorCapture {
		return false
	}

	firstRecord := (!errSuppress || !intrptSuppress) && !d.errInfo.V
	if firstRecord {
		d.errInfo.V = true
		d.errInfo.TType = ttype
		d.errInfo.EType = etype
		d.errReqAddr.Addr = uint32(addr >> 2)
		d.errReqAddrH.Addrh = uint32(addr >> 34)
		d.errReqID.RRID = rrid
		if d.cfg.ImpErrReqIDEid {
			d.errReqID.Eid = eid
		}
	} else if d.cfg.MfrEn && d.errInfo.V {
		d.recordSubsequentViolation(rrid)
	}

	return d.generateInterrupt(d.errCfg.IE, intrptSuppress)
}

// recordSubsequentViolation sets the Multi-Faults Record's window bit for
// rrid and latches svs/svc so software can discover that more than one
// RRID has faulted since the last ERR_INFO record was cleared.
func (d *Device) recordSubsequentViolation(rrid uint16) {
	windowIdx := int(rrid) / 16
	if windowIdx >= len(d.svWindows) {
		return
	}
	d.svWindows[windowIdx].set(int(rrid) % 16)

	d.errMFR.Svi = uint16(windowIdx)
	d.errMFR.Svw = d.svWindows[windowIdx].Bits
	d.errMFR.Svs = true
	d.errInfo.Svc = true
}
