/*
 * IOPMP reference model - stall controller test set.
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

import "testing"

func stallTestConfig() Config {
	cfg := baseTestConfig()
	cfg.StallEn = true
	cfg.ImpRRIDSCP = true
	cfg.StallBufDepth = 2
	return cfg
}

func TestApplyRRIDSCPQueryNotStalled(t *testing.T) {
	dev := newTestDevice(t, stallTestConfig())
	dev.applyRRIDSCP(rridscpReg{RRID: 0, Op: rridscpOpQuery})
	if dev.lastRRIDSCPRead != (rridscpReg{Stat: rridscpStatNotStalled}).PackRead() {
		t.Errorf("query of unstalled rrid did not report not-stalled")
	}
}

func TestApplyRRIDSCPStallThenQuery(t *testing.T) {
	dev := newTestDevice(t, stallTestConfig())
	dev.applyRRIDSCP(rridscpReg{RRID: 2, Op: rridscpOpStall})
	if !dev.rridStall[2] {
		t.Fatalf("rrid 2 not recorded as stalled")
	}
	if dev.lastRRIDSCPRead != (rridscpReg{Stat: rridscpStatStalled}).PackRead() {
		t.Errorf("stall request did not report stalled status")
	}

	dev.applyRRIDSCP(rridscpReg{RRID: 2, Op: rridscpOpQuery})
	if dev.lastRRIDSCPRead != (rridscpReg{Stat: rridscpStatStalled}).PackRead() {
		t.Errorf("query after stall did not report stalled status")
	}
}

func TestApplyRRIDSCPStallAlreadyStalledIsIdempotent(t *testing.T) {
	dev := newTestDevice(t, stallTestConfig())
	dev.applyRRIDSCP(rridscpReg{RRID: 1, Op: rridscpOpStall})
	dev.applyRRIDSCP(rridscpReg{RRID: 1, Op: rridscpOpStall})
	if !dev.rridStall[1] {
		t.Errorf("rrid 1 not recorded as stalled")
	}
}

func TestApplyRRIDSCPUnstall(t *testing.T) {
	dev := newTestDevice(t, stallTestConfig())
	dev.applyRRIDSCP(rridscpReg{RRID: 3, Op: rridscpOpStall})
	dev.applyRRIDSCP(rridscpReg{RRID: 3, Op: rridscpOpUnstall})

	if dev.rridStall[3] {
		t.Errorf("rrid 3 still recorded as stalled after unstall")
	}
	if dev.stallCntr != 0 {
		t.Errorf("stallCntr = %d, want 0 after unstall (software has drained the parked buffer)", dev.stallCntr)
	}
	if dev.lastRRIDSCPRead != (rridscpReg{Stat: rridscpStatNotStalled}).PackRead() {
		t.Errorf("unstall did not report not-stalled")
	}
}

func TestApplyRRIDSCPOutOfRangeRRID(t *testing.T) {
	dev := newTestDevice(t, stallTestConfig())
	dev.applyRRIDSCP(rridscpReg{RRID: uint16(len(dev.rridStall)), Op: rridscpOpStall})
	if dev.lastRRIDSCPRead != (rridscpReg{Stat: rridscpStatNotStalled}).PackRead() {
		t.Errorf("out-of-range rrid did not report not-stalled")
	}
}

// TestStalledTransactionFillsBufferThenFaults is scenario S6: a requester
// already parked one transaction short of the buffer limit; the next
// transaction fills the buffer, and the one after that overflows it and
// faults under stall_violation_en.
func TestStalledTransactionFillsBufferThenFaults(t *testing.T) {
	cfg := stallTestConfig() // StallBufDepth = 2
	cfg.Enable = true
	cfg.ImpErrorCapture = true
	dev := newTestDevice(t, cfg)
	dev.rridStall[7] = true
	dev.stallCntr = dev.cfg.stallBufDepth() - 1
	dev.errCfg.StallViolationEn = true

	req := Request{RRID: 7, Addr: 0x1000, Size: 2, Perm: PermRead}

	rsp, err := dev.ValidateAccess(req)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if !rsp.RRIDStalled {
		t.Errorf("rsp.RRIDStalled = false, want true")
	}
	if rsp.Status != StatusSuccess {
		t.Errorf("Status = %v, want StatusSuccess while the buffer still has room", rsp.Status)
	}
	if dev.stallCntr != dev.cfg.stallBufDepth() {
		t.Errorf("stallCntr = %d, want %d after filling the buffer", dev.stallCntr, dev.cfg.stallBufDepth())
	}

	rsp, err = dev.ValidateAccess(req)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusError {
		t.Errorf("Status = %v, want StatusError once the buffer has overflowed", rsp.Status)
	}
	if dev.errInfo.EType != ErrStalledTransaction {
		t.Errorf("errInfo.EType = %v, want %v", dev.errInfo.EType, ErrStalledTransaction)
	}
	if dev.errReqID.RRID != 7 {
		t.Errorf("errReqID.RRID = %d, want 7", dev.errReqID.RRID)
	}
}

func TestRRIDIsStalledRespectsStallEn(t *testing.T) {
	dev := newTestDevice(t, stallTestConfig())
	dev.applyRRIDSCP(rridscpReg{RRID: 0, Op: rridscpOpStall})
	if !dev.rridIsStalled(0) {
		t.Errorf("rridIsStalled(0) = false, want true")
	}

	dev.cfg.StallEn = false
	if dev.rridIsStalled(0) {
		t.Errorf("rridIsStalled(0) = true, want false when StallEn is off")
	}
}

func TestRRIDIsStalledOutOfRange(t *testing.T) {
	dev := newTestDevice(t, stallTestConfig())
	if dev.rridIsStalled(uint16(len(dev.rridStall))) {
		t.Errorf("rridIsStalled of an out-of-range rrid = true, want false")
	}
}

func TestApplyStallIsRecordOnly(t *testing.T) {
	dev := newTestDevice(t, stallTestConfig())
	dev.mdstallMD = 0x1
	dev.applyStall()
	// applyStall never touches per-RRID stall state; RRIDSCP is the
	// sole enforcement point for stalling a transaction.
	for i, stalled := range dev.rridStall {
		if stalled {
			t.Errorf("rridStall[%d] = true after applyStall, want untouched", i)
		}
	}
}
