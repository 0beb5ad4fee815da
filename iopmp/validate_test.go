/*
 * IOPMP reference model - validation pipeline test set.
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

func enabledTestConfig() Config {
	cfg := baseTestConfig()
	cfg.Enable = true
	cfg.NonPrioEn = true
	cfg.ImpErrorCapture = true
	return cfg
}

func TestValidateAccessRejectsInstrAMO(t *testing.T) {
	dev := newTestDevice(t, enabledTestConfig())
	_, err := dev.ValidateAccess(Request{Perm: PermInstr, IsAMO: true})
	if err == nil {
		t.Errorf("ValidateAccess with instruction-fetch AMO succeeded, want error")
	}
}

func TestValidateAccessDisabledAlwaysSucceeds(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.Enable = false
	dev := newTestDevice(t, cfg)
	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x1000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusSuccess {
		t.Errorf("Status = %v, want StatusSuccess when IOPMP disabled", rsp.Status)
	}
}

func TestValidateAccessUnknownRRID(t *testing.T) {
	dev := newTestDevice(t, enabledTestConfig())
	rsp, err := dev.ValidateAccess(Request{RRID: uint16(dev.cfg.RRIDNum), Addr: 0x1000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusError {
		t.Errorf("Status = %v, want StatusError for an out-of-range rrid", rsp.Status)
	}
	if dev.errInfo.EType != ErrUnknownRRID {
		t.Errorf("errInfo.EType = %v, want %v", dev.errInfo.EType, ErrUnknownRRID)
	}
}

func TestValidateAccessSourceEnforcementForcesRRIDZero(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.SrcEnforcementEn = true
	dev := newTestDevice(t, cfg)
	rsp, err := dev.ValidateAccess(Request{RRID: 5, Addr: 0x1000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.RRID != 0 {
		t.Errorf("rsp.RRID = %d, want 0 under source enforcement", rsp.RRID)
	}
}

func TestValidateAccessRRIDTranslApplied(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.RRIDTranslEn = true
	cfg.RRIDTransl = 7
	dev := newTestDevice(t, cfg)
	rsp, err := dev.ValidateAccess(Request{RRID: 1, Addr: 0x1000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.RRIDTransl != 7 {
		t.Errorf("rsp.RRIDTransl = %d, want 7", rsp.RRIDTransl)
	}
}

func TestValidateAccessStalledTransactionDenied(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.StallEn = true
	dev := newTestDevice(t, cfg)
	dev.rridStall[2] = true
	dev.stallCntr = dev.cfg.stallBufDepth() // stall buffer already full
	dev.errCfg.StallViolationEn = true

	rsp, err := dev.ValidateAccess(Request{RRID: 2, Addr: 0x1000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if !rsp.RRIDStalled {
		t.Errorf("rsp.RRIDStalled = false, want true")
	}
	if rsp.Status != StatusError {
		t.Errorf("Status = %v, want StatusError when stall_violation_en is set", rsp.Status)
	}
	if dev.errInfo.EType != ErrStalledTransaction {
		t.Errorf("errInfo.EType = %v, want %v", dev.errInfo.EType, ErrStalledTransaction)
	}
}

func TestValidateAccessStalledWithoutViolationReportedButNotDenied(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.StallEn = true
	dev := newTestDevice(t, cfg)
	dev.rridStall[2] = true
	dev.errCfg.StallViolationEn = false

	rsp, err := dev.ValidateAccess(Request{RRID: 2, Addr: 0x1000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if !rsp.RRIDStalled {
		t.Errorf("rsp.RRIDStalled = false, want true")
	}
	if rsp.Status != StatusSuccess {
		t.Errorf("Status = %v, want StatusSuccess when stall_violation_en is clear", rsp.Status)
	}
}

func TestValidateAccessNoWDeniesWriteRegardlessOfEntries(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.NoW = true
	dev := newTestDevice(t, cfg)
	// This entry would otherwise grant the write outright.
	dev.entries[0] = Entry{AddrLo: uint32(0x2000 >> 2), Cfg: entryCfgReg{R: true, W: true, A: AddrNA4}}

	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x2000, Size: 2, Perm: PermWrite})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusError {
		t.Errorf("Status = %v, want StatusError when no_w is set", rsp.Status)
	}
	if dev.errInfo.EType != ErrNotHitAnyRule {
		t.Errorf("errInfo.EType = %v, want %v", dev.errInfo.EType, ErrNotHitAnyRule)
	}
}

func TestValidateAccessChkXNoXDeniesInstrFetchRegardlessOfEntries(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.NoX = true
	dev := newTestDevice(t, cfg)
	dev.entries[0] = Entry{AddrLo: uint32(0x2000 >> 2), Cfg: entryCfgReg{X: true, A: AddrNA4}}

	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x2000, Size: 2, Perm: PermInstr})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusError {
		t.Errorf("Status = %v, want StatusError when chk_x and no_x are both set", rsp.Status)
	}
	if dev.errInfo.EType != ErrNotHitAnyRule {
		t.Errorf("errInfo.EType = %v, want %v", dev.errInfo.EType, ErrNotHitAnyRule)
	}
}

func TestValidateAccessChkXDisabledTreatsInstrFetchAsRead(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.ChkX = false
	dev := newTestDevice(t, cfg)
	dev.srcmdFmt0[0].MD = uint64(1) << 1 // associate rrid 0 with md 0
	dev.mdcfg[0].T = 2                   // md 0 spans entries [0, 2)
	// Entry grants read but not execute; with chk_x disabled the fetch
	// should be checked (and granted) as a read.
	dev.entries[0] = Entry{AddrLo: uint32(0x2000 >> 2), Cfg: entryCfgReg{R: true, X: false, A: AddrNA4}}

	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x2000, Size: 2, Perm: PermInstr})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusSuccess {
		t.Errorf("Status = %v, want StatusSuccess: chk_x=0 demotes the fetch to a read, which this entry grants", rsp.Status)
	}
}

func TestValidateAccessPriorityEntryGrants(t *testing.T) {
	cfg := enabledTestConfig()
	dev := newTestDevice(t, cfg)
	dev.srcmdFmt0[0].MD = uint64(1) << 1 // associate rrid 0 with md 0
	dev.mdcfg[0].T = 2                   // md 0 spans entries [0, 2)
	dev.entries[0] = Entry{
		AddrLo: uint32(0x2000 >> 2),
		Cfg:    entryCfgReg{R: true, A: AddrNA4},
	}

	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x2000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusSuccess {
		t.Errorf("Status = %v, want StatusSuccess for a granting priority entry", rsp.Status)
	}
}

func TestValidateAccessPriorityEntryMatchedButDenied(t *testing.T) {
	cfg := enabledTestConfig()
	dev := newTestDevice(t, cfg)
	dev.srcmdFmt0[0].MD = uint64(1) << 1 // associate rrid 0 with md 0
	dev.mdcfg[0].T = 2                   // md 0 spans entries [0, 2)
	dev.entries[0] = Entry{
		AddrLo: uint32(0x2000 >> 2),
		Cfg:    entryCfgReg{R: false, W: false, A: AddrNA4},
	}

	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x2000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusError {
		t.Errorf("Status = %v, want StatusError for a matched-but-denied priority entry", rsp.Status)
	}
	if dev.errInfo.EType != ErrIllegalRead {
		t.Errorf("errInfo.EType = %v, want %v", dev.errInfo.EType, ErrIllegalRead)
	}
}

func TestValidateAccessPriorityEntryErrSuppressReturnsSuccessWithUserToken(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.Pees = true
	dev := newTestDevice(t, cfg)
	dev.srcmdFmt0[0].MD = uint64(1) << 1 // associate rrid 0 with md 0
	dev.mdcfg[0].T = 2                   // md 0 spans entries [0, 2)
	dev.entries[0] = Entry{
		AddrLo: uint32(0x2000 >> 2),
		Cfg:    entryCfgReg{R: false, A: AddrNA4, Sere: true},
	}

	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x2000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusSuccess {
		t.Errorf("Status = %v, want StatusSuccess when sere suppresses the error", rsp.Status)
	}
	if rsp.User != dev.cfg.userToken() {
		t.Errorf("rsp.User = %#x, want user token %#x", rsp.User, dev.cfg.userToken())
	}
	if !dev.errInfo.V {
		t.Errorf("errInfo.V not latched despite error suppression")
	}
}

func TestValidateAccessPriorityPartialMatch(t *testing.T) {
	cfg := enabledTestConfig()
	dev := newTestDevice(t, cfg)
	dev.srcmdFmt0[0].MD = uint64(1) << 1 // associate rrid 0 with md 0
	dev.mdcfg[0].T = 2                   // md 0 spans entries [0, 2)
	// entries[0] only sets the TOR base for entries[1] (AddrOff, so it
	// never matches on its own); entries[1] covers [0x1000, 0x2000).
	dev.entries[0] = Entry{AddrLo: uint32(0x1000 >> 2)}
	dev.entries[1] = Entry{AddrLo: uint32(0x2000 >> 2), Cfg: entryCfgReg{R: true, A: AddrTOR}}

	// A request straddling the entry's lower boundary is a partial match.
	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x0800, Size: 12, Length: 0, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusError {
		t.Errorf("Status = %v, want StatusError for a partial priority match", rsp.Status)
	}
	if dev.errInfo.EType != ErrPartialHitPriority {
		t.Errorf("errInfo.EType = %v, want %v", dev.errInfo.EType, ErrPartialHitPriority)
	}
}

func TestValidateAccessNonPriorityGrantViaSRCMDFormat1(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.SRCMDFmt = SRCMDFormat1
	cfg.MDCFGFmt = MDCFGFormat1
	cfg.MDEntryNum = 3
	cfg.PrioEntry = 0
	dev := newTestDevice(t, cfg)

	// Under SRCMDFormat1, RRID 0 is fixed-associated with MD 0, whose
	// entries occupy [0, MDEntryNum+1).
	dev.entries[0] = Entry{AddrLo: uint32(0x4000 >> 2), Cfg: entryCfgReg{R: true, A: AddrNA4}}

	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x4000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusSuccess {
		t.Errorf("Status = %v, want StatusSuccess for a granting non-priority entry", rsp.Status)
	}
}

func TestValidateAccessPriorityPartialMatchRecordsEid(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.ImpErrReqIDEid = true
	dev := newTestDevice(t, cfg)
	dev.srcmdFmt0[0].MD = uint64(1) << 1 // associate rrid 0 with md 0
	dev.mdcfg[0].T = 2                   // md 0 spans entries [0, 2)
	dev.entries[0] = Entry{AddrLo: uint32(0x1000 >> 2)}
	dev.entries[1] = Entry{AddrLo: uint32(0x2000 >> 2), Cfg: entryCfgReg{R: true, A: AddrTOR}}

	_, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x0800, Size: 12, Length: 0, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if dev.errReqID.Eid != 1 {
		t.Errorf("errReqID.Eid = %d, want 1 (the partially matched entry)", dev.errReqID.Eid)
	}
}

func TestValidateAccessNonPriorityFirstIllegalRecordsEid(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.SRCMDFmt = SRCMDFormat1
	cfg.MDCFGFmt = MDCFGFormat1
	cfg.MDEntryNum = 3
	cfg.PrioEntry = 0
	cfg.ImpErrReqIDEid = true
	dev := newTestDevice(t, cfg)

	dev.entries[0] = Entry{AddrLo: uint32(0x4000 >> 2), Cfg: entryCfgReg{R: false, W: false, A: AddrNA4}}

	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x4000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusError {
		t.Errorf("Status = %v, want StatusError for a matched-but-denied non-priority entry", rsp.Status)
	}
	if dev.errInfo.EType != ErrIllegalRead {
		t.Errorf("errInfo.EType = %v, want %v", dev.errInfo.EType, ErrIllegalRead)
	}
	if dev.errReqID.Eid != 0 {
		t.Errorf("errReqID.Eid = %d, want 0 (the denying entry)", dev.errReqID.Eid)
	}
}

func TestValidateAccessNonPriorityPartialIsNotFatal(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.SRCMDFmt = SRCMDFormat1
	cfg.MDCFGFmt = MDCFGFormat1
	cfg.MDEntryNum = 3
	cfg.PrioEntry = 0
	dev := newTestDevice(t, cfg)

	// entries[0] sets the TOR base; entries[1] covers [0x2000, 0x3000) and
	// would grant a full read, but the request only partially overlaps it.
	dev.entries[0] = Entry{AddrLo: uint32(0x2000 >> 2)}
	dev.entries[1] = Entry{AddrLo: uint32(0x3000 >> 2), Cfg: entryCfgReg{R: true, A: AddrTOR}}

	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x1800, Size: 12, Length: 0, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusError {
		t.Errorf("Status = %v, want StatusError since nothing fully matched", rsp.Status)
	}
	if dev.errInfo.EType != ErrNotHitAnyRule {
		t.Errorf("errInfo.EType = %v, want %v (a non-priority partial match is not itself fatal)", dev.errInfo.EType, ErrNotHitAnyRule)
	}
}

func TestValidateAccessNoRuleHitFallback(t *testing.T) {
	cfg := enabledTestConfig()
	cfg.SRCMDFmt = SRCMDFormat1
	cfg.MDCFGFmt = MDCFGFormat1
	cfg.MDEntryNum = 3
	cfg.PrioEntry = 0
	dev := newTestDevice(t, cfg)

	rsp, err := dev.ValidateAccess(Request{RRID: 0, Addr: 0x9000, Size: 2, Perm: PermRead})
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if rsp.Status != StatusError {
		t.Errorf("Status = %v, want StatusError when no entry matches", rsp.Status)
	}
	if dev.errInfo.EType != ErrNotHitAnyRule {
		t.Errorf("errInfo.EType = %v, want %v", dev.errInfo.EType, ErrNotHitAnyRule)
	}
}
