/*
 * IOPMP reference model - core enumerations and status codes.
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

// Package iopmp implements a bit-exact reference model of an I/O Physical
// Memory Protection unit: the rule analyzer, the validation pipeline, error
// capture, interrupt delivery, and the stall controller.
package iopmp

// Perm identifies the kind of access a transaction requests.
type Perm uint8

const (
	PermRead  Perm = 1 // Read permission.
	PermWrite Perm = 2 // Write permission.
	PermInstr Perm = 3 // Instruction fetch permission.
)

// MatchStatus is the outcome of matching a transaction's byte range against
// one entry's address range.
type MatchStatus uint8

const (
	NotMatch MatchStatus = iota
	PartialMatch
	Match
)

// AddrMode selects how an entry's address pair is decoded into a range.
type AddrMode uint8

const (
	AddrOff AddrMode = iota
	AddrTOR
	AddrNA4
	AddrNAPOT
)

// MDCFGFormat selects the shape of the MD-to-entry-range table.
type MDCFGFormat uint8

const (
	MDCFGFormat0 MDCFGFormat = iota // Explicit MDCFG table.
	MDCFGFormat1                    // Fixed (md_entry_num+1) entries per MD.
	MDCFGFormat2                    // Programmable (md_entry_num+1) entries per MD.
)

// SRCMDFormat selects the shape of the requester-to-MD association table.
type SRCMDFormat uint8

const (
	SRCMDFormat0 SRCMDFormat = iota // Per-RRID association bitmap (+ optional r/w/x bitmaps).
	SRCMDFormat1                    // Exclusive: RRID s is bound to MD s.
	SRCMDFormat2                    // Per-MD permission bitmap indexed by RRID.
)

// Status is the transaction-level outcome reported to the initiator.
type Status uint8

const (
	StatusSuccess Status = 0
	StatusError   Status = 1
)

// ErrorType enumerates the violation recorded in ERR_INFO.etype.
type ErrorType uint8

const (
	ErrNone               ErrorType = 0x00
	ErrIllegalRead        ErrorType = 0x01
	ErrIllegalWrite       ErrorType = 0x02
	ErrIllegalInstrFetch  ErrorType = 0x03
	ErrPartialHitPriority ErrorType = 0x04
	ErrNotHitAnyRule      ErrorType = 0x05
	ErrUnknownRRID        ErrorType = 0x06
	ErrStalledTransaction ErrorType = 0x07
)

// permToErrorType maps a (possibly already-demoted) access permission to the
// illegal-access error type reported when a matching entry denies it.
func permToErrorType(perm Perm) ErrorType {
	switch perm {
	case PermWrite:
		return ErrIllegalWrite
	case PermInstr:
		return ErrIllegalInstrFetch
	default:
		return ErrIllegalRead
	}
}

// Request is one transaction presented to ValidateAccess.
type Request struct {
	RRID   uint16 // Requester Role ID.
	Addr   uint64 // Target byte address.
	Length uint32 // Number of beats minus one.
	Size   uint32 // log2 of the byte size of each beat.
	Perm   Perm   // Requested permission.
	IsAMO  bool   // Atomic memory operation.
}

// end returns the exclusive byte address one past the transaction.
func (r Request) end() uint64 {
	return r.Addr + uint64(r.Length+1)*(uint64(1)<<r.Size)
}

// Response is the triple returned by ValidateAccess: the transaction
// response seen by the initiator plus the wired-interrupt signal.
type Response struct {
	RRID                         uint32
	User                         uint8
	RRIDStalled                  bool
	RRIDStalledNoAvailableBuffer bool
	RRIDTransl                   uint16
	Status                       Status
	WiredInterrupt               bool
}
