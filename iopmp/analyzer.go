/*
 * IOPMP reference model - rule analyzer (Component B).
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

// addrRange derives the [lo, hi) byte range an entry covers, given the
// previous entry's raw word address (used by TOR). Entry address fields are
// word addresses (bits 63:2); the result is in byte units, matching
// iopmpAddrRange's x4 conversion in the source rule analyzer.
func addrRange(mode AddrMode, prevWordAddr, wordAddr uint64, granularity uint8) (lo, hi uint64) {
	switch mode {
	case AddrOff:
		return 0, 0
	case AddrNA4:
		lo = wordAddr << 2
		hi = lo + 4
		return lo, hi
	case AddrTOR:
		mask := torGranularityMask(granularity)
		lo = (prevWordAddr << 2) &^ mask
		hi = (wordAddr << 2) &^ mask
		return lo, hi
	case AddrNAPOT:
		return napotRange(wordAddr)
	default:
		return 0, 0
	}
}

// torGranularityMask returns the low-order byte-address bits a TOR range
// ignores, for an implementation whose smallest NAPOT granularity is
// 2^(granularity+3) bytes (granularity 0 means 4-byte, ungranular TOR).
func torGranularityMask(granularity uint8) uint64 {
	if granularity == 0 {
		return 0
	}
	return (uint64(1) << (uint(granularity) + 2)) - 1
}

// napotRange decodes a NAPOT-encoded word address into a byte range using
// the standard trailing-ones mask trick: XOR-ing the encoded word address
// with itself plus one isolates the run of low-order one bits (plus the
// terminating zero) that select the region's size.
func napotRange(encoded uint64) (lo, hi uint64) {
	mask := encoded ^ (encoded + 1)
	base := encoded &^ mask
	lo = base << 2
	hi = lo + (mask+1)<<2
	return lo, hi
}

// matchAddr classifies how the transaction's byte range [ts, te) relates to
// an entry's byte range [lo, hi), mirroring iopmpMatchAddr.
func matchAddr(lo, hi, ts, te uint64) MatchStatus {
	if hi < lo {
		return NotMatch
	}
	if te <= lo || ts >= hi {
		return NotMatch
	}
	if ts >= lo && te <= hi {
		return Match
	}
	return PartialMatch
}

// entryPerm is the resolved grant the rule analyzer computes for one entry
// before the validation pipeline compares it against the requested
// permission.
type entryPerm struct {
	R, W, X bool
	// Suppression bits are not carried here; suppressionFor reads them
	// from the entry's configuration directly.
}

// checkPerms composes the entry's own (read, write, execute) grant from its
// configuration and the device-wide no_w/no_x/chk_x settings, following
// iopmpCheckPerms. The MD-level SRCMD grant is applied later, by grantFor.
func checkPerms(cfg *Config, e *Entry) entryPerm {
	r := e.Cfg.R
	w := e.Cfg.W && !cfg.NoW
	x := e.Cfg.X && cfg.ChkX && !cfg.NoX

	if !cfg.ChkX {
		// Execute checking not implemented: treat fetches as reads,
		// per the format-0-style xinr ("execute implies need-read")
		// fallback documented for chk_x==0 implementations.
		x = false
	}
	return entryPerm{R: r, W: w, X: x}
}

// grantFor resolves whether perm is granted by e, composing the entry's own
// r/w/x bits with the MD-level read/write grant derived from the SRCMD
// table. Formats 0/1 AND the entry bit with the MD grant (rOK/wOK default to
// true when the format carries no secondary permission bits); format 2 ORs
// them instead, since its per-(MD,requester) perm bitmap is itself a grant
// rather than a further restriction, and its execute permission piggybacks
// on the combined read grant rather than the entry's own x bit.
func grantFor(cfg *Config, e *Entry, perm Perm, isAMO, rOK, wOK bool) bool {
	p := checkPerms(cfg, e)

	var effR, effW bool
	if cfg.SRCMDFmt == SRCMDFormat2 {
		effR = p.R || rOK
		effW = p.W || wOK
	} else {
		effR = p.R && rOK
		effW = p.W && wOK
	}

	switch perm {
	case PermRead:
		return effR
	case PermWrite:
		if isAMO {
			return effW && effR
		}
		return effW
	case PermInstr:
		if !cfg.ChkX {
			return effR
		}
		if cfg.SRCMDFmt == SRCMDFormat2 {
			return effR
		}
		return p.X
	default:
		return false
	}
}

// suppressionFor reports whether interrupt/error suppression applies to a
// denied access against entry e, gated by whether the implementation carries
// per-entry suppression at all (Peis/Pees).
func suppressionFor(cfg *Config, e *Entry, perm Perm) (intrSuppress, errSuppress bool) {
	switch perm {
	case PermRead:
		intrSuppress = cfg.Peis && e.Cfg.Sire
		errSuppress = cfg.Pees && e.Cfg.Sere
	case PermWrite:
		intrSuppress = cfg.Peis && e.Cfg.Siwe
		errSuppress = cfg.Pees && e.Cfg.Sewe
	case PermInstr:
		intrSuppress = cfg.Peis && e.Cfg.Sixe
		errSuppress = cfg.Pees && e.Cfg.Sexe
	}
	return intrSuppress, errSuppress
}
