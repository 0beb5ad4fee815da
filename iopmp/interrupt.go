/*
 * IOPMP reference model - interrupt delivery (Component E).
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

// msiDataByteLength is the byte width of the write_memory call MSI
// delivery issues (MSI_DATA_BYTE in the source reference model).
const msiDataByteLength = 4

// generateInterrupt arbitrates between the wired interrupt line and a
// message-signaled interrupt, mirroring generate_interrupt. It returns the
// wired-interrupt signal the caller must fold into Response.WiredInterrupt;
// the MSI side effect (a bus write) happens here, not in the caller.
func (d *Device) generateInterrupt(ie, intrptSuppress bool) bool {
	if !d.cfg.ImpMSI {
		return ie && !intrptSuppress
	}

	wired := ie && !intrptSuppress && !d.errCfg.MsiEn
	msi := ie && !intrptSuppress && d.errCfg.MsiEn && !d.errInfo.MsiWerr

	if msi {
		d.sendMSI()
	}
	return wired
}

// sendMSI constructs the MSI address from ERR_MSIADDR/ERR_MSIADDRH (a full
// 64-bit concatenation when addrh_en is set, otherwise a left-shifted
// 32-bit address) and writes the configured MSI data word through the bus.
// A failed write sets msi_werr, inhibiting further MSI attempts until
// software clears it.
func (d *Device) sendMSI() {
	var addr uint64
	if d.hwcfg0.AddrhEn {
		addr = (uint64(d.errMSIAddrH.MsiAddrh) << 32) | uint64(d.errMSIAddr.MsiAddr)
	} else {
		addr = uint64(d.errMSIAddr.MsiAddr) << 2
	}

	data := uint64(d.errCfg.MsiData)
	if d.mem == nil {
		d.errInfo.MsiWerr = true
		return
	}
	ok, err := d.mem.WriteMemory(addr, data, msiDataByteLength)
	if err != nil || !ok {
		d.errInfo.MsiWerr = true
		if d.log != nil {
			d.log.Warn("iopmp: MSI write failed", "addr", addr, "err", err)
		}
	}
}
