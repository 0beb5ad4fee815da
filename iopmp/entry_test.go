/*
 * IOPMP reference model - entry and table row type test set.
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

func TestEntryRawAddr(t *testing.T) {
	e := Entry{AddrLo: 0x89ABCDEF, AddrHi: 0x01234567}
	want := uint64(0x89ABCDEF) | (uint64(0x01234567) << 32)
	if got := e.rawAddr(); got != want {
		t.Errorf("rawAddr() = %#x, want %#x", got, want)
	}
}

func TestSVWindowSet(t *testing.T) {
	var w SVWindow
	w.set(3)
	w.set(15)
	if w.Bits != (1<<3)|(1<<15) {
		t.Errorf("Bits = %#x, want %#x", w.Bits, (1<<3)|(1<<15))
	}
}
