/*
 * IOPMP reference model - transaction trace logging to a file.
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

// Package debug writes an optional, free-form transaction trace to a file,
// separate from the structured slog output a Device emits on its own. It
// exists for bring-up sessions where a raw, greppable trace of every
// transaction presented to ValidateAccess is more convenient than
// structured log records.
package debug

import (
	"fmt"
	"os"
)

var logFile *os.File

// SetLogFile opens name as the destination for subsequent Tracef calls,
// replacing whatever file was previously set. Passing an empty name turns
// tracing off.
func SetLogFile(name string) error {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	if name == "" {
		return nil
	}
	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("debug: unable to create trace file %s: %w", name, err)
	}
	logFile = file
	return nil
}

// Tracef writes one trace line when a log file has been set; it is a
// silent no-op otherwise.
func Tracef(format string, a ...interface{}) {
	if logFile == nil {
		return
	}
	fmt.Fprintf(logFile, format+"\n", a...)
}

// RequestTracef traces one transaction's request fields, keyed by RRID.
func RequestTracef(rrid uint16, format string, a ...interface{}) {
	if logFile == nil {
		return
	}
	fmt.Fprintf(logFile, "rrid %04x: "+format+"\n", append([]interface{}{rrid}, a...)...)
}
