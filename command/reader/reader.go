/*
 * IOPMP reference model - interactive command reader (Component I).
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

// Package reader implements a liner-backed REPL for poking at a live
// iopmp.Device during bring-up: reading and writing registers, dumping the
// entry table, and injecting transactions to see the resulting response.
package reader

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/riscv-non-isa/iopmp-spec-sub001/iopmp"
	hexfmt "github.com/riscv-non-isa/iopmp-spec-sub001/util/hex"
)

var commands = []string{"peek", "poke", "entries", "inject", "reset", "help", "quit"}

// ConsoleReader runs the REPL against dev until the user quits or aborts
// with Ctrl-C/Ctrl-D.
func ConsoleReader(dev *iopmp.Device) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		var matches []string
		for _, c := range commands {
			if strings.HasPrefix(c, partial) {
				matches = append(matches, c)
			}
		}
		return matches
	})

	for {
		command, err := line.Prompt("iopmp> ")
		if err == nil {
			line.AppendHistory(command)
			quit, err := processCommand(command, dev)
			if err != nil {
				fmt.Println("Error: " + err.Error())
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("error reading line: " + err.Error())
		return
	}
}

// processCommand dispatches one REPL line. It returns quit=true when the
// session should end.
func processCommand(command string, dev *iopmp.Device) (bool, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false, nil
	}

	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true, nil

	case "help":
		fmt.Println("commands: peek <offset> [width], poke <offset> <value> [width], entries, inject <rrid> <addr> <perm r|w|x> [amo], reset, quit")
		return false, nil

	case "peek":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: peek <offset> [width]")
		}
		offset, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			return false, err
		}
		width := 4
		if len(fields) >= 3 {
			w, err := strconv.Atoi(fields[2])
			if err != nil {
				return false, err
			}
			width = w
		}
		value, err := dev.ReadRegister(offset, width)
		if err != nil {
			return false, err
		}
		fmt.Printf("0x%x: 0x%x\n", offset, value)
		return false, nil

	case "poke":
		if len(fields) < 3 {
			return false, fmt.Errorf("usage: poke <offset> <value> [width]")
		}
		offset, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			return false, err
		}
		value, err := strconv.ParseUint(fields[2], 0, 64)
		if err != nil {
			return false, err
		}
		width := 4
		if len(fields) >= 4 {
			w, err := strconv.Atoi(fields[3])
			if err != nil {
				return false, err
			}
			width = w
		}
		return false, dev.WriteRegister(offset, width, value)

	case "entries":
		dumpEntries(dev)
		return false, nil

	case "inject":
		return false, injectTransaction(fields[1:], dev)

	case "reset":
		return false, fmt.Errorf("reset: build a fresh Device via iopmp.NewDevice instead")

	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
}

func dumpEntries(dev *iopmp.Device) {
	n := dev.EntryCount()
	for i := 0; i < n; i++ {
		lo, err := dev.ReadRegister(uint64(0x2000+i*0x10), 4)
		if err != nil {
			continue
		}
		hi, _ := dev.ReadRegister(uint64(0x2000+i*0x10+4), 4)
		cfg, _ := dev.ReadRegister(uint64(0x2000+i*0x10+8), 4)

		var b strings.Builder
		hexfmt.FormatWord(&b, []uint32{uint32(lo), uint32(hi), uint32(cfg)})
		fmt.Printf("entry %3d: addr addrh cfg = %s\n", i, b.String())
	}
}

func injectTransaction(fields []string, dev *iopmp.Device) error {
	if len(fields) < 3 {
		return fmt.Errorf("usage: inject <rrid> <addr> <perm r|w|x> [amo]")
	}
	rrid, err := strconv.ParseUint(fields[0], 0, 16)
	if err != nil {
		return err
	}
	addr, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		return err
	}
	var perm iopmp.Perm
	switch strings.ToLower(fields[2]) {
	case "r", "read":
		perm = iopmp.PermRead
	case "w", "write":
		perm = iopmp.PermWrite
	case "x", "exec":
		perm = iopmp.PermInstr
	default:
		return fmt.Errorf("unknown permission %q", fields[2])
	}
	isAMO := len(fields) >= 4 && strings.EqualFold(fields[3], "amo")

	req := iopmp.Request{RRID: uint16(rrid), Addr: addr, Length: 0, Size: 2, Perm: perm, IsAMO: isAMO}
	rsp, err := dev.ValidateAccess(req)
	if err != nil {
		return err
	}
	fmt.Printf("status=%v wired_intr=%v user=0x%x rrid_transl=0x%x\n",
		rsp.Status, rsp.WiredInterrupt, rsp.User, rsp.RRIDTransl)
	return nil
}
