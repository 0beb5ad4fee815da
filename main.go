/*
 * IOPMP reference model - command-line entry point.
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

package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/riscv-non-isa/iopmp-spec-sub001/bus"
	config "github.com/riscv-non-isa/iopmp-spec-sub001/config/configparser"
	reader "github.com/riscv-non-isa/iopmp-spec-sub001/command/reader"
	"github.com/riscv-non-isa/iopmp-spec-sub001/iopmp"
	logger "github.com/riscv-non-isa/iopmp-spec-sub001/util/logger"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "iopmp.cfg", "Reset-configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optVectors := getopt.StringLong("vectors", 'v', "", "Transaction-vector file to replay non-interactively")
	optShell := getopt.BoolLong("shell", 's', "Start the interactive shell after loading")
	optDebug := getopt.BoolLong("debug", 'd', "Echo log records to stderr as well as the log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "unable to create log file:", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, optDebug))
	slog.SetDefault(Logger)

	Logger.Info("iopmp reference model started")

	if _, err := os.Stat(*optConfig); os.IsNotExist(err) {
		Logger.Error("configuration file not found", "path", *optConfig)
		os.Exit(1)
	}

	var cfg iopmp.Config
	if err := config.LoadConfigFile(*optConfig, &cfg); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	mem := bus.NewMemory(0)
	dev, err := iopmp.NewDevice(cfg, mem, Logger)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	if *optVectors != "" {
		if err := replayVectors(*optVectors, dev); err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
	}

	if *optShell {
		reader.ConsoleReader(dev)
	}
}

// replayVectors drives dev with one transaction per non-comment line of
// name, printing the resulting response to stdout. Each line is:
//
//	<rrid> <addr> <perm r|w|x> [size] [length] [amo]
func replayVectors(name string, dev *iopmp.Device) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		req, err := parseVectorLine(line)
		if err != nil {
			return fmt.Errorf("vectors line %d: %w", lineNo, err)
		}
		rsp, err := dev.ValidateAccess(req)
		if err != nil {
			return fmt.Errorf("vectors line %d: %w", lineNo, err)
		}
		fmt.Printf("%d: rrid=0x%x status=%v wired_intr=%v user=0x%x rrid_transl=0x%x\n",
			lineNo, rsp.RRID, rsp.Status, rsp.WiredInterrupt, rsp.User, rsp.RRIDTransl)
	}
	return scanner.Err()
}

func parseVectorLine(line string) (iopmp.Request, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return iopmp.Request{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}

	rrid, err := strconv.ParseUint(fields[0], 0, 16)
	if err != nil {
		return iopmp.Request{}, err
	}
	addr, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		return iopmp.Request{}, err
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
		return iopmp.Request{}, fmt.Errorf("unknown permission %q", fields[2])
	}

	req := iopmp.Request{RRID: uint16(rrid), Addr: addr, Perm: perm, Size: 2}
	if len(fields) >= 4 {
		size, err := strconv.ParseUint(fields[3], 0, 32)
		if err != nil {
			return iopmp.Request{}, err
		}
		req.Size = uint32(size)
	}
	if len(fields) >= 5 {
		length, err := strconv.ParseUint(fields[4], 0, 32)
		if err != nil {
			return iopmp.Request{}, err
		}
		req.Length = uint32(length)
	}
	if len(fields) >= 6 {
		req.IsAMO = strings.EqualFold(fields[5], "amo") || fields[5] == "1"
	}
	return req, nil
}
