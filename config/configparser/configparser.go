/*
 * IOPMP reference model - reset-configuration file parser.
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

// Package configparser loads a reset-time iopmp.Config from a small
// line-oriented text format.
package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/riscv-non-isa/iopmp-spec-sub001/iopmp"
)

// Current option line being parsed.
type optionLine struct {
	line string // Current option line.
	pos  int    // Current position in line.
}

/* Configuration file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line> := <key> <whitespace>* '=' <whitespace>* <value>
 * <key>  := <letter> *(<letter> | <number> | '_')
 * <value> ::= <string> | <hexnumber> | <number> | 'on' | 'off'
 */

var lineNumber int

// directive applies one key=value pair read from a config file to cfg.
type directive func(cfg *iopmp.Config, value string) error

var directives = map[string]directive{
	"vendor":             setUint32(func(c *iopmp.Config) *uint32 { return &c.Vendor }),
	"specver":            setUint8(func(c *iopmp.Config) *uint8 { return &c.SpecVer }),
	"impid":              setUint32(func(c *iopmp.Config) *uint32 { return &c.ImpID }),
	"enable":             setBool(func(c *iopmp.Config) *bool { return &c.Enable }),
	"md_num":             setUint8(func(c *iopmp.Config) *uint8 { return &c.MDNum }),
	"addrh_en":           setBool(func(c *iopmp.Config) *bool { return &c.AddrhEn }),
	"tor_en":             setBool(func(c *iopmp.Config) *bool { return &c.TOREn }),
	"rrid_num":           setUint16(func(c *iopmp.Config) *uint16 { return &c.RRIDNum }),
	"entry_num":          setUint16(func(c *iopmp.Config) *uint16 { return &c.EntryNum }),
	"prio_entry":         setUint16(func(c *iopmp.Config) *uint16 { return &c.PrioEntry }),
	"prio_ent_prog":      setBool(func(c *iopmp.Config) *bool { return &c.PrioEntProg }),
	"non_prio_en":        setBool(func(c *iopmp.Config) *bool { return &c.NonPrioEn }),
	"chk_x":              setBool(func(c *iopmp.Config) *bool { return &c.ChkX }),
	"peis":               setBool(func(c *iopmp.Config) *bool { return &c.Peis }),
	"pees":               setBool(func(c *iopmp.Config) *bool { return &c.Pees }),
	"sps_en":             setBool(func(c *iopmp.Config) *bool { return &c.SpsEn }),
	"stall_en":           setBool(func(c *iopmp.Config) *bool { return &c.StallEn }),
	"mfr_en":             setBool(func(c *iopmp.Config) *bool { return &c.MfrEn }),
	"md_entry_num":       setUint8(func(c *iopmp.Config) *uint8 { return &c.MDEntryNum }),
	"no_x":               setBool(func(c *iopmp.Config) *bool { return &c.NoX }),
	"no_w":               setBool(func(c *iopmp.Config) *bool { return &c.NoW }),
	"rrid_transl_en":     setBool(func(c *iopmp.Config) *bool { return &c.RRIDTranslEn }),
	"rrid_transl_prog":   setBool(func(c *iopmp.Config) *bool { return &c.RRIDTranslProg }),
	"rrid_transl":        setUint16(func(c *iopmp.Config) *uint16 { return &c.RRIDTransl }),
	"granularity":        setUint8(func(c *iopmp.Config) *uint8 { return &c.Granularity }),
	"imp_mdlck":          setBool(func(c *iopmp.Config) *bool { return &c.ImpMDLCK }),
	"imp_error_capture":  setBool(func(c *iopmp.Config) *bool { return &c.ImpErrorCapture }),
	"imp_err_reqid_eid":  setBool(func(c *iopmp.Config) *bool { return &c.ImpErrReqIDEid }),
	"imp_rridscp":        setBool(func(c *iopmp.Config) *bool { return &c.ImpRRIDSCP }),
	"imp_msi":            setBool(func(c *iopmp.Config) *bool { return &c.ImpMSI }),
	"src_enforcement_en": setBool(func(c *iopmp.Config) *bool { return &c.SrcEnforcementEn }),
	"user_token":         setUint8(func(c *iopmp.Config) *uint8 { return &c.UserToken }),

	"mdcfg_fmt": func(cfg *iopmp.Config, value string) error {
		v, err := parseUint(value, 2)
		if err != nil {
			return err
		}
		cfg.MDCFGFmt = iopmp.MDCFGFormat(v)
		return nil
	},
	"srcmd_fmt": func(cfg *iopmp.Config, value string) error {
		v, err := parseUint(value, 2)
		if err != nil {
			return err
		}
		cfg.SRCMDFmt = iopmp.SRCMDFormat(v)
		return nil
	},
	"entry_offset": func(cfg *iopmp.Config, value string) error {
		v, err := strconv.ParseInt(value, 0, 32)
		if err != nil {
			return fmt.Errorf("line %d: invalid entry_offset %q: %w", lineNumber, value, err)
		}
		cfg.EntryOffset = int32(v)
		return nil
	},
	"stall_buf_depth": func(cfg *iopmp.Config, value string) error {
		v, err := parseUint(value, 32)
		if err != nil {
			return err
		}
		cfg.StallBufDepth = int(v)
		return nil
	},
}

func setBool(field func(*iopmp.Config) *bool) directive {
	return func(cfg *iopmp.Config, value string) error {
		v, err := parseBool(value)
		if err != nil {
			return err
		}
		*field(cfg) = v
		return nil
	}
}

func setUint8(field func(*iopmp.Config) *uint8) directive {
	return func(cfg *iopmp.Config, value string) error {
		v, err := parseUint(value, 8)
		if err != nil {
			return err
		}
		*field(cfg) = uint8(v)
		return nil
	}
}

func setUint16(field func(*iopmp.Config) *uint16) directive {
	return func(cfg *iopmp.Config, value string) error {
		v, err := parseUint(value, 16)
		if err != nil {
			return err
		}
		*field(cfg) = uint16(v)
		return nil
	}
}

func setUint32(field func(*iopmp.Config) *uint32) directive {
	return func(cfg *iopmp.Config, value string) error {
		v, err := parseUint(value, 32)
		if err != nil {
			return err
		}
		*field(cfg) = uint32(v)
		return nil
	}
}

func parseUint(value string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(value, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid numeric value %q: %w", lineNumber, value, err)
	}
	return v, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no", "":
		return false, nil
	default:
		return false, fmt.Errorf("line %d: invalid switch value %q", lineNumber, value)
	}
}

// LoadConfigFile reads name and applies every key=value directive it
// contains to cfg, in file order. An unknown key is a load error.
func LoadConfigFile(name string, cfg *iopmp.Config) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	lineNumber = 0
	reader := bufio.NewReader(file)
	for {
		var err error

		line := optionLine{}
		line.line, err = reader.ReadString('\n')
		lineNumber++
		if len(line.line) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if err := line.parseLine(cfg); err != nil {
			return err
		}
	}
	return nil
}

// parseLine applies one key=value directive, if the line carries one.
func (line *optionLine) parseLine(cfg *iopmp.Config) error {
	key, err := line.getName()
	if err != nil {
		return err
	}
	if key == "" {
		return nil
	}

	line.skipSpace()
	if line.isEOL() || line.line[line.pos] != '=' {
		return fmt.Errorf("line %d: key %q not followed by '='", lineNumber, key)
	}

	value, ok := line.parseQuoteString()
	if !ok {
		return fmt.Errorf("line %d: invalid quoted string", lineNumber)
	}

	line.skipSpace()
	if !line.isEOL() {
		return fmt.Errorf("line %d: trailing content after value", lineNumber)
	}

	fn, ok := directives[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("line %d: unknown key %q", lineNumber, key)
	}
	return fn(cfg, value)
}

// skipSpace advances over whitespace.
func (line *optionLine) skipSpace() {
	for {
		if line.pos >= len(line.line) {
			return
		}
		if unicode.IsSpace(rune(line.line[line.pos])) {
			line.pos++
			continue
		}
		return
	}
}

// isEOL reports whether the cursor is at end of line or at a comment.
func (line *optionLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}
	return line.line[line.pos] == '#'
}

// getNext returns the next letter, digit, or (inside a quote) any
// character; 0 at end of line or on an unquoted delimiter.
func (line *optionLine) getNext(inQuote bool) byte {
	line.pos++
	if line.isEOL() {
		return 0
	}
	by := line.line[line.pos]
	if unicode.IsLetter(rune(by)) || unicode.IsNumber(rune(by)) || inQuote {
		return by
	}
	return 0
}

// getPeek looks at the next character without consuming it.
func (line *optionLine) getPeek() byte {
	if (line.pos + 1) >= len(line.line) {
		return 0
	}
	return line.line[line.pos+1]
}

// getName parses a key name: a leading letter followed by letters, digits,
// or underscores.
func (line *optionLine) getName() (string, error) {
	line.skipSpace()
	if line.isEOL() {
		return "", nil
	}

	by := line.line[line.pos]
	if !unicode.IsLetter(rune(by)) {
		return "", fmt.Errorf("line %d: invalid key at position %d", lineNumber, line.pos)
	}

	value := ""
	for {
		value += string([]byte{by})
		line.pos++
		if line.isEOL() {
			break
		}
		by = line.line[line.pos]
		if !unicode.IsLetter(rune(by)) && !unicode.IsNumber(rune(by)) && by != '_' {
			break
		}
	}
	return value, nil
}

// parseQuoteString parses a value: a "quoted string" (double quotes
// doubled to escape) or a bare token terminated by whitespace.
func (line *optionLine) parseQuoteString() (string, bool) {
	line.skipSpace()
	if line.isEOL() || line.line[line.pos] != '=' {
		return "", false
	}
	line.pos++ // consume '='
	line.skipSpace()

	inQuote := false
	value := ""

	if line.pos < len(line.line) && line.line[line.pos] == '"' {
		inQuote = true
		line.pos++
	}

	for {
		if line.isEOL() {
			return value, !inQuote
		}
		by := line.line[line.pos]
		if by == '"' && inQuote {
			line.pos++
			if line.pos < len(line.line) && line.line[line.pos] == '"' {
				value += "\""
				line.pos++
				continue
			}
			return value, true
		}
		if !inQuote && unicode.IsSpace(rune(by)) {
			return value, true
		}
		value += string(by)
		line.pos++
	}
}
