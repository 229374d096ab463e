// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.


package assembler

import (
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/lassandro/gohack/pkg/encoding"
)

// Strips comments and blank lines from Hack assembly source. Never fails;
// malformed statements are reported by the passes.
func Clean(text string) []Line {
	var lines []Line
	var cursor = Cursor{Line: 1}

	for _, raw := range strings.Split(text, "\n") {
		statement := raw

		if i := strings.Index(statement, PREFIX_COMMENT); i != -1 {
			statement = statement[:i]
		}

		trimmed := strings.TrimSpace(statement)

		if len(trimmed) > 0 {
			indent := len(statement) -
				len(strings.TrimLeftFunc(statement, unicode.IsSpace))

			lines = append(lines, Line{
				Text: trimmed,
				Position: Cursor{
					Line:     cursor.Line,
					Column:   indent + 1,
					Byte:     cursor.LineByte + int64(indent),
					Size:     int64(len(trimmed)),
					LineByte: cursor.LineByte,
				},
			})
		}

		cursor.Line++
		cursor.LineByte += int64(len(raw) + 1)
	}

	return lines
}

// Splits a compute instruction into its dest=comp;jump fields. Absent
// fields are returned empty; no field is validated here.
func ParseCompute(text string) (dest, comp, jump string) {
	comp = text

	if left, right, found := strings.Cut(comp, SEPARATOR_DEST); found {
		dest = strings.TrimSpace(left)
		comp = strings.TrimSpace(right)
	}

	if left, right, found := strings.Cut(comp, SEPARATOR_JUMP); found {
		comp = strings.TrimSpace(left)
		jump = strings.TrimSpace(right)
	}

	return
}

func isDecimal(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return len(s) > 0
}

// Records the ROM address of every label and returns the remaining
// instructions in source order.
func FirstPass(lines []Line, symbols *SymbolTable) ([]Line, error) {
	return firstPass(lines, symbols, nil)
}

func firstPass(lines []Line, symbols *SymbolTable, dbg *DebugInfo) ([]Line, error) {
	var program uint32 = 0
	var instructions = make([]Line, 0, len(lines))

	for _, line := range lines {
		if line.IsLabel() {
			name := strings.TrimSpace(line.Text[1 : len(line.Text)-1])

			if len(name) == 0 {
				return nil, &EmptyLabelError{line.Position, line.Text}
			}

			if symbols.Contains(name) {
				return nil, &DuplicateLabelError{line.Position, name}
			}

			symbols.AddEntry(name, uint16(program))

			if dbg != nil {
				dbg.Labels[name] = uint16(program)
			}

			continue
		}

		if program >= ROM_SIZE {
			return nil, &OversizedBinaryError{line.Position}
		}

		if dbg != nil {
			dbg.Symbols[uint16(program)] = line.Position.LineByte
		}

		instructions = append(instructions, line)
		program++
	}

	return instructions, nil
}

// Encodes label-free instructions, allocating RAM for variables in order of
// first appearance.
func SecondPass(lines []Line, symbols *SymbolTable) ([]string, error) {
	return secondPass(lines, symbols, nil)
}

func secondPass(lines []Line, symbols *SymbolTable, dbg *DebugInfo) ([]string, error) {
	var variable = VARIABLE_BASE
	var result = make([]string, 0, len(lines))

	for i := range lines {
		line := &lines[i]

		var scratch string
		var err error

		if line.IsAddress() {
			scratch, err = assembleAddress(line, symbols, &variable, dbg)
		} else {
			scratch, err = assembleCompute(line)
		}

		if err != nil {
			return nil, err
		}

		result = append(result, scratch)
	}

	return result, nil
}

// @value  |0|value                        | Address instruction
// ------- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func assembleAddress(line *Line, symbols *SymbolTable, variable *uint16, dbg *DebugInfo) (string, error) {
	value := strings.TrimSpace(line.Text[len(PREFIX_ADDRESS):])

	if len(value) == 0 {
		return "", &EmptyAddressError{line.Position, line.Text}
	}

	if isDecimal(value) {
		literal, err := strconv.ParseUint(value, 10, 16)

		if err != nil || literal > uint64(ADDRESS_MAX) {
			return "", &AddressRangeError{line.Position, ADDRESS_MAX, value}
		}

		return encoding.EncodeBinary(uint16(literal)), nil
	}

	addr, exists := symbols.GetAddress(value)

	if !exists {
		addr = *variable
		symbols.AddEntry(value, addr)
		*variable++

		if dbg != nil {
			dbg.Variables[addr] = value
		}
	}

	if addr > ADDRESS_MAX {
		return "", &AddressRangeError{
			line.Position,
			ADDRESS_MAX,
			value + " (" + strconv.Itoa(int(addr)) + ")",
		}
	}

	return encoding.EncodeBinary(addr), nil
}

// dest=comp;jump  |1|1|1|a|c c c c c c|d d d|j j j| Compute instruction
// --------------- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func assembleCompute(line *Line) (string, error) {
	dest, comp, jump := ParseCompute(line.Text)

	destBits, ok := DestTable[dest]

	if !ok {
		return "", &InvalidDestError{line.Position, dest, line.Text}
	}

	jumpBits, ok := JumpTable[jump]

	if !ok {
		return "", &InvalidJumpError{line.Position, jump, line.Text}
	}

	compBits, ok := CompTable[comp]

	if !ok {
		return "", &InvalidCompError{line.Position, comp, line.Text}
	}

	return PREFIX_COMPUTE + compBits + destBits + jumpBits, nil
}

// Assembles Hack source text into one binary word per line. Nothing is
// returned unless every statement assembles.
func Assemble(text string) (string, error) {
	return assemble(text, nil)
}

func assemble(text string, dbg *DebugInfo) (string, error) {
	symbols := NewSymbolTable()

	instructions, err := firstPass(Clean(text), symbols, dbg)

	if err != nil {
		return "", err
	}

	binary, err := secondPass(instructions, symbols, dbg)

	if err != nil {
		return "", err
	}

	return strings.Join(binary, "\n") + "\n", nil
}

// Reads and assembles a whole source. When dbg is non-nil it receives the
// label, variable and source offset tables of a successful run.
func AssembleHackSource(input io.Reader, dbg *DebugInfo) (string, error) {
	source, err := io.ReadAll(input)

	if err != nil {
		return "", err
	}

	var scratch *DebugInfo = nil

	if dbg != nil {
		scratch = NewDebugInfo()
	}

	result, err := assemble(string(source), scratch)

	if err != nil {
		return "", err
	}

	if dbg != nil {
		if dbg.Symbols == nil {
			dbg.Symbols = make(map[uint16]int64)
		}
		if dbg.Labels == nil {
			dbg.Labels = make(map[string]uint16)
		}
		if dbg.Variables == nil {
			dbg.Variables = make(map[uint16]string)
		}

		for addr, offset := range scratch.Symbols {
			dbg.Symbols[addr] = offset
		}
		for label, addr := range scratch.Labels {
			dbg.Labels[label] = addr
		}
		for addr, name := range scratch.Variables {
			dbg.Variables[addr] = name
		}
	}

	return result, nil
}
