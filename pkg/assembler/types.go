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
	"fmt"
)

type Cursor struct {
	Line     int
	Column   int
	Byte     int64
	Size     int64
	LineByte int64
}

// A cleaned source statement: a label, an address instruction or a compute
// instruction, with comments and surrounding whitespace removed.
type Line struct {
	Text     string
	Position Cursor
}

func (line *Line) IsLabel() bool {
	return len(line.Text) >= 2 &&
		line.Text[:1] == PREFIX_LABEL &&
		line.Text[len(line.Text)-1:] == SUFFIX_LABEL
}

func (line *Line) IsAddress() bool {
	return len(line.Text) > 0 && line.Text[:1] == PREFIX_ADDRESS
}

// Maps every symbol of one assembly run to its address. Predefined
// symbols, labels and variables share the single namespace.
type SymbolTable struct {
	symbols map[string]uint16
}

func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{symbols: make(map[string]uint16, len(PredefinedSymbols))}

	for name, addr := range PredefinedSymbols {
		st.symbols[name] = addr
	}

	return st
}

func (st *SymbolTable) AddEntry(name string, addr uint16) {
	st.symbols[name] = addr
}

func (st *SymbolTable) Contains(name string) bool {
	_, exists := st.symbols[name]
	return exists
}

func (st *SymbolTable) GetAddress(name string) (uint16, bool) {
	addr, exists := st.symbols[name]
	return addr, exists
}

func (st *SymbolTable) Len() int {
	return len(st.symbols)
}

// Debugging information produced alongside a binary. Symbols maps a ROM
// address to the byte offset of the source line it was assembled from,
// Labels maps every label name to its ROM address.
type DebugInfo struct {
	Source    string
	Symbols   map[uint16]int64
	Labels    map[string]uint16
	Variables map[uint16]string
}

func NewDebugInfo() *DebugInfo {
	return &DebugInfo{
		Symbols:   make(map[uint16]int64),
		Labels:    make(map[string]uint16),
		Variables: make(map[uint16]string),
	}
}

type TokenError interface {
	GetPosition() Cursor
}

type EmptyLabelError struct {
	Position Cursor
	Received string
}

func (err *EmptyLabelError) GetPosition() Cursor {
	return err.Position
}

func (err *EmptyLabelError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Empty label '%s'",
		err.Position.Line,
		err.Position.Column,
		err.Received,
	)
}

type DuplicateLabelError struct {
	Position Cursor
	Received string
}

func (err *DuplicateLabelError) GetPosition() Cursor {
	return err.Position
}

func (err *DuplicateLabelError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Redeclaration of symbol '%s'",
		err.Position.Line,
		err.Position.Column,
		err.Received,
	)
}

type EmptyAddressError struct {
	Position Cursor
	Received string
}

func (err *EmptyAddressError) GetPosition() Cursor {
	return err.Position
}

func (err *EmptyAddressError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Missing value or symbol in '%s'",
		err.Position.Line,
		err.Position.Column,
		err.Received,
	)
}

type AddressRangeError struct {
	Position Cursor
	Required uint16
	Received string
}

func (err *AddressRangeError) GetPosition() Cursor {
	return err.Position
}

func (err *AddressRangeError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Address exceeds allowed size\n\twant:<=%d\n\thave:%s",
		err.Position.Line,
		err.Position.Column,
		err.Required,
		err.Received,
	)
}

type InvalidDestError struct {
	Position Cursor
	Received string
	Line     string
}

func (err *InvalidDestError) GetPosition() Cursor {
	return err.Position
}

func (err *InvalidDestError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Invalid dest '%s' in '%s'",
		err.Position.Line,
		err.Position.Column,
		err.Received,
		err.Line,
	)
}

type InvalidJumpError struct {
	Position Cursor
	Received string
	Line     string
}

func (err *InvalidJumpError) GetPosition() Cursor {
	return err.Position
}

func (err *InvalidJumpError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Invalid jump '%s' in '%s'",
		err.Position.Line,
		err.Position.Column,
		err.Received,
		err.Line,
	)
}

type InvalidCompError struct {
	Position Cursor
	Received string
	Line     string
}

func (err *InvalidCompError) GetPosition() Cursor {
	return err.Position
}

func (err *InvalidCompError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Invalid comp '%s' in '%s'",
		err.Position.Line,
		err.Position.Column,
		err.Received,
		err.Line,
	)
}

type OversizedBinaryError struct {
	Position Cursor
}

func (err *OversizedBinaryError) GetPosition() Cursor {
	return err.Position
}

func (err *OversizedBinaryError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Binary exceeds allowed size\n\twant:<=%d",
		err.Position.Line,
		err.Position.Column,
		ROM_SIZE,
	)
}
