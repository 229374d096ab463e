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


package main

import (
	"io"
	"testing"

	"github.com/lassandro/gohack/pkg/assembler"
	"github.com/lassandro/gohack/pkg/debugger"
	"github.com/lassandro/gohack/pkg/machine"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		Input string
		Addr  uint16
		Count uint16
	}{
		{"0x4000", 0x4000, 1},
		{"x10:4", 0x10, 4},
		{"256", 256, 1},
		{"16:10", 16, 10},
	}

	for _, test := range tests {
		addr, count, err := parseRange(test.Input)

		if err != nil {
			t.Errorf("%s: Unexpected error %v", test.Input, err)
			continue
		}

		if addr != test.Addr || count != test.Count {
			t.Errorf(
				"%s: Expected %#04x:%d, got %#04x:%d",
				test.Input, test.Addr, test.Count, addr, count,
			)
		}
	}

	for _, input := range []string{"", "SCREEN", "0x10:", "16:0", "16:x"} {
		if _, _, err := parseRange(input); err == nil {
			t.Errorf("%s: Expected error", input)
		}
	}
}

func testDebugger() *debugger.Debugger {
	info := assembler.NewDebugInfo()
	info.Labels["LOOP"] = 4
	info.Labels["x10"] = 9
	info.Variables[16] = "x1"
	info.Variables[17] = "xff"
	info.Variables[18] = "count"

	return &debugger.Debugger{Info: info, Out: io.Discard}
}

type resolveCase struct {
	Input string
	Addr  uint16
	Found bool
}

func TestResolveRAM(t *testing.T) {
	dbg := testDebugger()

	tests := []resolveCase{
		{"x1", 16, true},
		{"xff", 17, true},
		{"count", 18, true},
		{"SCREEN", 0x4000, true},
		{"R13", 13, true},
		{"0x20", 0x20, true},
		{"x20", 0x20, true},
		{"LOOP", 0, false},
		{"missing", 0, false},
	}

	for _, test := range tests {
		addr, found := resolveRAM(dbg, test.Input)

		if addr != test.Addr || found != test.Found {
			t.Errorf(
				"%s: Expected %#04x (%v), got %#04x (%v)",
				test.Input, test.Addr, test.Found, addr, found,
			)
		}
	}
}

func TestResolveROM(t *testing.T) {
	dbg := testDebugger()

	tests := []resolveCase{
		{"LOOP", 4, true},
		{"x10", 9, true},
		{"x11", 0x11, true},
		{"0x2", 0x2, true},
		{"count", 0, false},
	}

	for _, test := range tests {
		addr, found := resolveROM(dbg, test.Input)

		if addr != test.Addr || found != test.Found {
			t.Errorf(
				"%s: Expected %#04x (%v), got %#04x (%v)",
				test.Input, test.Addr, test.Found, addr, found,
			)
		}
	}
}

func TestSymbolCommands(t *testing.T) {
	dbg := testDebugger()
	var mc machine.MachineState

	debugSet(dbg, &mc, []string{"x1", "0x2a"})

	if mc.Memory[16] != 0x2a || mc.Memory[1] != 0 {
		t.Errorf(
			"set x1: Expected RAM[16]=0x2a, got RAM[16]=%#04x RAM[1]=%#04x",
			mc.Memory[16], mc.Memory[1],
		)
	}

	debugSet(dbg, &mc, []string{"count", "#-1"})

	if mc.Memory[18] != 0xFFFF {
		t.Errorf("set count: Expected 0xffff, got %#04x", mc.Memory[18])
	}

	debugJump(dbg, &mc, []string{"x10"})

	if mc.Program != 9 {
		t.Errorf("jump x10: Expected PC=9, got %d", mc.Program)
	}

	debugBreak(dbg, []string{"add", "LOOP"})
	debugWatch(dbg, []string{"add", "xff", "write"})

	if len(dbg.Breakpoints) != 1 || dbg.Breakpoints[0].Addr != 4 {
		t.Errorf("break add LOOP: Got %v", dbg.Breakpoints)
	}

	expected := debugger.Watchpoint{Addr: 17, Type: debugger.WriteWatch}

	if len(dbg.Watchpoints) != 1 || dbg.Watchpoints[0] != expected {
		t.Errorf("watch add xff: Expected %v, got %v", expected, dbg.Watchpoints)
	}

	debugReg(&mc, []string{"d", "0x7"})

	if mc.D != 7 {
		t.Errorf("register d: Expected D=7, got %d", mc.D)
	}
}
