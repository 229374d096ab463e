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
	"bufio"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/k0kubun/pp/v3"

	"github.com/lassandro/gohack/pkg/assembler"
	"github.com/lassandro/gohack/pkg/debugger"
	"github.com/lassandro/gohack/pkg/encoding"
	"github.com/lassandro/gohack/pkg/machine"
)

var lastcmd []string

// Resolves a label name, or failing that a hex address, to a ROM address.
func resolveROM(dbg *debugger.Debugger, text string) (uint16, bool) {
	if addr, ok := dbg.LookupLabel(text); ok {
		return addr, true
	}

	if addr, err := encoding.DecodeHex(text); err == nil {
		return addr, true
	}

	return 0, false
}

// Resolves a variable or predefined symbol, or failing that a hex address,
// to a RAM address. Symbols such as 'x1' shadow the hex form.
func resolveRAM(dbg *debugger.Debugger, text string) (uint16, bool) {
	if addr, ok := dbg.LookupVariable(text); ok {
		return addr, true
	}

	if addr, ok := assembler.PredefinedSymbols[text]; ok {
		return addr, true
	}

	if addr, err := encoding.DecodeHex(text); err == nil {
		return addr, true
	}

	return 0, false
}

func indexFormat(count int, suffix string) string {
	digits := math.Floor(math.Log10(float64(count + 1)))
	return fmt.Sprintf("#%%0%dd: %s\n", int64(digits)+1, suffix)
}

func debugBreak(dbg *debugger.Debugger, args []string) {
	const usage = "break [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [0x####|label]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		addr, ok := resolveROM(dbg, args[0])

		if !ok {
			log.Printf("Unable to find '%s'\n", args[0])
			return
		}

		if dbg.AddBreakpoint(addr) {
			fmt.Printf("Breakpoint added [%#04x]\n", addr)
		}

	case "l", "ls", "list":
		if len(args) != 0 {
			log.Println("break list")
			return
		}

		fmtstring := indexFormat(len(dbg.Breakpoints), "%#x")

		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf(fmtstring, i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		if len(args) != 1 {
			log.Println("break remove [#]")
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		if err := dbg.RemoveBreakpoint(i); err != nil {
			log.Println(err)
			return
		}

		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = nil
		fmt.Println("Breakpoints reset")

	default:
		log.Printf("break: '%s' is not a valid command\n", cmd)
		log.Println(usage)
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [0x####|variable] [read|write|readwrite]"

		if len(args) != 2 {
			log.Println(usage)
			return
		}

		addr, ok := resolveRAM(dbg, args[0])

		if !ok {
			log.Printf("Unable to find '%s'\n", args[0])
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "rwrite", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			log.Println(usage)
			return
		}

		if dbg.AddWatchpoint(addr, wtype) {
			fmt.Printf("Watchpoint added [%#04x] (%s)\n", addr, wtype)
		}

	case "l", "ls", "list":
		if len(args) != 0 {
			log.Println("watch list")
			return
		}

		fmtstring := indexFormat(len(dbg.Watchpoints), "%#x %s")

		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf(fmtstring, i, watchpoint.Addr, watchpoint.Type)
		}

	case "r", "rm", "remove":
		if len(args) != 1 {
			log.Println("watch remove [#]")
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		if err := dbg.RemoveWatchpoint(i); err != nil {
			log.Println(err)
			return
		}

		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = nil
		fmt.Println("Watchpoints reset")

	default:
		log.Printf("watch: '%s' is not a valid command\n", cmd)
		log.Println(usage)
	}
}

func debugReg(mc *machine.MachineState, args []string) {
	const usage = "register [A|D|PC] [0x####]"

	if len(args) == 0 {
		printRegisters(mc)
		return
	}

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	value, err := encoding.DecodeHex(args[1])

	if err != nil {
		log.Println(err)
		return
	}

	args[0] = strings.ToUpper(args[0])

	switch args[0] {
	case "A":
		mc.A = value
	case "D":
		mc.D = value
	case "PC":
		mc.Program = value
	default:
		log.Println("Invalid register")
		return
	}

	fmt.Printf("\033[1m%s:\033[0m %#04x\n", args[0], value)
}

func debugSource(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "source [0x####|label] [#]"

	if len(args) > 2 {
		log.Println(usage)
		return
	}

	var addr uint16 = mc.Program
	var size uint16 = 3

	if len(args) > 0 {
		if found, ok := resolveROM(dbg, args[0]); ok {
			addr = found
		} else if value, err := strconv.ParseUint(args[0], 10, 16); err == nil {
			size = uint16(value)
		} else {
			log.Printf("Unable to find '%s'\n", args[0])
			return
		}
	}

	if len(args) > 1 {
		value, err := strconv.ParseUint(args[1], 10, 16)

		if err != nil {
			log.Println(err)
			return
		}

		size = uint16(value)
	}

	dbg.PrintSource(addr, size)
}

func debugSymbols(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	if len(args) > 0 && args[0] == "dump" {
		if dbg.Info == nil {
			fmt.Println("No symbol table loaded")
			return
		}

		pp.Println(dbg.Info.Labels)
		pp.Println(dbg.Info.Variables)
		return
	}

	dbg.PrintVariables(mc)
}

func debugJump(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "jump [0x####|label]"

	if len(args) != 1 {
		log.Println(usage)
		return
	}

	addr, ok := resolveROM(dbg, args[0])

	if !ok {
		log.Printf("Unable to find '%s'\n", args[0])
		return
	}

	mc.Program = addr
	mc.Halted = false
	fmt.Printf("\033[1mPC:\033[0m %#04x\n", addr)
}

func debugMemory(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "memory [0x####|variable] [#]"

	if len(args) > 2 {
		log.Println(usage)
		return
	}

	var size uint16 = 1
	var addr uint16 = mc.A

	if len(args) > 0 {
		if found, ok := resolveRAM(dbg, args[0]); ok {
			addr = found
		} else if value, err := strconv.ParseUint(args[0], 10, 16); err == nil {
			size = uint16(value)
		} else {
			log.Printf("Unable to find '%s'\n", args[0])
			return
		}
	}

	if len(args) > 1 {
		value, err := strconv.ParseUint(args[1], 10, 16)

		if err != nil {
			log.Println(err)
			return
		}

		size = uint16(value)
	}

	dbg.PrintMem(mc, addr, size)
}

func debugSet(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "set [0x####|variable] [0x####|#]"

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	addr, ok := resolveRAM(dbg, args[0])

	if !ok {
		log.Printf("Unable to find '%s'\n", args[0])
		return
	}

	value, err := encoding.DecodeHex(args[1])

	if err != nil {
		var decimal int16

		if decimal, err = encoding.DecodeInt(args[1]); err != nil {
			log.Println(err)
			return
		}

		value = uint16(decimal)
	}

	addr &= machine.MEMORY_MASK
	mc.Memory[addr] = value
	dbg.PrintMem(mc, addr, 1)
}

func debugREPL(dbg *debugger.Debugger, mc *machine.Machine) {
	if suspendRawTerm() {
		defer resumeRawTerm()
	}

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		if !scanner.Scan() {
			fmt.Println()
			shouldexit.Store(true)
			mc.State.Halted = true
			return
		}

		args := strings.Fields(scanner.Text())

		if len(args) == 0 {
			if len(lastcmd) == 0 {
				continue
			}
			args = lastcmd
		} else {
			lastcmd = make([]string, len(args))
			copy(lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			debugWatch(dbg, args)

		case "r", "reg", "register", "registers":
			debugReg(&mc.State, args)

		case "s", "src", "source":
			debugSource(dbg, &mc.State, args)

		case "l", "label", "labels":
			dbg.PrintLabels()

		case "v", "var", "vars", "symbols":
			debugSymbols(dbg, &mc.State, args)

		case "j", "jmp", "jump":
			debugJump(dbg, &mc.State, args)

		case "m", "mem", "memory":
			debugMemory(dbg, &mc.State, args)

		case "set":
			debugSet(dbg, &mc.State, args)

		case "c", "continue":
			dbg.Break = false
			return

		case "n", "next":
			dbg.Break = true
			return

		case "q", "quit", "exit":
			shouldexit.Store(true)
			mc.State.Halted = true
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			mc.State.Reset()
			fmt.Println("Machine reset")

		default:
			log.Printf("'%s' is not a valid command\n", cmd)
		}
	}
}

func handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if !dbg.Break {
		fmt.Println()
		fmt.Println("Program stopped")
		dbg.PrintSource(mc.State.Program, 8)
	} else {
		dbg.PrintSource(mc.State.Program, 1)
	}

	debugREPL(dbg, mc)
}

func handleRead(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped on read")
	dbg.PrintMem(&mc.State, addr, 1)
	debugREPL(dbg, mc)
}

func handleWrite(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped on write")
	dbg.PrintMem(&mc.State, addr, 1)
	debugREPL(dbg, mc)
}
