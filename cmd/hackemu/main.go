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
	"encoding/gob"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/lassandro/gohack/pkg/assembler"
	"github.com/lassandro/gohack/pkg/debugger"
	"github.com/lassandro/gohack/pkg/encoding"
	"github.com/lassandro/gohack/pkg/machine"
	"github.com/lassandro/gohack/pkg/term"
)

var debugvar bool
var stepsvar uint
var dumpvar string
var exitcode int

var shouldexit atomic.Bool

// Set by the signal handler, consumed by the run loop.
var interrupted atomic.Bool

const usage = "hackemu [--debug] [--steps #] [--dump 0x####[:#]] filename"

var rootCmd = &cobra.Command{
	Use:   usage,
	Short: "Runs a Hack binary on an emulated Hack CPU",
	Long: `Hackemu loads a program in the textual Hack binary format (.hack) into
ROM and runs it until the program halts, either by running past its last
instruction or by entering the customary end loop.

Keys typed on the terminal are fed to the KBD register. With --debug the
symbol table written by 'hackasm --debug' is loaded from the matching
.hackdb file and a debugger prompt opens before the first instruction.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		exitcode = hackemu(args)
	},
}

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	rootCmd.Flags().BoolVarP(
		&debugvar, "debug", "d", false, "Runs the machine in a debug CLI",
	)
	rootCmd.Flags().UintVarP(
		&stepsvar, "steps", "s", 0,
		"Stops after the given number of instructions, 0 runs until halted",
	)
	rootCmd.Flags().StringVar(
		&dumpvar, "dump", "",
		"Prints a range of RAM once the machine stops, as 0x####[:#]",
	)
}

// Parses an address given in hex (0x####) or decimal, with an optional
// ':count' suffix.
func parseRange(text string) (uint16, uint16, error) {
	addrtext, counttext, hascount := strings.Cut(text, ":")

	addr, err := encoding.DecodeHex(addrtext)

	if err != nil {
		value, err := strconv.ParseUint(addrtext, 10, 16)

		if err != nil {
			return 0, 0, fmt.Errorf("Invalid address '%s'", addrtext)
		}

		addr = uint16(value)
	}

	var count uint16 = 1

	if hascount {
		value, err := strconv.ParseUint(counttext, 10, 16)

		if err != nil || value == 0 {
			return 0, 0, fmt.Errorf("Invalid count '%s'", counttext)
		}

		count = uint16(value)
	}

	return addr, count, nil
}

func loadDebugInfo(filename string) *assembler.DebugInfo {
	file, err := os.Open(filename)

	if err != nil {
		log.Println("Error loading symbol file")
		log.Println(err)
		return nil
	}

	defer file.Close()

	var info assembler.DebugInfo

	if err := gob.NewDecoder(file).Decode(&info); err != nil {
		log.Println("Error loading symbol file")
		log.Println(err)
		return nil
	}

	return &info
}

func printRegisters(mc *machine.MachineState) {
	fmt.Printf(
		"\033[1mA:\033[0m %#04x\t\033[1mD:\033[0m %#04x\t"+
			"\033[1mPC:\033[0m %#04x\n",
		mc.A,
		mc.D,
		mc.Program,
	)
}

func hackemu(args []string) int {
	var dumpaddr, dumpcount uint16

	if dumpvar != "" {
		var err error

		if dumpaddr, dumpcount, err = parseRange(dumpvar); err != nil {
			log.Println(err)
			return 1
		}
	}

	file, err := os.Open(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	defer file.Close()

	var mc machine.Machine
	var dh machine.DeviceHandler
	dh.Keyboard = bufio.NewReader(os.Stdin)
	mc.Devices = &dh

	if err := mc.LoadHack(file); err != nil {
		log.Printf("%s: %s", filepath.Base(args[0]), err)
		return 1
	}

	var dbg debugger.Debugger

	c := make(chan os.Signal, 1)
	defer close(c)

	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)

	if debugvar {
		dbg.HandleBreak = handleBreak
		dbg.HandleRead = handleRead
		dbg.HandleWrite = handleWrite
		dbg.Break = true
		mc.Debugger = &dbg

		filename := strings.TrimSuffix(
			args[0], filepath.Ext(args[0]),
		) + ".hackdb"

		dbg.Info = loadDebugInfo(filename)

		if dbg.Info != nil && dbg.Info.Source != "" {
			if file, err := os.Open(dbg.Info.Source); err == nil {
				dbg.Source = file
				defer file.Close()
			} else {
				log.Println("Error loading source file")
				log.Println(err)
			}
		}

	}

	go func() {
		for range c {
			interrupted.Store(true)
		}
	}()

	stdin := int(os.Stdin.Fd())

	if term.IsTerminal(stdin) {
		if err := enterRawTerm(stdin); err != nil {
			log.Println(err)
			return 1
		}

		defer exitRawTerm(stdin)
	}

	if debugvar {
		fmt.Printf("Loaded %d instructions\n", mc.State.Size)
		dbg.PrintSource(mc.State.Program, 8)
		debugREPL(&dbg, &mc)
	}

	var steps uint = 0

	for !shouldexit.Load() && !mc.State.Halted {
		if stepsvar != 0 && steps >= stepsvar {
			break
		}

		if interrupted.Swap(false) {
			if !debugvar {
				break
			}

			fmt.Println()
			dbg.Break = true
		}

		steps += mc.Run(1)
	}

	if mc.State.Halted {
		fmt.Printf("Program halted after %d instructions\n", steps)
	} else {
		fmt.Printf("Program stopped after %d instructions\n", steps)
	}

	printRegisters(&mc.State)

	if dumpcount > 0 {
		dbg.PrintMem(&mc.State, dumpaddr, dumpcount)
	}

	return 0
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}

	os.Exit(exitcode)
}
