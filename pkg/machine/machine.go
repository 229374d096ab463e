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


package machine

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/lassandro/gohack/pkg/encoding"
)

// Clears registers and RAM. The loaded program is kept.
func (mc *MachineState) Reset() {
	mc.A = 0x0000
	mc.D = 0x0000
	mc.Program = 0x0000
	mc.Halted = false

	for i := range mc.Memory {
		mc.Memory[i] = 0x0000
	}
}

// Loads a program in the textual binary format, one 16 character word per
// line, into ROM starting at address 0.
func (mc *Machine) LoadHack(reader io.Reader) error {
	mc.State.Reset()
	mc.State.ROM = [ROM_SIZE]uint16{}
	mc.State.Size = 0

	scanner := bufio.NewScanner(reader)
	line := 0

	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())

		if len(text) == 0 {
			continue
		}

		if int(mc.State.Size) >= ROM_SIZE {
			return fmt.Errorf("%02d: Binary exceeds ROM size of %d", line, ROM_SIZE)
		}

		word, err := encoding.DecodeBinary(text)

		if err != nil {
			return fmt.Errorf("%02d: %s '%s'", line, err, text)
		}

		mc.State.ROM[mc.State.Size] = word
		mc.State.Size++
	}

	return scanner.Err()
}

// Translates a byte typed on a terminal to its Hack keyboard code.
func KeyCode(key byte) uint16 {
	switch key {
	case '\r', '\n':
		return KEY_NEWLINE
	case 0x08, 0x7F:
		return KEY_BACKSPACE
	case 0x1B:
		return KEY_ESCAPE
	}

	return uint16(key)
}

func (mc *Machine) read(addr uint16) uint16 {
	addr &= MEMORY_MASK

	if addr == DEV_KBD && mc.Devices != nil && mc.Devices.Keyboard != nil {
		key, err := mc.Devices.Keyboard.ReadByte()

		if err != nil && err != io.EOF {
			panic(err)
		}

		if err != io.EOF {
			mc.State.Memory[DEV_KBD] = KeyCode(key)
		} else {
			mc.State.Memory[DEV_KBD] = 0
		}
	}

	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return mc.State.Memory[addr]
}

func (mc *Machine) write(addr uint16, value uint16) {
	addr &= MEMORY_MASK

	// The keyboard map is read-only
	if addr != DEV_KBD {
		mc.State.Memory[addr] = value
	}

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}
}

func compute(x, y uint16, instruction uint16) uint16 {
	if instruction&COMP_ZX != 0 {
		x = 0
	}

	if instruction&COMP_NX != 0 {
		x = ^x
	}

	if instruction&COMP_ZY != 0 {
		y = 0
	}

	if instruction&COMP_NY != 0 {
		y = ^y
	}

	var out uint16

	if instruction&COMP_F != 0 {
		out = x + y
	} else {
		out = x & y
	}

	if instruction&COMP_NO != 0 {
		out = ^out
	}

	return out
}

func shouldJump(out uint16, instruction uint16) bool {
	value := int16(out)

	return (instruction&JUMP_LT != 0 && value < 0) ||
		(instruction&JUMP_EQ != 0 && value == 0) ||
		(instruction&JUMP_GT != 0 && value > 0)
}

func (mc *Machine) Step() {
	if mc.State.Program >= mc.State.Size {
		mc.State.Halted = true
		return
	}

	addr := mc.State.Program
	instruction := mc.State.ROM[addr]

	mc.State.Program++

	// A    |0|value                        | Load address register
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	if instruction&INSTR_COMPUTE == 0 {
		mc.State.A = instruction
	} else {
		// Stores and jumps use A as it was before this instruction
		target := mc.State.A

		y := mc.State.A
		if instruction&COMP_A != 0 {
			y = mc.read(target)
		}

		out := compute(mc.State.D, y, instruction)

		if instruction&DEST_M != 0 {
			mc.write(target, out)
		}

		if instruction&DEST_D != 0 {
			mc.State.D = out
		}

		if instruction&DEST_A != 0 {
			mc.State.A = out
		}

		if shouldJump(out, instruction) {
			mc.State.Program = target

			if mc.isSpinning(addr, instruction, target) {
				mc.State.Halted = true
			}
		}
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}
}

// Reports whether a taken jump enters a loop that never changes state:
// "@X" at X followed by a jump to X, or a jump to itself. Neither jump may
// write a register or memory.
func (mc *Machine) isSpinning(addr uint16, instruction uint16, target uint16) bool {
	if instruction&JUMP_MASK != JUMP_MASK ||
		instruction&(DEST_A|DEST_D|DEST_M) != 0 {
		return false
	}

	if target == addr {
		return true
	}

	return addr > 0 && target == addr-1 && mc.State.ROM[target] == target
}

// Steps until the machine halts or limit instructions ran; a limit of 0
// runs until halted. Returns the number of instructions executed.
func (mc *Machine) Run(limit uint) uint {
	var steps uint = 0

	for limit == 0 || steps < limit {
		if mc.State.Program >= mc.State.Size {
			mc.State.Halted = true
		}

		if mc.State.Halted {
			break
		}

		mc.Step()
		steps++
	}

	return steps
}

// Renders the screen memory map into an RGBA buffer of
// SCREEN_WIDTH*SCREEN_HEIGHT*4 bytes. Bit i of a word is pixel i counting
// from the left, a set bit is black.
func (mc *MachineState) ScreenPixels(pixels []byte) {
	for word := 0; word < SCREEN_WORDS; word++ {
		value := mc.Memory[int(MEMSPACE_SCREEN)+word]

		for bit := 0; bit < 16; bit++ {
			offset := (word*16 + bit) * 4

			var shade byte = 0xFF
			if value&(1<<bit) != 0 {
				shade = 0x00
			}

			pixels[offset+0] = shade
			pixels[offset+1] = shade
			pixels[offset+2] = shade
			pixels[offset+3] = 0xFF
		}
	}
}
