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
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/spf13/cobra"

	"github.com/lassandro/gohack/pkg/machine"
)

var speedvar uint
var scalevar int
var exitcode int

const usage = "hackscreen [--speed #] [--scale #] filename"

var rootCmd = &cobra.Command{
	Use:   usage,
	Short: "Runs a Hack binary with its screen and keyboard in a window",
	Long: `Hackscreen loads a program in the textual Hack binary format (.hack) and
runs it in a window showing the 512x256 screen memory map starting at
RAM[16384]. The key held down in the window is written to KBD (RAM[24576]).

The machine runs --speed instructions per frame, at 60 frames per second.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		exitcode = hackscreen(args)
	},
}

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	rootCmd.Flags().UintVarP(
		&speedvar, "speed", "s", 20000, "Instructions executed per frame",
	)
	rootCmd.Flags().IntVar(
		&scalevar, "scale", 2, "Window size as a multiple of the screen size",
	)
}

var specialKeys = map[ebiten.Key]uint16{
	ebiten.KeyEnter:     machine.KEY_NEWLINE,
	ebiten.KeyBackspace: machine.KEY_BACKSPACE,
	ebiten.KeyLeft:      machine.KEY_LEFT,
	ebiten.KeyUp:        machine.KEY_UP,
	ebiten.KeyRight:     machine.KEY_RIGHT,
	ebiten.KeyDown:      machine.KEY_DOWN,
	ebiten.KeyHome:      machine.KEY_HOME,
	ebiten.KeyEnd:       machine.KEY_END,
	ebiten.KeyPageUp:    machine.KEY_PAGEUP,
	ebiten.KeyPageDown:  machine.KEY_PAGEDOWN,
	ebiten.KeyInsert:    machine.KEY_INSERT,
	ebiten.KeyDelete:    machine.KEY_DELETE,
	ebiten.KeyEscape:    machine.KEY_ESCAPE,
	ebiten.KeyF1:        machine.KEY_F1,
	ebiten.KeyF2:        machine.KEY_F1 + 1,
	ebiten.KeyF3:        machine.KEY_F1 + 2,
	ebiten.KeyF4:        machine.KEY_F1 + 3,
	ebiten.KeyF5:        machine.KEY_F1 + 4,
	ebiten.KeyF6:        machine.KEY_F1 + 5,
	ebiten.KeyF7:        machine.KEY_F1 + 6,
	ebiten.KeyF8:        machine.KEY_F1 + 7,
	ebiten.KeyF9:        machine.KEY_F1 + 8,
	ebiten.KeyF10:       machine.KEY_F1 + 9,
	ebiten.KeyF11:       machine.KEY_F1 + 10,
	ebiten.KeyF12:       machine.KEY_F1 + 11,
}

type Screen struct {
	mc     *machine.Machine
	key    uint16
	pixels []byte
	image  *ebiten.Image
}

// Tracks the key held down. Printable keys arrive as input characters on
// the frame they are pressed and are held until every key is released.
func (s *Screen) updateKey() {
	pressed := inpututil.AppendPressedKeys(nil)

	if len(pressed) == 0 {
		s.key = 0
		return
	}

	for _, key := range pressed {
		if code, ok := specialKeys[key]; ok {
			s.key = code
			return
		}
	}

	if chars := ebiten.AppendInputChars(nil); len(chars) > 0 && chars[0] < 128 {
		s.key = uint16(chars[0])
	}
}

func (s *Screen) Update() error {
	s.updateKey()
	s.mc.State.Memory[machine.DEV_KBD] = s.key

	if !s.mc.State.Halted {
		s.mc.Run(speedvar)
	}

	return nil
}

func (s *Screen) Draw(screen *ebiten.Image) {
	if s.image == nil {
		s.image = ebiten.NewImage(machine.SCREEN_WIDTH, machine.SCREEN_HEIGHT)
		s.pixels = make([]byte, machine.SCREEN_WIDTH*machine.SCREEN_HEIGHT*4)
	}

	s.mc.State.ScreenPixels(s.pixels)
	s.image.WritePixels(s.pixels)
	screen.DrawImage(s.image, nil)
}

func (s *Screen) Layout(outsideWidth, outsideHeight int) (int, int) {
	return machine.SCREEN_WIDTH, machine.SCREEN_HEIGHT
}

func hackscreen(args []string) int {
	if speedvar == 0 {
		log.Println("Speed must be at least 1 instruction per frame")
		return 1
	}

	if scalevar < 1 {
		log.Println("Scale must be at least 1")
		return 1
	}

	file, err := os.Open(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	defer file.Close()

	var mc machine.Machine

	if err := mc.LoadHack(file); err != nil {
		log.Printf("%s: %s", filepath.Base(args[0]), err)
		return 1
	}

	ebiten.SetWindowSize(
		machine.SCREEN_WIDTH*scalevar, machine.SCREEN_HEIGHT*scalevar,
	)
	ebiten.SetWindowTitle(fmt.Sprintf("Hack - %s", filepath.Base(args[0])))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(&Screen{mc: &mc}); err != nil {
		log.Println(err)
		return 1
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
