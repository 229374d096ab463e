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
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/lassandro/gohack/pkg/assembler"
	"github.com/lassandro/gohack/pkg/term"
)

var debugvar bool
var verbosevar bool
var outvar string
var exitcode int

const usage = "hackasm [--debug] [--verbose] [--out outfile] filename"

var rootCmd = &cobra.Command{
	Use:   usage,
	Short: "Assembles Hack assembly into Hack binary text",
	Long: `Hackasm translates a Hack assembly program (.asm) into the textual
binary format (.hack) loaded by the Hack CPU emulators: one 16 character
word of '0' and '1' per instruction.

The program is read from the named file, or from stdin when input is piped,
in which case the output defaults to out.hack. Assembly stops at the first
error and no output is written.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		exitcode = hackasm(args)
	},
}

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	rootCmd.Flags().BoolVarP(
		&debugvar, "debug", "d", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'.hackdb'",
	)
	rootCmd.Flags().BoolVarP(
		&verbosevar, "verbose", "v", false,
		"Dumps the resolved labels and variables to stderr",
	)
	rootCmd.Flags().StringVarP(
		&outvar, "out", "o", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
}

// Replaces the extension of path with ext.
func outputPath(path string, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// Renders an assembler error, followed by the offending source line and an
// underline when the error carries a position.
func formatError(err error, source []byte, styled bool) string {
	tokenErr, ok := err.(assembler.TokenError)

	if !ok {
		return err.Error()
	}

	cursor := tokenErr.GetPosition()

	if cursor.LineByte < 0 || cursor.LineByte > int64(len(source)) {
		return err.Error()
	}

	line, _, _ := strings.Cut(string(source[cursor.LineByte:]), "\n")
	line = strings.TrimRight(line, "\r")

	underline := strings.Repeat(" ", int(cursor.Byte-cursor.LineByte)) + "^"
	if cursor.Size > 1 {
		underline += strings.Repeat("~", int(cursor.Size)-1)
	}

	if styled {
		underline = "\033[31m" + underline + "\033[0m"
	}

	return fmt.Sprintf("%s\n%s\n%s", err, line, underline)
}

func hackasm(args []string) int {
	styled := term.IsTerminal(int(os.Stderr.Fd()))

	var infile string
	var input io.Reader

	if stat, _ := os.Stdin.Stat(); len(args) == 0 && stat != nil &&
		stat.Mode()&os.ModeCharDevice == 0 {
		input = os.Stdin
		log.SetPrefix("<stdin>: ")

		if outvar == "" {
			outvar = "out.hack"
		}
	} else {
		if len(args) != 1 {
			log.Println(usage)
			return 1
		}

		file, err := os.Open(args[0])

		if err != nil {
			log.Println(err)
			return 1
		}

		defer file.Close()

		filename := filepath.Base(file.Name())

		if stat, err := file.Stat(); err != nil {
			log.Println(err)
			return 1
		} else if stat.IsDir() {
			log.Printf("%s is not a valid Hack assembly file", filename)
			return 1
		}

		input = file
		infile = file.Name()

		if styled {
			log.SetPrefix(fmt.Sprintf("\033[1m%s:\033[0m ", filename))
		} else {
			log.SetPrefix(filename + ": ")
		}

		if outvar == "" {
			outvar = outputPath(infile, ".hack")
		}
	}

	source, err := io.ReadAll(input)

	if err != nil {
		log.Println(err)
		return 1
	}

	var info *assembler.DebugInfo = nil

	if debugvar || verbosevar {
		info = assembler.NewDebugInfo()

		if infile != "" {
			if info.Source, err = filepath.Abs(infile); err != nil {
				log.Println(err)
				info.Source = ""
			}
		}
	}

	result, err := assembler.AssembleHackSource(bytes.NewReader(source), info)

	if err != nil {
		log.Println(formatError(err, source, styled))
		return 1
	}

	if verbosevar {
		pp.Fprintf(os.Stderr, "Labels: %v\n", info.Labels)
		pp.Fprintf(os.Stderr, "Variables: %v\n", info.Variables)
	}

	if err := os.WriteFile(outvar, []byte(result), 0666); err != nil {
		log.Println("Error writing output file")
		log.Println(err)
		return 1
	}

	if debugvar {
		filename := outputPath(outvar, ".hackdb")

		file, err := os.Create(filename)

		if err != nil {
			log.Println("Error creating symbol table")
			log.Println(err)
			return 1
		}

		defer file.Close()

		if err := gob.NewEncoder(file).Encode(info); err != nil {
			log.Println("Error writing symbol table")
			log.Println(err)
			return 1
		}
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
