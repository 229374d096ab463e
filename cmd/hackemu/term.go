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
	"github.com/lassandro/gohack/pkg/term"
)

var termRestore *term.State
var termFd int

func enterRawTerm(fd int) error {
	state, err := term.MakeRaw(fd)

	if err != nil {
		return err
	}

	termRestore = state
	termFd = fd
	return nil
}

func exitRawTerm(fd int) {
	term.Restore(fd, termRestore)
}

// Hands the terminal back in its saved mode until resumeRawTerm.
func suspendRawTerm() bool {
	if termRestore == nil {
		return false
	}

	term.Restore(termFd, termRestore)
	return true
}

func resumeRawTerm() {
	term.MakeRaw(termFd)
}
