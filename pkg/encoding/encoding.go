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


package encoding

import (
	"errors"
	"strconv"
	"strings"
)

// Width of a Hack machine word in its textual binary form.
const WordBits = 16

// Decodes a hexidecimal string in the formats: 0xFFFF, xFFFF, 0xFF, xFF
func DecodeHex(s string) (uint16, error) {
	if i := strings.IndexAny(s, "xX"); i == 0 {
		s = "0" + s
	} else if i == -1 || i != 1 {
		return 0, errors.New("Invalid hex string")
	}

	result, err := strconv.ParseUint(s, 0, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a base-10 string in the formats: #123, 123
func DecodeInt(s string) (int16, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseInt(s, 10, 16)

	if err != nil {
		return 0, err
	}

	return int16(result), nil
}

// Encodes a word as 16 '0'/'1' characters, most significant bit first.
func EncodeBinary(value uint16) string {
	var scratch [WordBits]byte

	for i := WordBits - 1; i >= 0; i-- {
		scratch[i] = '0' + byte(value&0x1)
		value >>= 1
	}

	return string(scratch[:])
}

// Decodes exactly 16 '0'/'1' characters into a word.
func DecodeBinary(s string) (uint16, error) {
	if len(s) != WordBits {
		return 0, errors.New("Invalid binary word length")
	}

	var result uint16

	for i := 0; i < len(s); i++ {
		result <<= 1

		switch s[i] {
		case '0':
		case '1':
			result |= 0x1
		default:
			return 0, errors.New("Invalid binary digit")
		}
	}

	return result, nil
}
