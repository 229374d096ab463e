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


package assembler_test

import (
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/lassandro/gohack/pkg/assembler"
)

type testCase struct {
	Name   string
	Input  string
	Output []string
}

type failCase struct {
	Name  string
	Input string
	Error error
}

func testAssemblerSuccess(t *testing.T, test *testCase) {
	result, err := assembler.Assemble(test.Input)

	if err != nil {
		t.Fatal(err)
	}

	// Expected words may group their fields with underscores
	want := strings.ReplaceAll(strings.Join(test.Output, "\n")+"\n", "_", "")

	if result != want {
		t.Fatalf(
			"Instruction encoding mismatch\n"+
				"want:\n%s\n"+
				"have:\n%s",
			want,
			result,
		)
	}
}

func testAssemblerFail(t *testing.T, test *failCase) {
	result, err := assembler.Assemble(test.Input)

	if test.Error == nil {
		panic("Fail case missing error value")
	}

	if err == nil {
		t.Fatalf(
			"%s produced error of incorrect type"+
				"\nwant:%T (test.Error)\nhave:<nil>",
			t.Name(),
			test.Error,
		)
	}

	if reflect.TypeOf(err) != reflect.TypeOf(test.Error) {
		t.Fatalf(
			"%s produced error of incorrect type"+
				"\nwant:%T (test.Error)\nhave:%T (%s)",
			t.Name(),
			test.Error,
			err,
			err,
		)
	}

	if len(result) != 0 {
		t.Fatalf("%s produced partial output\nhave:%q", t.Name(), result)
	}
}

func testSuccess(t *testing.T, tests []testCase) {
	t.Run("Success", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testAssemblerSuccess(t, &test)
			})
		}
	})
}

func testFail(t *testing.T, tests []failCase) {
	t.Run("Fail", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testAssemblerFail(t, &test)
			})
		}
	})
}

func TestClean(t *testing.T) {
	input := "// header\n" +
		"\n" +
		"   @2   // load\n" +
		"\tD=A\r\n" +
		"//\n" +
		"(LOOP)"

	lines := assembler.Clean(input)

	want := []assembler.Line{
		{
			Text: "@2",
			Position: assembler.Cursor{
				Line: 3, Column: 4, Byte: 14, Size: 2, LineByte: 11,
			},
		},
		{
			Text: "D=A",
			Position: assembler.Cursor{
				Line: 4, Column: 2, Byte: 28, Size: 3, LineByte: 27,
			},
		},
		{
			Text: "(LOOP)",
			Position: assembler.Cursor{
				Line: 6, Column: 1, Byte: 36, Size: 6, LineByte: 36,
			},
		},
	}

	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("Cleaned lines mismatch\nwant:%+v\nhave:%+v", want, lines)
	}

	if lines := assembler.Clean("// only\n\n   \n"); len(lines) != 0 {
		t.Fatalf("Expected no lines\nhave:%+v", lines)
	}
}

func TestParseCompute(t *testing.T) {
	tests := []struct {
		Input string
		Dest  string
		Comp  string
		Jump  string
	}{
		{"D=A", "D", "A", ""},
		{"0;JMP", "", "0", "JMP"},
		{"AMD=M+1;JGE", "AMD", "M+1", "JGE"},
		{"D", "", "D", ""},
		{" MD = D-1 ; JNE ", "MD", "D-1", "JNE"},
		{"A=B=C", "A", "B=C", ""},
		{"D;JGT;JLT", "", "D", "JGT;JLT"},
		{"=;", "", "", ""},
	}

	for _, test := range tests {
		dest, comp, jump := assembler.ParseCompute(test.Input)

		if dest != test.Dest || comp != test.Comp || jump != test.Jump {
			t.Errorf(
				"Field mismatch for %q\nwant:%q %q %q\nhave:%q %q %q",
				test.Input,
				test.Dest, test.Comp, test.Jump,
				dest, comp, jump,
			)
		}
	}
}

func TestSymbolTable(t *testing.T) {
	st := assembler.NewSymbolTable()

	if have, want := st.Len(), len(assembler.PredefinedSymbols); have != want {
		t.Fatalf("Symbol count mismatch\nwant:%d\nhave:%d", want, have)
	}

	for name, want := range assembler.PredefinedSymbols {
		have, exists := st.GetAddress(name)

		if !exists || have != want {
			t.Fatalf(
				"Predefined symbol mismatch\nwant:%s=%d\nhave:%d (%v)",
				name, want, have, exists,
			)
		}
	}

	if st.Contains("LOOP") {
		t.Fatal("Unexpected symbol 'LOOP'")
	}

	st.AddEntry("LOOP", 7)

	if addr, exists := st.GetAddress("LOOP"); !exists || addr != 7 {
		t.Fatalf("Symbol mismatch\nwant:LOOP=7\nhave:%d (%v)", addr, exists)
	}

	if assembler.NewSymbolTable().Contains("LOOP") {
		t.Fatal("Symbol leaked into a fresh table")
	}
}

func TestFirstPass(t *testing.T) {
	st := assembler.NewSymbolTable()

	lines := assembler.Clean(`
	(START)
	@1
	(A_LABEL)
	(B_LABEL)
	D=A
	( SPACED )
	0;JMP
	(END)
	`)

	instructions, err := assembler.FirstPass(lines, st)

	if err != nil {
		t.Fatal(err)
	}

	texts := make([]string, 0, len(instructions))
	for _, line := range instructions {
		texts = append(texts, line.Text)
	}

	if want := []string{"@1", "D=A", "0;JMP"}; !reflect.DeepEqual(texts, want) {
		t.Fatalf("Instruction stream mismatch\nwant:%v\nhave:%v", want, texts)
	}

	for name, want := range map[string]uint16{
		"START":   0,
		"A_LABEL": 1,
		"B_LABEL": 1,
		"SPACED":  2,
		"END":     3,
	} {
		if have, exists := st.GetAddress(name); !exists || have != want {
			t.Errorf(
				"Label address mismatch\nwant:%s=%d\nhave:%d (%v)",
				name, want, have, exists,
			)
		}
	}
}

func TestSecondPass(t *testing.T) {
	st := assembler.NewSymbolTable()
	st.AddEntry("LOOP", 3)

	lines := assembler.Clean("@foo\n@bar\n@LOOP\n@foo\n@baz")

	result, err := assembler.SecondPass(lines, st)

	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"0000000000010000",
		"0000000000010001",
		"0000000000000011",
		"0000000000010000",
		"0000000000010010",
	}

	if !reflect.DeepEqual(result, want) {
		t.Fatalf("Encoding mismatch\nwant:%v\nhave:%v", want, result)
	}

	for name, want := range map[string]uint16{"foo": 16, "bar": 17, "baz": 18} {
		if have, _ := st.GetAddress(name); have != want {
			t.Errorf("Variable mismatch\nwant:%s=%d\nhave:%d", name, want, have)
		}
	}
}

// @value  |0|value                        | Address instruction
// ------- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestAddress(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "Zero",
			Input:  `@0`,
			Output: []string{"0000000000000000"},
		},
		{
			Name:   "Max",
			Input:  `@32767`,
			Output: []string{"0111111111111111"},
		},
		{
			Name:   "Leading Zeros",
			Input:  `@00042`,
			Output: []string{"0000000000101010"},
		},
		{
			Name:   "Spaced",
			Input:  `@  5`,
			Output: []string{"0000000000000101"},
		},
		{
			Name:   "Registers",
			Input:  "@SP\n@LCL\n@ARG\n@THIS\n@THAT",
			Output: []string{
				"0000000000000000",
				"0000000000000001",
				"0000000000000010",
				"0000000000000011",
				"0000000000000100",
			},
		},
		{
			Name:   "Memory Maps",
			Input:  "@SCREEN\n@KBD",
			Output: []string{
				"0100000000000000",
				"0110000000000000",
			},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "Empty",
			Input: `@`,
			Error: &assembler.EmptyAddressError{},
		},
		{
			Name:  "Empty Spaced",
			Input: `@    // nothing`,
			Error: &assembler.EmptyAddressError{},
		},
		{
			Name:  "Oversized",
			Input: `@32768`,
			Error: &assembler.AddressRangeError{},
		},
		{
			Name:  "Oversized Word",
			Input: `@65536`,
			Error: &assembler.AddressRangeError{},
		},
		{
			Name:  "Oversized Huge",
			Input: `@123456789012345678901234567890`,
			Error: &assembler.AddressRangeError{},
		},
	})
}

func TestPredefined(t *testing.T) {
	programs := []string{
		"",
		"(START)\nD=A\n",
		"@foo\n@bar\nM=D\n(END)\n@END\n0;JMP\n",
	}

	for name, addr := range assembler.PredefinedSymbols {
		for _, program := range programs {
			result, err := assembler.Assemble(program + "@" + name)

			if err != nil {
				t.Fatal(err)
			}

			lines := strings.Split(strings.TrimSuffix(result, "\n"), "\n")
			have := lines[len(lines)-1]

			if want := fmtWord(addr); have != want {
				t.Fatalf(
					"Predefined symbol mismatch\nwant:%s (%s)\nhave:%s",
					want, name, have,
				)
			}
		}
	}
}

// dest=comp;jump  |1|1|1|a|c c c c c c|d d d|j j j| Compute instruction
// --------------- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestCompute(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "Dest Comp",
			Input:  `D=A`,
			Output: []string{"111_0110000_010_000"},
		},
		{
			Name:   "Comp Jump",
			Input:  `0;JMP`,
			Output: []string{"111_0101010_000_111"},
		},
		{
			Name:   "Comp Only",
			Input:  `D+1`,
			Output: []string{"111_0011111_000_000"},
		},
		{
			Name:   "Dest Comp Jump",
			Input:  `MD=D-1;JNE`,
			Output: []string{"111_0001110_011_101"},
		},
		{
			Name:   "All Dest",
			Input:  `AMD=M+1`,
			Output: []string{"111_1110111_111_000"},
		},
		{
			Name:   "Memory Operand",
			Input:  "D=D|M\nM=!M\nD;JGT",
			Output: []string{
				"111_1010101_010_000",
				"111_1110001_001_000",
				"111_0001100_000_001",
			},
		},
		{
			Name:   "Spaced Fields",
			Input:  `  D = A ; JMP  // jump`,
			Output: []string{"111_0110000_010_111"},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "Bad Dest",
			Input: `X=D`,
			Error: &assembler.InvalidDestError{},
		},
		{
			Name:  "Unordered Dest",
			Input: `DM=A`,
			Error: &assembler.InvalidDestError{},
		},
		{
			Name:  "Lowercase Dest",
			Input: `d=A`,
			Error: &assembler.InvalidDestError{},
		},
		{
			Name:  "Bad Jump",
			Input: `D;JMPX`,
			Error: &assembler.InvalidJumpError{},
		},
		{
			Name:  "Double Jump",
			Input: `D;JGT;JLT`,
			Error: &assembler.InvalidJumpError{},
		},
		{
			Name:  "Bad Comp",
			Input: `D=X`,
			Error: &assembler.InvalidCompError{},
		},
		{
			Name:  "Unlisted Comp",
			Input: `D=A+D`,
			Error: &assembler.InvalidCompError{},
		},
		{
			Name:  "Empty Comp",
			Input: `D=;JMP`,
			Error: &assembler.InvalidCompError{},
		},
		{
			Name:  "Dest Before Jump",
			Input: `X=Y;ZZZ`,
			Error: &assembler.InvalidDestError{},
		},
		{
			Name:  "Jump Before Comp",
			Input: `D=Y;ZZZ`,
			Error: &assembler.InvalidJumpError{},
		},
		{
			Name:  "Unclosed Label",
			Input: `(LOOP`,
			Error: &assembler.InvalidCompError{},
		},
	})
}

func TestComputeFields(t *testing.T) {
	for dest, destBits := range assembler.DestTable {
		for comp, compBits := range assembler.CompTable {
			for jump, jumpBits := range assembler.JumpTable {
				statement := comp

				if len(dest) > 0 {
					statement = dest + "=" + statement
				}

				if len(jump) > 0 {
					statement = statement + ";" + jump
				}

				result, err := assembler.Assemble(statement)

				if err != nil {
					t.Fatal(err)
				}

				word := strings.TrimSuffix(result, "\n")

				if len(word) != 16 || word[:3] != "111" ||
					word[3:10] != compBits ||
					word[10:13] != destBits ||
					word[13:16] != jumpBits {
					t.Fatalf(
						"Field mismatch for %q\nwant:111 %s %s %s\nhave:%s",
						statement, compBits, destBits, jumpBits, word,
					)
				}
			}
		}
	}
}

func TestVariable(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:  "First Appearance Order",
			Input: "@foo\n@bar\n@foo",
			Output: []string{
				"0000000000010000",
				"0000000000010001",
				"0000000000010000",
			},
		},
		{
			Name:  "Label Reference",
			Input: "(LOOP)\n@LOOP\n@i\n0;JMP",
			Output: []string{
				"0000000000000000",
				"0000000000010000",
				"1110101010000111",
			},
		},
		{
			Name:  "Numeric Suffix",
			Input: "@R16\n@x1",
			Output: []string{
				"0000000000010000",
				"0000000000010001",
			},
		},
	})

	var builder strings.Builder
	for i := 0; i <= int(assembler.ADDRESS_MAX-assembler.VARIABLE_BASE); i++ {
		builder.WriteString("@v" + strconv.Itoa(i) + "\n")
	}

	t.Run("Last Variable", func(t *testing.T) {
		result, err := assembler.Assemble(builder.String())

		if err != nil {
			t.Fatal(err)
		}

		if !strings.HasSuffix(result, "0111111111111111\n") {
			t.Fatal("Last variable not allocated at 32767")
		}
	})

	testFail(t, []failCase{
		{
			Name:  "RAM Exhausted",
			Input: builder.String() + "@overflow",
			Error: &assembler.AddressRangeError{},
		},
	})
}

func TestLabel(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "Backwards Label",
			Input: `
			(LOOP)
				@LOOP
				0;JMP
			`,
			Output: []string{
				"0000000000000000",
				"1110101010000111",
			},
		},
		{
			Name: "Forwards Label",
			Input: `
			@END
			0;JMP
			(END)
				@END
				0;JMP
			`,
			Output: []string{
				"0000000000000010",
				"1110101010000111",
				"0000000000000010",
				"1110101010000111",
			},
		},
		{
			Name: "Shared Address",
			Input: `
			D=A
			(FIRST)
			(SECOND)
			@FIRST
			@SECOND
			`,
			Output: []string{
				"1110110000010000",
				"0000000000000001",
				"0000000000000001",
			},
		},
		{
			Name: "Label Before Use As Variable",
			Input: `
			@foo
			(foo)
			@bar
			`,
			Output: []string{
				"0000000000000001",
				"0000000000010000",
			},
		},
		{
			Name:   "Spaced Label",
			Input:  "( LOOP )\n@LOOP",
			Output: []string{"0000000000000000"},
		},
		{
			Name:   "Trailing Label",
			Input:  "D=A\n(END)",
			Output: []string{"1110110000010000"},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "Empty Label",
			Input: `()`,
			Error: &assembler.EmptyLabelError{},
		},
		{
			Name:  "Blank Label",
			Input: `(   )`,
			Error: &assembler.EmptyLabelError{},
		},
		{
			Name: "Duplicate Label",
			Input: `
			(LOOP)
				D=A
			(LOOP)
				0;JMP
			`,
			Error: &assembler.DuplicateLabelError{},
		},
		{
			Name:  "Predefined Label",
			Input: `(SCREEN)`,
			Error: &assembler.DuplicateLabelError{},
		},
		{
			Name:  "Register Label",
			Input: `(R0)`,
			Error: &assembler.DuplicateLabelError{},
		},
		{
			Name:  "Label Error Before Instruction Error",
			Input: "D=X\n()",
			Error: &assembler.EmptyLabelError{},
		},
	})
}

func TestComment(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "Comment",
			Input:  `// Lorem Ipsum`,
			Output: []string{},
		},
		{
			Name: "Comments With Statements",
			Input: `
			// Lorem Ipsum
			// Lorem Ipsum // Lorem Ipsum
			@0
			`,
			Output: []string{"0000000000000000"},
		},
		{
			Name: "Inline Comments",
			Input: `
			@1 // Lorem Ipsum
			D=A// Lorem Ipsum
			// @2
			`,
			Output: []string{
				"0000000000000001",
				"1110110000010000",
			},
		},
	})
}

func TestProgram(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "Add",
			Input: `
			// Computes R0 = 2 + 3
			@2
			D=A
			@3
			D=D+A
			@0
			M=D
			`,
			Output: []string{
				"0000000000000010",
				"1110110000010000",
				"0000000000000011",
				"1110000010010000",
				"0000000000000000",
				"1110001100001000",
			},
		},
		{
			Name: "Max",
			Input: `
			// R2 = max(R0, R1)
				@R0
				D=M
				@R1
				D=D-M
				@OUTPUT_FIRST
				D;JGT
				@R1
				D=M
				@OUTPUT_D
				0;JMP
			(OUTPUT_FIRST)
				@R0
				D=M
			(OUTPUT_D)
				@R2
				M=D
			(INFINITE_LOOP)
				@INFINITE_LOOP
				0;JMP
			`,
			Output: []string{
				"0000000000000000",
				"1111110000010000",
				"0000000000000001",
				"1111010011010000",
				"0000000000001010",
				"1110001100000001",
				"0000000000000001",
				"1111110000010000",
				"0000000000001100",
				"1110101010000111",
				"0000000000000000",
				"1111110000010000",
				"0000000000000010",
				"1110001100001000",
				"0000000000001110",
				"1110101010000111",
			},
		},
	})
}

func TestProgramSize(t *testing.T) {
	t.Run("Full ROM", func(t *testing.T) {
		source := strings.Repeat("D=A\n", assembler.ROM_SIZE)

		result, err := assembler.Assemble(source)

		if err != nil {
			t.Fatal(err)
		}

		if have := strings.Count(result, "\n"); have != assembler.ROM_SIZE {
			t.Fatalf(
				"Instruction count mismatch\nwant:%d\nhave:%d",
				assembler.ROM_SIZE,
				have,
			)
		}
	})

	testFail(t, []failCase{
		{
			Name:  "Oversized Binary",
			Input: strings.Repeat("D=A\n", assembler.ROM_SIZE+1),
			Error: &assembler.OversizedBinaryError{},
		},
	})
}

func TestEmptyProgram(t *testing.T) {
	result, err := assembler.Assemble("")

	if err != nil {
		t.Fatal(err)
	}

	if result != "\n" {
		t.Fatalf("Empty program mismatch\nwant:%q\nhave:%q", "\n", result)
	}
}

func TestIdempotence(t *testing.T) {
	source := "@i\nM=1\n(LOOP)\n@i\nD=M\n@n\nD=D-M\n@END\nD;JGT\n" +
		"@i\nM=M+1\n@LOOP\n0;JMP\n(END)\n@END\n0;JMP\n"

	first, err := assembler.Assemble(source)

	if err != nil {
		t.Fatal(err)
	}

	second, err := assembler.Assemble(source)

	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Fatalf("Repeated assembly differs\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := assembler.Assemble("@0\n\n   D=X // bad\n")

	tokenErr, ok := err.(assembler.TokenError)

	if !ok {
		t.Fatalf("Expected a positioned error\nhave:%T", err)
	}

	want := assembler.Cursor{Line: 3, Column: 4, Byte: 7, Size: 3, LineByte: 4}

	if have := tokenErr.GetPosition(); have != want {
		t.Fatalf("Error position mismatch\nwant:%+v\nhave:%+v", want, have)
	}

	compErr := err.(*assembler.InvalidCompError)

	if compErr.Received != "X" || compErr.Line != "D=X" {
		t.Fatalf(
			"Error context mismatch\nwant:X in D=X\nhave:%s in %s",
			compErr.Received,
			compErr.Line,
		)
	}
}

func TestDebugInfo(t *testing.T) {
	source := "@i\n" + // 0
		"(LOOP)\n" + // 3
		"(AGAIN)\n" + // 10
		"  M=M+1\n" + // 18
		"@LOOP\n" + // 26
		"@j\n" + // 32
		"0;JMP\n" // 35

	dbg := assembler.NewDebugInfo()

	if _, err := assembler.AssembleHackSource(strings.NewReader(source), dbg); err != nil {
		t.Fatal(err)
	}

	wantSymbols := map[uint16]int64{0: 0, 1: 18, 2: 26, 3: 32, 4: 35}
	wantLabels := map[string]uint16{"LOOP": 1, "AGAIN": 1}
	wantVariables := map[uint16]string{16: "i", 17: "j"}

	if !reflect.DeepEqual(dbg.Symbols, wantSymbols) {
		t.Errorf("Symbols mismatch\nwant:%v\nhave:%v", wantSymbols, dbg.Symbols)
	}

	if !reflect.DeepEqual(dbg.Labels, wantLabels) {
		t.Errorf("Labels mismatch\nwant:%v\nhave:%v", wantLabels, dbg.Labels)
	}

	if !reflect.DeepEqual(dbg.Variables, wantVariables) {
		t.Errorf("Variables mismatch\nwant:%v\nhave:%v", wantVariables, dbg.Variables)
	}
}

func TestDebugInfoUntouchedOnError(t *testing.T) {
	dbg := assembler.NewDebugInfo()

	_, err := assembler.AssembleHackSource(
		strings.NewReader("(START)\n@x\nD=X\n"), dbg,
	)

	if err == nil {
		t.Fatal("Expected an error")
	}

	if len(dbg.Symbols) != 0 || len(dbg.Labels) != 0 || len(dbg.Variables) != 0 {
		t.Fatalf("Debug info filled by failed run\nhave:%+v", dbg)
	}
}

func fmtWord(addr uint16) string {
	s := strconv.FormatUint(uint64(addr), 2)
	return strings.Repeat("0", 16-len(s)) + s
}
