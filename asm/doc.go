// Package asm implements a two pass macro assembler for the AVR instruction set.
//
// The first pass sizes every line, collects labels and constants, and defers
// forward references. The second pass re-evaluates every line with the first
// pass symbols as a baseline, encodes instructions for the selected device and
// checks that each line occupies the same place in both passes.
//
// Source files are read from an fs.FS. Macros, `.include` files and
// conditional blocks share a single explicit frame stack, so deep nesting is
// reported as a diagnostic instead of exhausting the Go stack.
package asm
