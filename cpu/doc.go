// Package cpu implements the processor and assembler for the LC-3 system.
//
// The CPU consists of a program counter (PC), eight 16-bit general-purpose
// registers (r0-r7), and the N/Z/P condition flags. It addresses a 64K word
// memory with the keyboard, display, and machine control registers mapped
// in at the top of the address space. The common trap service routines
// (GETC, OUT, PUTS, IN, PUTSP, HALT) are implemented natively.
//
// The assembler accepts LC-3 assembly language, extended with macros,
// equates, and compile-time expression evaluation.
package cpu
