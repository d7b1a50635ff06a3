// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/k0kubun/pp/v3"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/emulator"
	"github.com/ezrec/lc3/io"
	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var ErrInputExhausted = errors.New(f("input exhausted"))

// defines collects -D NAME=VALUE flags.
type defines map[string]string

func (d defines) String() string {
	return fmt.Sprintf("%v", map[string]string(d))
}

func (d defines) Set(text string) error {
	name, value, ok := strings.Cut(text, "=")
	if !ok || len(name) == 0 {
		return fmt.Errorf("%v: expected NAME=VALUE", text)
	}
	d[name] = value
	return nil
}

// awaitInput blocks until the program may find more keyboard input.
func awaitInput(ctx context.Context, tty *terminal, tape *io.Tape) (err error) {
	switch {
	case tape != nil:
		if tape.Ended() {
			err = ErrInputExhausted
		}
	case tty != nil:
		err = tty.Wait(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			err = errors.Join(ErrInputExhausted, err)
		}
	default:
		err = ErrInputExhausted
	}

	return
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() (err error) {
	var compile string
	var save bool
	var input string
	var output string
	var verbose bool
	var dump bool
	predefine := defines{}

	flag.StringVar(&compile, "c", "", ".asm file to assemble")
	flag.BoolVar(&save, "s", false, "Save the object image, do not execute")
	flag.StringVar(&input, "i", "-", "Keyboard input")
	flag.StringVar(&output, "o", "", ".obj file to write")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&dump, "dump", false, "Dump the machine state on exit")
	flag.Var(predefine, "D", "Predefine NAME=VALUE for the assembler")

	flag.Parse()

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	var prog *cpu.Program
	var img *cpu.Image

	switch {
	case len(compile) != 0 && flag.NArg() == 0:
		// Compile a new program.
		var inf *os.File
		inf, err = os.Open(compile)
		if err != nil {
			return
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		for key, value := range predefine {
			asm.Predefine(key, value)
		}
		prog, err = asm.Parse(inf)
		if err != nil {
			err = fmt.Errorf("%v: %w", compile, err)
			return
		}
		img = prog.Image()
	case len(compile) == 0 && flag.NArg() == 1:
		var inf *os.File
		inf, err = os.Open(flag.Arg(0))
		if err != nil {
			return
		}
		defer inf.Close()
		img, err = cpu.ReadImage(inf)
		if err != nil {
			err = fmt.Errorf("%v: %w", flag.Arg(0), err)
			return
		}
	default:
		flag.Usage()
		err = fmt.Errorf("%v: expected -c file.asm or one file.obj", os.Args[0])
		return
	}

	if len(output) != 0 {
		err = os.WriteFile(output, img.Bytes(), 0o644)
		if err != nil {
			return
		}
	}

	if save {
		return
	}

	var tty *terminal
	var tape *io.Tape
	if input == "-" {
		tty, err = openTerminal(os.Stdin)
		if err != nil {
			return
		}
		defer tty.Close()
		emu.Keyboard.Host = tty
	} else {
		var inf *os.File
		inf, err = os.Open(input)
		if err != nil {
			return
		}
		defer inf.Close()
		tape = &io.Tape{Input: inf}
		emu.Keyboard.Host = tape
	}

	if prog != nil {
		emu.LoadProgram(prog)
	} else {
		emu.LoadImage(img)
	}
	emu.Display.Output = os.Stdout

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for {
		err = emu.Run(ctx)
		if !errors.Is(err, emulator.ErrInputWait) {
			break
		}
		err = awaitInput(ctx, tty, tape)
		if err != nil {
			break
		}
	}

	if verbose {
		log.Printf("%v: %d instructions, %d bytes output", os.Args[0], emu.Cpu.Ticks, emu.Display.Sent)
	}

	if dump {
		pp.Fprintln(os.Stderr, emu.Snapshot())
	}

	if err == nil {
		err = emu.Display.Err()
	}

	return
}
