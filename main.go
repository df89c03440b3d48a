// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/beevik/hbdb/asm"
	"github.com/beevik/hbdb/debugger"
	"github.com/beevik/hbdb/logger"
	"github.com/beevik/hbdb/vm"
	"github.com/beevik/term"
)

var (
	assemble string
	config   string
	script   string
	verbose  bool
)

func init() {
	flag.StringVar(&assemble, "a", "", "assemble file and exit")
	flag.StringVar(&config, "c", defaultConfig(), "settings file")
	flag.StringVar(&script, "x", "", "run debugger commands from file before prompting")
	flag.BoolVar(&verbose, "v", false, "verbose assembler output")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: hbdb [options] [program.src] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	// Do command-line assemble if requested.
	if assemble != "" {
		if _, err := assembleFile(assemble); err != nil {
			exitOnError(err)
		}
		os.Exit(0)
	}

	if err := run(); err != nil {
		exitOnError(err)
	}
}

func run() error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	cfg := vm.DefaultConfig()
	cfg.Name, cfg.Output = "target", os.Stdout
	target, err := vm.New(cfg)
	if err != nil {
		return err
	}
	defer target.Shutdown()

	// Load programs named on the command line.
	for _, filename := range flag.Args() {
		mod, err := assembleFile(filename)
		if err != nil {
			return err
		}
		if err := target.Load(mod); err != nil {
			return err
		}
	}

	ctx := debugger.WithRegistry(context.Background(), debugger.NewRegistry())
	s, err := attach(ctx, target, debugger.WithSettings(settings))
	if err != nil {
		return err
	}

	// Run commands contained in the startup script.
	if script != "" {
		file, err := os.Open(script)
		if err != nil {
			return err
		}
		err = s.RunCommands(file, os.Stdout)
		file.Close()
		if err != nil {
			return err
		}
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(s, c)

	// Run commands interactively.
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	err = s.EnterInteractive(ctx, os.Stdin, os.Stdout, interactive)
	if errors.Is(err, debugger.ErrExited) {
		err = nil
	}
	return err
}

func attach(ctx context.Context, target *vm.Machine, opts ...debugger.Option) (*debugger.Session, error) {
	r, ok := debugger.RegistryFrom(ctx)
	if !ok {
		return nil, errors.New("no debugger registry")
	}
	return r.Attach(target, opts...)
}

func assembleFile(filename string) (*vm.Module, error) {
	var options asm.Option
	if verbose {
		options |= asm.Verbose
	}

	a, err := asm.AssembleFile(filename, options, os.Stdout)
	if a != nil {
		for _, e := range a.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to assemble '%s': %w", filename, err)
	}
	logger.Logf("main", "assembled '%s'", filename)
	return a.Module, nil
}

// Load the settings file. A missing file at the default location is not an
// error.
func loadSettings() (*debugger.Settings, error) {
	if config == "" {
		return debugger.DefaultSettings(), nil
	}
	s, err := debugger.LoadSettingsFile(config)
	if errors.Is(err, fs.ErrNotExist) && config == defaultConfig() {
		return debugger.DefaultSettings(), nil
	}
	return s, err
}

func defaultConfig() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hbdb.toml")
}

func handleInterrupt(s *debugger.Session, c chan os.Signal) {
	for {
		<-c
		s.Break()
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
