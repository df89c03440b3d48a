// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/beevik/hbdb/asm"
	"github.com/beevik/hbdb/breakpoint"
	"github.com/beevik/hbdb/command"
	"github.com/beevik/hbdb/logger"
	"github.com/beevik/hbdb/vm"
	"github.com/beevik/prefixtree/v2"
)

func (s *Session) cmdBreak(args []string) error {
	if len(args) < 1 {
		s.displayUsage("break")
		return nil
	}

	var cond string
	if len(args) > 1 {
		if args[1] != "if" || len(args) < 3 {
			return command.ParseErrorf("break", "expected 'if <expression>' after location")
		}
		cond = strings.Join(args[2:], " ")
	}

	b, err := s.bps.AddConditional(args[0], cond)
	if err != nil {
		return err
	}
	s.reportAdded(b)
	return nil
}

func (s *Session) cmdTBreak(args []string) error {
	if len(args) != 1 {
		s.displayUsage("tbreak")
		return nil
	}

	b, err := s.bps.AddTemporary(args[0])
	if err != nil {
		return err
	}
	s.reportAdded(b)
	return nil
}

func (s *Session) reportAdded(b *breakpoint.Breakpoint) {
	kind := "Breakpoint"
	if b.Temporary {
		kind = "Temporary breakpoint"
	}

	if b.Location.IsResolved() {
		addr := b.Location.Addr
		s.printf("%s %d at $%04X%s.\n", kind, b.ID, addr, s.positionSuffix(addr))
	} else {
		s.printf("%s %d pending on '%s'.\n", kind, b.ID, b.Location.Spec)
	}
	logger.Logf(s.tag, "breakpoint %d added at %s", b.ID, b.Location)
}

func (s *Session) cmdDelete(args []string) error {
	if len(args) == 0 {
		s.bps.Clear()
		s.println("All breakpoints deleted.")
		return nil
	}

	ids, err := parseIDs("delete", args)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := s.bps.Get(id); !ok {
			return fmt.Errorf("%w: %d", breakpoint.ErrNotFound, id)
		}
	}
	for _, id := range ids {
		if err := s.bps.Remove(id); err != nil {
			return err
		}
		s.printf("Breakpoint %d deleted.\n", id)
	}
	return nil
}

func (s *Session) cmdEnable(args []string) error {
	return s.setEnabled("enable", args, true)
}

func (s *Session) cmdDisable(args []string) error {
	return s.setEnabled("disable", args, false)
}

func (s *Session) setEnabled(cmd string, args []string, enabled bool) error {
	if len(args) == 0 {
		s.displayUsage(cmd)
		return nil
	}

	ids, err := parseIDs(cmd, args)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if enabled {
			err = s.bps.Enable(id)
		} else {
			err = s.bps.Disable(id)
		}
		if err != nil {
			return err
		}
		s.printf("Breakpoint %d %sd.\n", id, cmd)
	}
	return nil
}

func (s *Session) cmdCondition(args []string) error {
	if len(args) < 1 {
		s.displayUsage("condition")
		return nil
	}

	id, err := parseID("condition", args[0])
	if err != nil {
		return err
	}

	cond := strings.Join(args[1:], " ")
	if err := s.bps.SetCondition(id, cond); err != nil {
		return err
	}
	if cond == "" {
		s.printf("Breakpoint %d is now unconditional.\n", id)
	} else {
		s.printf("Breakpoint %d condition set.\n", id)
	}
	return nil
}

func (s *Session) cmdInfo(args []string) error {
	if s.bps.Len() == 0 {
		s.println("No breakpoints.")
		return nil
	}

	s.println("Num  Type    Enb  Hits  Address  Where")
	s.println("---- ------- ---- ----- -------- -----")
	for b := range s.bps.List() {
		typ := "break"
		if b.Temporary {
			typ = "tbreak"
		}
		enb := "y"
		if !b.Enabled {
			enb = "n"
		}

		addr, where := "pending", b.Location.Spec
		if b.Location.IsResolved() {
			addr = fmt.Sprintf("$%04X", b.Location.Addr)
			if pos, ok := s.resolver.ReverseResolve(b.Location.Addr); ok {
				where = pos.String()
			}
		}

		s.printf("%-4d %-7s %-4s %-5d %-8s %s\n", b.ID, typ, enb, b.Hits, addr, where)
		if b.Condition != "" {
			s.printf("        if %s\n", b.Condition)
		}
	}
	return nil
}

func (s *Session) cmdContinue(args []string) error {
	return s.resume()
}

func (s *Session) cmdRun(args []string) error {
	entry, err := s.entryRoutine()
	if err != nil {
		return err
	}
	if err := s.target.Start(entry); err != nil {
		return err
	}

	s.printf("Running from $%04X. Press ctrl-C to break.\n", s.target.PC())
	return s.resume()
}

// Return the routine a program starts from.
func (s *Session) entryRoutine() (string, error) {
	if _, ok := s.target.Routine("main"); ok {
		return "main", nil
	}
	regions := s.target.Regions()
	if len(regions) == 0 {
		return "", vm.ErrNoProgram
	}
	return regions[0].Routine, nil
}

func (s *Session) cmdStep(args []string) error {
	count := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return command.ParseErrorf("step", "invalid count '%s'", args[0])
		}
		count = n
	}
	return s.step(count)
}

func (s *Session) cmdWhere(args []string) error {
	if len(s.target.Regions()) == 0 {
		s.println("No program loaded.")
		return nil
	}

	s.displayPC()

	stack := s.target.Stack()
	strs := make([]string, len(stack))
	for i, v := range stack {
		strs[i] = s.formatValue(v)
	}
	s.printf("Stack: [%s]  Depth: %d  Steps: %d\n", strings.Join(strs, " "), s.target.Depth(), s.target.Steps())
	return nil
}

func (s *Session) cmdPrint(args []string) error {
	if len(args) < 1 {
		s.displayUsage("print")
		return nil
	}

	v, err := s.Evaluate(strings.Join(args, " "))
	if err != nil {
		return err
	}
	s.println(s.formatValue(v))
	return nil
}

func (s *Session) formatValue(v int64) string {
	if s.settings.HexMode {
		if v < 0 {
			return fmt.Sprintf("-$%X", -v)
		}
		return fmt.Sprintf("$%X", v)
	}
	return strconv.FormatInt(v, 10)
}

func (s *Session) cmdLoad(args []string) error {
	if len(args) < 1 {
		s.displayUsage("load")
		return nil
	}

	filename := args[0]
	if filepath.Ext(filename) == "" {
		filename += ".src"
	}

	assembly, err := asm.AssembleFile(filename, 0, s.output)
	if err != nil {
		if assembly == nil {
			return err
		}
		s.printf("Failed to assemble '%s'.\n", filepath.Base(filename))
		for _, e := range assembly.Errors {
			s.println(e)
		}
		return nil
	}

	if err := s.target.Load(assembly.Module); err != nil {
		return err
	}
	s.printf("Loaded %d routines from '%s'.\n", len(assembly.Module.Routines), filepath.Base(filename))
	return nil
}

func (s *Session) cmdSet(args []string) error {
	switch len(args) {
	case 0:
		s.println("Settings:")
		s.settings.Display(s.output)
		s.flush()

	case 1:
		s.displayUsage("set")

	default:
		key, value := args[0], strings.Join(args[1:], " ")

		// Setting a debugger setting?
		kind, err := s.settings.Kind(key)
		switch {
		case errors.Is(err, prefixtree.ErrPrefixAmbiguous):
			return fmt.Errorf("ambiguous setting '%s'", key)
		case err != nil:
			return s.setGlobal(key, value)
		}

		switch kind {
		case reflect.String:
			err = s.settings.Set(key, value)
		case reflect.Bool:
			var v bool
			v, err = stringToBool(value)
			if err == nil {
				err = s.settings.Set(key, v)
			}
		default:
			var v int64
			v, err = s.Evaluate(value)
			if err == nil {
				err = s.settings.Set(key, v)
			}
		}
		if err != nil {
			return err
		}

		s.println("Setting updated.")
		s.onSettingsUpdate()
	}

	return nil
}

func (s *Session) setGlobal(name, value string) error {
	if !isGlobalName(name) {
		return fmt.Errorf("setting '%s' not found", name)
	}
	v, err := s.Evaluate(value)
	if err != nil {
		return err
	}
	s.target.SetGlobal(name, v)
	s.printf("Global %s set to %s.\n", name, s.formatValue(v))
	return nil
}

func isGlobalName(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' && !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && !(i > 0 && c >= '0' && c <= '9') {
			return false
		}
	}
	return s != ""
}

func (s *Session) cmdHistory(args []string) error {
	s.history.each(func(n int, line string) {
		s.printf("%5d  %s\n", n, line)
	})
	return nil
}

func (s *Session) cmdLog(args []string) error {
	n := 20
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			return command.ParseErrorf("log", "invalid count '%s'", args[0])
		}
		n = v
	}
	logger.Tail(s.output, n)
	s.flush()
	return nil
}

func (s *Session) cmdSource(args []string) error {
	if len(args) != 1 {
		s.displayUsage("source")
		return nil
	}

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()
	return s.queueScript(file)
}

func (s *Session) cmdHelp(args []string) error {
	if len(args) == 0 {
		s.displayCommands(cmds)
		return nil
	}

	c, err := cmds.Lookup(args[0])
	switch {
	case err == nil:
	case errors.Is(err, command.ErrUnknownCommand):
		return fmt.Errorf("%w '%s'", ErrNoHelpTopic, args[0])
	default:
		return err
	}

	if c.Usage != "" {
		s.printf("Syntax: %s\n\n", c.Usage)
	}
	switch {
	case c.Description != "":
		s.printf("Description:\n%s\n\n", indentWrap(3, c.Description))
	case c.Brief != "":
		s.printf("Description:\n%s.\n\n", indentWrap(3, c.Brief))
	}
	return nil
}

func (s *Session) cmdQuit(args []string) error {
	s.state = StateExited
	s.flags &^= flagRunning | flagEnter
	logger.Log(s.tag, "quit")
	return errQuit
}

func (s *Session) displayUsage(name string) {
	c, err := cmds.Lookup(name)
	if err == nil && c.Usage != "" {
		s.printf("Syntax: %s\n", c.Usage)
	} else {
		s.println("<no help text>")
	}
}

func (s *Session) displayCommands(reg *command.Registry[*Session]) {
	s.printf("%s commands:\n", reg.Title)
	for _, c := range reg.Commands() {
		name := c.Name
		if c.Shortcut != "" {
			name += " (" + c.Shortcut + ")"
		}
		s.printf("    %-15s  %s\n", name, c.Brief)
	}
}

func parseIDs(cmd string, args []string) ([]int, error) {
	ids := make([]int, len(args))
	for i, a := range args {
		id, err := parseID(cmd, a)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
