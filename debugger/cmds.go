// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugger

import "github.com/beevik/hbdb/command"

var cmds *command.Registry[*Session]

func init() {
	cmds = command.MustRegistry("hbdb", []command.Descriptor[*Session]{
		{
			Name:     "break",
			Shortcut: "b",
			Brief:    "Set a breakpoint",
			Description: "Set a breakpoint at a code address, at the entry" +
				" point of a routine, or at the first instruction on or after" +
				" a source line. If the location's code has not been loaded" +
				" yet, the breakpoint stays pending until it is. When a" +
				" condition is given, the breakpoint stops the program only" +
				" when the condition evaluates to a non-zero value.",
			Usage:   "break <address|routine|file:line> [if <expression>]",
			Handler: (*Session).cmdBreak,
		},
		{
			Name:     "tbreak",
			Shortcut: "t",
			Brief:    "Set a temporary breakpoint",
			Description: "Set a breakpoint that is deleted the first time" +
				" it is hit.",
			Usage:   "tbreak <address|routine|file:line>",
			Handler: (*Session).cmdTBreak,
		},
		{
			Name:     "delete",
			Shortcut: "d",
			Brief:    "Delete breakpoints",
			Description: "Delete the breakpoints with the given numbers, or" +
				" all breakpoints if no numbers are given.",
			Usage:   "delete [<number>...]",
			Handler: (*Session).cmdDelete,
		},
		{
			Name:        "enable",
			Shortcut:    "e",
			Brief:       "Enable breakpoints",
			Description: "Enable previously disabled breakpoints.",
			Usage:       "enable <number>...",
			Handler:     (*Session).cmdEnable,
		},
		{
			Name:  "disable",
			Brief: "Disable breakpoints",
			Description: "Disable breakpoints without deleting them. A" +
				" disabled breakpoint never stops the program.",
			Usage:   "disable <number>...",
			Handler: (*Session).cmdDisable,
		},
		{
			Name:  "condition",
			Brief: "Change a breakpoint's condition",
			Description: "Set the condition of a breakpoint. Without an" +
				" expression, the breakpoint becomes unconditional.",
			Usage:   "condition <number> [<expression>]",
			Handler: (*Session).cmdCondition,
		},
		{
			Name:        "info",
			Shortcut:    "i",
			Brief:       "List breakpoints",
			Description: "List all breakpoints with their state and hit counts.",
			Usage:       "info",
			Handler:     (*Session).cmdInfo,
		},
		{
			Name:     "continue",
			Shortcut: "c",
			Brief:    "Continue running the program",
			Description: "Resume the program until it hits a breakpoint," +
				" halts, or is interrupted with ctrl-C.",
			Usage:   "continue",
			Handler: (*Session).cmdContinue,
		},
		{
			Name:     "run",
			Shortcut: "r",
			Brief:    "Run the program from its entry point",
			Description: "Restart the program at its entry point, which is" +
				" the routine named main if one is loaded, and run it until it" +
				" hits a breakpoint, halts, or is interrupted.",
			Usage:   "run",
			Handler: (*Session).cmdRun,
		},
		{
			Name:     "step",
			Shortcut: "s",
			Brief:    "Step the program",
			Description: "Execute one or more instructions, displaying each" +
				" instruction reached. Stepping stops early at breakpoints.",
			Usage:   "step [<count>]",
			Handler: (*Session).cmdStep,
		},
		{
			Name:     "where",
			Shortcut: "w",
			Brief:    "Show the current position",
			Description: "Display the next instruction to execute, its" +
				" source position, and the contents of the value stack.",
			Usage:   "where",
			Handler: (*Session).cmdWhere,
		},
		{
			Name:     "print",
			Shortcut: "p",
			Brief:    "Evaluate an expression",
			Description: "Evaluate an expression. Expressions may refer to" +
				" the program's globals and routines and to pc, sp, tos and" +
				" depth.",
			Usage:   "print <expression>",
			Handler: (*Session).cmdPrint,
		},
		{
			Name:     "load",
			Shortcut: "l",
			Brief:    "Load a source file",
			Description: "Assemble a source file and load its routines into" +
				" the program. Pending breakpoints in the file are resolved.",
			Usage:   "load <filename>",
			Handler: (*Session).cmdLoad,
		},
		{
			Name:  "set",
			Brief: "Set a debugger setting or global",
			Description: "Display all debugger settings, or change the value" +
				" of a setting. If the name is not a setting, the program" +
				" global with that name is assigned.",
			Usage:   "set [<name> <value>]",
			Handler: (*Session).cmdSet,
		},
		{
			Name:        "history",
			Brief:       "Show command history",
			Description: "Display the most recently entered commands.",
			Usage:       "history",
			Handler:     (*Session).cmdHistory,
		},
		{
			Name:        "log",
			Brief:       "Show the debugger log",
			Description: "Display the most recent entries of the debugger log.",
			Usage:       "log [<count>]",
			Handler:     (*Session).cmdLog,
		},
		{
			Name:        "source",
			Brief:       "Run commands from a file",
			Description: "Read and execute debugger commands from a file.",
			Usage:       "source <filename>",
			Handler:     (*Session).cmdSource,
		},
		{
			Name:        "help",
			Shortcut:    "h",
			Brief:       "Display help",
			Description: "Display help for a command, or list all commands.",
			Usage:       "help [<command>]",
			Handler:     (*Session).cmdHelp,
		},
		{
			Name:        "quit",
			Shortcut:    "q",
			Brief:       "Quit the debugger",
			Description: "Stop debugging and leave the debugger.",
			Usage:       "quit",
			Handler:     (*Session).cmdQuit,
		},
	})
}
