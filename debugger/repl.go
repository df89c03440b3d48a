// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugger

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/beevik/hbdb/logger"
)

// EnterInteractive stops the target and processes debugger commands read
// from r, writing results to w, until the quit command is entered, the
// input is exhausted, ctx is cancelled or the target shuts down. If
// interactive is true, a prompt is displayed before each command.
func (s *Session) EnterInteractive(ctx context.Context, r io.Reader, w io.Writer, interactive bool) error {
	if s.state == StateExited {
		return ErrExited
	}
	s.flags &^= flagEnter
	s.state = StateStopped
	logger.Log(s.tag, "entered interactive mode")

	return s.runCommands(ctx, r, w, interactive)
}

// RunCommands processes debugger commands read from r without displaying a
// prompt. It is used for startup scripts.
func (s *Session) RunCommands(r io.Reader, w io.Writer) error {
	if s.state == StateExited {
		return ErrExited
	}
	if s.state == StateRunning {
		s.state = StateStopped
	}
	return s.runCommands(context.Background(), r, w, false)
}

func (s *Session) runCommands(ctx context.Context, r io.Reader, w io.Writer, interactive bool) error {
	s.input = bufio.NewScanner(r)
	s.output = bufio.NewWriter(w)
	s.interactive = interactive

	if interactive && s.target.Steps() > 0 {
		s.displayPC()
	}

	defer func() { s.pending = nil }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.state == StateExited {
			return nil
		}

		if len(s.pending) > 0 {
			line := s.pending[0]
			s.pending = s.pending[1:]
			if err := s.execLine(line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				s.printf("ERROR: %v.\n", err)
			}
			continue
		}

		s.prompt()

		line, err := s.getLine()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if err := s.dispatchLine(line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			s.printf("ERROR: %v.\n", err)
		}
	}
}

func (s *Session) dispatchLine(line string) error {
	if s.state != StateRunning && s.state != StateStopped {
		return ErrExited
	}
	if strings.TrimSpace(line) != "" {
		s.history.add(strings.TrimSpace(line))
	}
	return s.dispatcher.Dispatch(s, line)
}

// Run a line queued by the source command. Queued lines are not recorded in
// the history and do not replace the repeatable command.
func (s *Session) execLine(line string) error {
	if s.state != StateRunning && s.state != StateStopped {
		return ErrExited
	}
	return s.dispatcher.Exec(s, line)
}

// Queue the commands of a script from r ahead of any lines already queued.
// Blank lines and lines starting with '#' are ignored.
func (s *Session) queueScript(r io.Reader) error {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	s.pending = append(lines, s.pending...)
	return nil
}

func (s *Session) getLine() (string, error) {
	if s.input.Scan() {
		return s.input.Text(), nil
	}
	if s.input.Err() != nil {
		return "", s.input.Err()
	}
	return "", io.EOF
}

func (s *Session) prompt() {
	if s.interactive {
		s.printf("%s", s.settings.Prompt)
	}
}
