// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/hbdb/command"
)

func stringToBool(s string) (bool, error) {
	s = strings.ToLower(s)
	switch s {
	case "0", "false", "off":
		return false, nil
	case "1", "true", "on":
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool value '%s'", s)
	}
}

func parseID(cmd, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, command.ParseErrorf(cmd, "invalid breakpoint number '%s'", s)
	}
	return id, nil
}

// Word-wrap text to fit within the wrap column, indenting every line.
func indentWrap(indent int, s string) string {
	const wrap = 76

	prefix := strings.Repeat(" ", indent)
	var b strings.Builder
	col := 0
	for _, w := range strings.Fields(s) {
		switch {
		case col == 0:
			b.WriteString(prefix)
			col = indent
		case col+1+len(w) > wrap:
			b.WriteString("\n")
			b.WriteString(prefix)
			col = indent
		default:
			b.WriteByte(' ')
			col++
		}
		b.WriteString(w)
		col += len(w)
	}
	return b.String()
}
