// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugger

// A history is a bounded ring of previously entered command lines.
type history struct {
	lines []string
	start int // index of the oldest line
	count int
	total int // number of lines ever added
}

func newHistory(size int) *history {
	return &history{lines: make([]string, size)}
}

func (h *history) add(line string) {
	h.total++
	if len(h.lines) == 0 {
		return
	}
	if h.count < len(h.lines) {
		h.lines[(h.start+h.count)%len(h.lines)] = line
		h.count++
		return
	}
	h.lines[h.start] = line
	h.start = (h.start + 1) % len(h.lines)
}

// Call fn for every retained line, oldest first. The number passed to fn is
// the line's 1-based position among all lines ever added.
func (h *history) each(fn func(n int, line string)) {
	first := h.total - h.count + 1
	for i := 0; i < h.count; i++ {
		fn(first+i, h.lines[(h.start+i)%len(h.lines)])
	}
}

// Change the capacity, keeping the most recent lines.
func (h *history) resize(size int) {
	if size == len(h.lines) {
		return
	}
	var kept []string
	h.each(func(n int, line string) {
		kept = append(kept, line)
	})
	if len(kept) > size {
		kept = kept[len(kept)-size:]
	}

	total := h.total
	*h = history{lines: make([]string, size)}
	for _, line := range kept {
		h.add(line)
	}
	h.total = total
}

func (h *history) clear() {
	clear(h.lines)
	h.start, h.count = 0, 0
}
