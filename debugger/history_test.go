package debugger

import (
	"slices"
	"testing"
)

func historyLines(h *history) (nums []int, lines []string) {
	h.each(func(n int, line string) {
		nums = append(nums, n)
		lines = append(lines, line)
	})
	return nums, lines
}

func TestHistoryRing(t *testing.T) {
	h := newHistory(3)
	for _, l := range []string{"a", "b", "c", "d", "e"} {
		h.add(l)
	}

	nums, lines := historyLines(h)
	if !slices.Equal(lines, []string{"c", "d", "e"}) {
		t.Errorf("lines incorrect. got: %v", lines)
	}
	if !slices.Equal(nums, []int{3, 4, 5}) {
		t.Errorf("numbers incorrect. got: %v", nums)
	}
}

func TestHistoryResize(t *testing.T) {
	h := newHistory(4)
	for _, l := range []string{"a", "b", "c", "d"} {
		h.add(l)
	}

	h.resize(2)
	nums, lines := historyLines(h)
	if !slices.Equal(lines, []string{"c", "d"}) || !slices.Equal(nums, []int{3, 4}) {
		t.Errorf("shrink incorrect. got: %v %v", nums, lines)
	}

	h.resize(3)
	h.add("e")
	_, lines = historyLines(h)
	if !slices.Equal(lines, []string{"c", "d", "e"}) {
		t.Errorf("grow incorrect. got: %v", lines)
	}

	h.resize(0)
	h.add("f")
	if _, lines = historyLines(h); len(lines) != 0 {
		t.Errorf("empty history kept %v", lines)
	}

	h.resize(2)
	h.add("g")
	h.clear()
	if _, lines = historyLines(h); len(lines) != 0 {
		t.Errorf("clear kept %v", lines)
	}
}
