// Package textstat counts characters in text.
package textstat

import (
	"strconv"
	"strings"
)

type CharCount struct {
	Char  rune `json:"char"`
	Count int  `json:"count"`
}

// Frequencies holds per-character counts in the order characters first appear.
type Frequencies struct {
	counts []CharCount
	index  map[rune]int
}

func CountCharFrequencies(s string) Frequencies {
	f := Frequencies{index: make(map[rune]int)}
	for _, r := range s {
		i, ok := f.index[r]
		if !ok {
			i = len(f.counts)
			f.index[r] = i
			f.counts = append(f.counts, CharCount{Char: r})
		}
		f.counts[i].Count++
	}
	return f
}

func (f Frequencies) Get(r rune) int {
	i, ok := f.index[r]
	if !ok {
		return 0
	}
	return f.counts[i].Count
}

func (f Frequencies) Len() int {
	return len(f.counts)
}

// Counts returns a copy of the ordered counts.
func (f Frequencies) Counts() []CharCount {
	out := make([]CharCount, len(f.counts))
	copy(out, f.counts)
	return out
}

func (f Frequencies) Map() map[rune]int {
	m := make(map[rune]int, len(f.counts))
	for _, c := range f.counts {
		m[c.Char] = c.Count
	}
	return m
}

// String renders the counts as a dictionary literal, e.g. {'j': 1, 's': 2}.
func (f Frequencies) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range f.counts {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteChar(c.Char))
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(c.Count))
	}
	b.WriteByte('}')
	return b.String()
}

func quoteChar(r rune) string {
	switch r {
	case '\'':
		return `"'"`
	case '\\':
		return `'\\'`
	case '\n':
		return `'\n'`
	case '\t':
		return `'\t'`
	case '\r':
		return `'\r'`
	}
	return "'" + string(r) + "'"
}
