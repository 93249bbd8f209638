package index

import (
	"strings"
	"unicode/utf8"
)

// Splitter cuts documents into overlapping chunks. Text is first split on
// Separator and the pieces are merged back up to Size characters; a piece
// longer than Size is windowed on word boundaries.
type Splitter struct {
	Size      int
	Overlap   int
	Separator string
}

// FAQSplitter matches the FAQ corpus: 500 characters, 50 overlap.
func FAQSplitter() Splitter { return Splitter{Size: 500, Overlap: 50, Separator: "\n\n"} }

// LeadSplitter matches uploaded lead corpora: 1000 characters, 100 overlap.
func LeadSplitter() Splitter { return Splitter{Size: 1000, Overlap: 100, Separator: "\n\n"} }

func (s Splitter) normalized() Splitter {
	if s.Size <= 0 {
		s.Size = 500
	}
	if s.Overlap < 0 || s.Overlap >= s.Size {
		s.Overlap = s.Size / 10
	}
	if s.Separator == "" {
		s.Separator = "\n\n"
	}
	return s
}

// Split returns the chunks of text in order. Blank input yields nil.
func (s Splitter) Split(text string) []string {
	s = s.normalized()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var pieces []string
	for _, p := range strings.Split(text, s.Separator) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(p) > s.Size {
			pieces = append(pieces, s.window(p)...)
			continue
		}
		pieces = append(pieces, p)
	}
	return s.merge(pieces)
}

// merge packs pieces into chunks no longer than Size, carrying trailing
// pieces of up to Overlap characters into the next chunk.
func (s Splitter) merge(pieces []string) []string {
	sepLen := len(s.Separator)
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, p := range pieces {
		extra := len(p)
		if len(current) > 0 {
			extra += sepLen
		}
		if total+extra > s.Size && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, s.Separator))
			for len(current) > 0 && (total > s.Overlap || total+len(p)+sepLen > s.Size) {
				total -= len(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, p)
		total += len(p)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, s.Separator))
	}
	return chunks
}

// window splits a long piece into Size windows broken at the last space,
// stepping back Overlap characters between windows. Cuts always fall on rune
// boundaries.
func (s Splitter) window(content string) []string {
	var out []string
	start := 0
	for start < len(content) {
		end := start + s.Size
		if end > len(content) {
			end = len(content)
		}
		if end < len(content) {
			end = runeStartBefore(content, end, start)
			if end == start {
				_, size := utf8.DecodeRuneInString(content[start:])
				end = start + size
			}
			if lastSpace := strings.LastIndex(content[start:end], " "); lastSpace > 0 {
				end = start + lastSpace
			}
		}

		if chunk := strings.TrimSpace(content[start:end]); chunk != "" {
			out = append(out, chunk)
		}
		if end >= len(content) {
			break
		}

		next := runeStartBefore(content, end-s.Overlap, start)
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// runeStartBefore moves i back to the nearest rune start, not below floor.
func runeStartBefore(content string, i, floor int) int {
	for i > floor && i < len(content) && !utf8.RuneStart(content[i]) {
		i--
	}
	return i
}
