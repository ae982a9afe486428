package text

import (
	"regexp"
	"strings"
)

// ParagraphMode selects which boundary counts as a paragraph break.
type ParagraphMode string

const (
	// ParagraphNewline treats every newline as a paragraph break.
	ParagraphNewline ParagraphMode = "newline"
	// ParagraphBlankLine only breaks on blank lines.
	ParagraphBlankLine ParagraphMode = "blank-line"
)

// DefaultMaxChunkLen is the soft upper bound on chunk length.
const DefaultMaxChunkLen = 200

// Chunk is one bounded-length text segment slated for a single
// synthesis invocation. Index is 1-based and orders chunks within a
// language.
type Chunk struct {
	Index int
	Text  string
}

var (
	blankLine = regexp.MustCompile(`\n[ \t]*\n+`)
	// A sentence ends at a run of terminators, optionally followed by a
	// closing quote or bracket.
	sentenceEnd = regexp.MustCompile(`[.!?]+["')\]»]?`)
)

// Split breaks cleaned text into chunks of at most maxLen characters.
// The maximum is a soft target: a single sentence longer than maxLen is
// emitted whole rather than cut mid-sentence. Empty input yields no
// chunks.
func Split(cleaned string, maxLen int, mode ParagraphMode) []Chunk {
	if maxLen <= 0 {
		maxLen = DefaultMaxChunkLen
	}

	var paragraphs []string
	switch mode {
	case ParagraphBlankLine:
		paragraphs = blankLine.Split(cleaned, -1)
	default:
		paragraphs = strings.Split(cleaned, "\n")
	}

	var chunks []Chunk
	for _, para := range paragraphs {
		para = Collapse(para)
		if para == "" {
			continue
		}
		if len(para) <= maxLen {
			chunks = appendChunk(chunks, para)
			continue
		}
		for _, packed := range packSentences(splitSentences(para), maxLen) {
			chunks = appendChunk(chunks, packed)
		}
	}
	return chunks
}

func appendChunk(chunks []Chunk, text string) []Chunk {
	return append(chunks, Chunk{Index: len(chunks) + 1, Text: text})
}

// splitSentences cuts a paragraph after each terminator run, keeping
// the terminators attached to their sentence.
func splitSentences(para string) []string {
	var sentences []string
	rest := para
	for rest != "" {
		loc := sentenceEnd.FindStringIndex(rest)
		if loc == nil {
			if s := strings.TrimSpace(rest); s != "" {
				sentences = append(sentences, s)
			}
			break
		}
		if s := strings.TrimSpace(rest[:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		rest = rest[loc[1]:]
	}
	return sentences
}

// packSentences greedily accumulates sentences into chunks. Adding a
// sentence costs its length plus one joining space; once that would
// exceed maxLen the current chunk is sealed.
func packSentences(sentences []string, maxLen int) []string {
	var packed []string
	var current strings.Builder
	for _, sentence := range sentences {
		if current.Len() == 0 {
			current.WriteString(sentence)
			continue
		}
		if current.Len()+1+len(sentence) <= maxLen {
			current.WriteByte(' ')
			current.WriteString(sentence)
			continue
		}
		packed = append(packed, current.String())
		current.Reset()
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		packed = append(packed, current.String())
	}
	return packed
}

// Rejoin reassembles chunk texts in index order, separated by blank
// lines. This is the prepared-text file format and the round-trip
// counterpart of Split.
func Rejoin(chunks []Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n\n")
}
