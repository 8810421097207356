package processor

import (
	"fmt"
	"strings"
	"unicode"
)

type ProcessorConfig struct {
	ChunkSize     int // target chunk length in characters
	ChunkOverlap  int // trailing sentence overlap carried into the next chunk
	Abbreviations []string
}

type Processor struct {
	config ProcessorConfig
	abbrev map[string]bool
}

// Common abbreviations that end with a period but do not end a sentence.
func defaultAbbreviations() []string {
	return []string{
		"e.g.", "i.e.", "etc.", "vs.", "cf.",
		"dr.", "mr.", "mrs.", "ms.", "prof.", "sr.", "jr.", "st.",
		"fig.", "no.", "vol.", "approx.",
	}
}

func NewWithConfig(config ProcessorConfig) (Processor, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = 800
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 100
	}
	if config.ChunkOverlap >= config.ChunkSize {
		return Processor{}, fmt.Errorf("chunk overlap %d must be less than chunk size %d",
			config.ChunkOverlap, config.ChunkSize)
	}
	if len(config.Abbreviations) == 0 {
		config.Abbreviations = defaultAbbreviations()
	}

	abbrev := make(map[string]bool, len(config.Abbreviations))
	for _, a := range config.Abbreviations {
		abbrev[strings.ToLower(a)] = true
	}

	return Processor{
		config: config,
		abbrev: abbrev,
	}, nil
}

// Chunk splits text into chunks of whole sentences up to ChunkSize
// characters. Consecutive chunks share the trailing sentences of the
// previous chunk whose combined length fits in ChunkOverlap. A single
// sentence longer than ChunkSize becomes its own chunk. Empty input
// yields no chunks.
func (p *Processor) Chunk(text string) []string {
	sentences := p.splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	seedLen := 0 // leading sentences of current carried over as overlap

	flush := func() {
		chunks = append(chunks, strings.Join(current, " "))
	}

	for _, sentence := range sentences {
		// An oversized sentence stands alone, unsplit.
		if len(sentence) > p.config.ChunkSize {
			if len(current) > seedLen {
				flush()
			}
			chunks = append(chunks, sentence)
			current = nil
			seedLen = 0
			continue
		}

		if len(current) > seedLen && joinedLen(current)+1+len(sentence) > p.config.ChunkSize {
			flush()
			current = p.overlapTail(current)
			seedLen = len(current)
		}

		// Shed overlap carry-over that would leave no room for new content.
		for seedLen > 0 && len(current) == seedLen && joinedLen(current)+1+len(sentence) > p.config.ChunkSize {
			current = current[1:]
			seedLen--
		}

		current = append(current, sentence)
	}

	if len(current) > seedLen {
		flush()
	}

	return chunks
}

// splitIntoSentences breaks text on terminal punctuation followed by
// whitespace, except after known abbreviations. Whitespace runs are
// collapsed to single spaces first.
func (p *Processor) splitIntoSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	var sentences []string
	current := strings.Builder{}
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if !isTerminal(runes[i]) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if runes[i] == '.' && p.isAbbreviation(current.String()) {
			continue
		}

		sentences = append(sentences, strings.TrimSpace(current.String()))
		current.Reset()
		i++ // skip the boundary space
	}

	if rest := strings.TrimSpace(current.String()); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}

// isAbbreviation reports whether the text so far ends in an
// abbreviation like "e.g." or a single capital initial like "J.".
func (p *Processor) isAbbreviation(sofar string) bool {
	idx := strings.LastIndexByte(sofar, ' ')
	token := sofar[idx+1:]

	if p.abbrev[strings.ToLower(token)] {
		return true
	}

	// Single capital letter plus period, e.g. an initial in a name.
	tr := []rune(token)
	return len(tr) == 2 && unicode.IsUpper(tr[0]) && tr[1] == '.'
}

// overlapTail returns the trailing sentences whose combined length is
// within ChunkOverlap. Sentences are never truncated to fit.
func (p *Processor) overlapTail(sentences []string) []string {
	total := 0
	start := len(sentences)

	for i := len(sentences) - 1; i >= 0; i-- {
		add := len(sentences[i])
		if total > 0 {
			add++ // joining space
		}
		if total+add > p.config.ChunkOverlap {
			break
		}
		total += add
		start = i
	}

	if start == len(sentences) {
		return nil
	}
	return append([]string(nil), sentences[start:]...)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func joinedLen(sentences []string) int {
	if len(sentences) == 0 {
		return 0
	}
	total := len(sentences) - 1
	for _, s := range sentences {
		total += len(s)
	}
	return total
}
