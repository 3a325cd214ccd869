package ingest

import (
	"strings"
	"unicode"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoder is the tiktoken encoding used for chunk sizing.
const DefaultEncoder = "o200k_base"

// DefaultMaxTokens bounds one chunk of text sent to the extraction model.
const DefaultMaxTokens = 1200

// Chunk is one extraction-sized piece of a document.
type Chunk struct {
	ID    string
	Index int
	Text  string
}

// ChunkText splits document text into extraction-sized chunks along sentence
// boundaries. Sentences are accumulated until adding the next one would
// exceed maxTokens; a single oversized sentence becomes its own chunk.
func ChunkText(text string, encoder string, maxTokens int) ([]Chunk, error) {
	if encoder == "" {
		encoder = DefaultEncoder
	}
	if maxTokens < 1 {
		maxTokens = DefaultMaxTokens
	}
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []Chunk
	var current []string
	currentTokens := 0

	flush := func() error {
		if len(current) == 0 {
			return nil
		}
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		chunks = append(chunks, Chunk{
			ID:    id,
			Index: len(chunks),
			Text:  strings.Join(current, " "),
		})
		current = nil
		currentTokens = 0
		return nil
	}

	for _, sentence := range sentences {
		tokens := len(enc.Encode(sentence, nil, nil))
		if currentTokens+tokens > maxTokens && len(current) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		current = append(current, sentence)
		currentTokens += tokens
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// splitIntoSentences breaks document text into sentences. Blank lines always
// end a sentence; within a line, sentence-ending punctuation ends one unless
// it closes a numbered list marker like "1. ".
func splitIntoSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	emit := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emit()
			continue
		}
		for _, sentence := range splitLineIntoSentences(trimmed) {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(sentence)
			if endsSentence(sentence) {
				emit()
			}
		}
	}
	emit()

	return sentences
}

func endsSentence(s string) bool {
	s = strings.TrimRight(strings.TrimSpace(s), `"')]}`)
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

func splitLineIntoSentences(line string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}

		// "1. " style list markers are not sentence ends.
		if i > 0 && unicode.IsDigit(runes[i-1]) && i+1 < len(runes) && runes[i+1] == ' ' {
			continue
		}

		j := i + 1
		for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?') {
			current.WriteRune(runes[j])
			j++
		}
		for j < len(runes) && strings.ContainsRune(`"')]}`, runes[j]) {
			current.WriteRune(runes[j])
			j++
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
		i = j - 1
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
