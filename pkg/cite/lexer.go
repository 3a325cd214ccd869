package cite

import (
	"regexp"
	"strconv"
	"strings"
)

// The validator never runs naive split-on-period parsing. Generated answers
// are report-style markdown with headings, bullet lists, and inline [n]
// citation markers, so the text is tokenized in two passes: lines first
// (bullets normalized to line breaks), then sentence-ending punctuation
// within each line.

var (
	citationPattern = regexp.MustCompile(`\[(\d+)\]`)
	bulletPattern   = regexp.MustCompile(`[\x{2022}\x{2023}\x{25E6}]\s*|(?m)^\s*[-*]\s+`)
	blankRunPattern = regexp.MustCompile(`\n{2,}`)
	boundaryPattern = regexp.MustCompile(`([.!?])\s+`)
	wordPattern     = regexp.MustCompile(`\w+`)
)

// splitSentences breaks answer prose into sentences, tolerating bulleted and
// numbered report formatting.
func splitSentences(text string) []string {
	if text == "" {
		return nil
	}
	t := strings.ReplaceAll(text, "\r\n", "\n")
	t = bulletPattern.ReplaceAllString(t, "\n")
	t = blankRunPattern.ReplaceAllString(t, "\n")

	var sentences []string
	for _, line := range strings.Split(t, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Keep the terminating punctuation with its sentence.
		marked := boundaryPattern.ReplaceAllString(line, "$1\x00")
		for _, part := range strings.Split(marked, "\x00") {
			if part = strings.TrimSpace(part); part != "" {
				sentences = append(sentences, part)
			}
		}
	}
	return sentences
}

// extractCitations returns every [n] marker in the text, in order of
// appearance and including duplicates.
func extractCitations(text string) []int {
	var ids []int
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// stripCitations removes [n] markers so the bare claim text can be compared
// against source excerpts.
func stripCitations(text string) string {
	return strings.TrimSpace(citationPattern.ReplaceAllString(text, ""))
}

// isHeading reports whether the sentence is a markdown heading line.
func isHeading(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "#")
}

// isReferenceLine reports whether the sentence belongs to a references or
// bibliography section rather than the answer body.
func isReferenceLine(s string) bool {
	return strings.Contains(s, "References") || strings.Contains(s, "Bibliography")
}

// hasFactualSignal reports whether a sentence asserts something checkable: a
// numeral, a percentage, or a currency amount.
func hasFactualSignal(s string) bool {
	if strings.ContainsAny(s, "%$€£¥") {
		return true
	}
	return strings.ContainsAny(s, "0123456789")
}

// tokenize lowercases the text and returns its word tokens as a set.
func tokenize(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// truncate caps a string at n runes for compact reporting.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
