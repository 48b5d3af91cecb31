package synthesis

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"clarion/internal/core"
	"clarion/internal/logger"
)

// citationPattern matches inline citations: [3] or [1, 4, 7].
var citationPattern = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`)

// passageLength caps the excerpt carried on each citation.
const passageLength = 200

// ValidateCitations extracts every bracket citation from the text and checks
// it against the source list. Valid indices are recorded as citations;
// out-of-range indices lose their brackets so a stray "[99]" degrades to a
// bare number instead of a dead link. Remapping to a different source is
// deliberately not attempted.
func ValidateCitations(text string, sources []core.RankedDoc) (string, []core.Citation) {
	var citations []core.Citation
	seen := make(map[int]bool)

	record := func(index int) {
		if seen[index] {
			return
		}
		seen[index] = true
		citations = append(citations, core.Citation{
			Index:    index,
			SourceID: sources[index-1].ID,
			Passage:  truncatePassage(sources[index-1].Excerpt),
		})
	}

	processed := citationPattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := strings.Trim(match, "[]")
		parts := strings.Split(inner, ",")

		var valid, invalid []string
		for _, part := range parts {
			part = strings.TrimSpace(part)
			index, err := strconv.Atoi(part)
			if err != nil {
				continue
			}
			if index >= 1 && index <= len(sources) {
				valid = append(valid, part)
				record(index)
			} else {
				invalid = append(invalid, part)
			}
		}

		if len(invalid) == 0 {
			return match
		}
		logger.Warn("stripping out-of-range citation", "citation", match, "sources", len(sources))
		if len(valid) == 0 {
			return strings.Join(invalid, ", ")
		}
		return "[" + strings.Join(valid, ", ") + "]"
	})

	return processed, citations
}

func truncatePassage(excerpt string) string {
	if len(excerpt) <= passageLength {
		return excerpt
	}
	// Back off to a rune boundary so the cut never emits invalid UTF-8
	cut := passageLength
	for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
		cut--
	}
	return excerpt[:cut]
}
