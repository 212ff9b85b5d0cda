package asr

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"audioscribe/internal/domain"
)

// sentencePattern matches maximal runs terminated by sentence-ending
// punctuation, keeping the punctuation with its sentence, plus any
// trailing unterminated fragment.
var sentencePattern = regexp.MustCompile(`[^。！？!?…\n]+[。！？!?…]+|[^。！？!?…\n]+`)

// splitSentences splits recognized chunk text into sentence-like units.
func splitSentences(text string) []string {
	if text == "" {
		return nil
	}

	matches := sentencePattern.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))
	for _, match := range matches {
		if trimmed := strings.TrimSpace(match); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// allocateTimestamps assigns start/end times to the chunk's sentences by
// proportional character-length interpolation across the chunk's real
// time span. The last sentence always ends exactly at endMillis; a
// non-monotonic intermediate result is forced forward by at least
// span/n (minimum 1ms), capped at endMillis. Segment indices continue
// from nextIndex.
func allocateTimestamps(sentences []string, startMillis, endMillis int64, nextIndex int) []domain.Segment {
	if len(sentences) == 0 {
		return nil
	}

	span := endMillis - startMillis
	total := len(sentences)
	totalChars := 0
	for _, sentence := range sentences {
		totalChars += utf8.RuneCountInString(sentence)
	}

	segments := make([]domain.Segment, 0, total)
	prevEnd := startMillis
	cumulativeChars := 0
	for k, sentence := range sentences {
		cumulativeChars += utf8.RuneCountInString(sentence)

		var currentEnd int64
		if totalChars > 0 && k < total-1 {
			fraction := float64(cumulativeChars) / float64(totalChars)
			currentEnd = startMillis + int64(math.Round(float64(span)*fraction))
		} else {
			currentEnd = endMillis
		}
		if currentEnd <= prevEnd {
			minStep := span / int64(total)
			if minStep < 1 {
				minStep = 1
			}
			currentEnd = prevEnd + minStep
			if currentEnd > endMillis {
				currentEnd = endMillis
			}
		}

		segments = append(segments, domain.Segment{
			Index:       nextIndex + k,
			StartMillis: prevEnd,
			EndMillis:   currentEnd,
			Text:        sentence,
		})
		prevEnd = currentEnd
	}
	return segments
}

// joinSegmentText recomputes the running transcript from accumulated
// segments, joined with single spaces.
func joinSegmentText(segments []domain.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		parts = append(parts, segment.Text)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
