package export

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"audioscribe/internal/domain"
)

// Cue is one subtitle-ready piece bounded by character and duration
// limits.
type Cue struct {
	Index       int
	StartMillis int64
	EndMillis   int64
	Text        string
}

// ReflowOptions bound cue length and duration during re-flow.
type ReflowOptions struct {
	MaxChars          int
	MaxDurationMillis int64
	MinDurationMillis int64
}

// DefaultReflowOptions returns the standard subtitle limits.
func DefaultReflowOptions() ReflowOptions {
	return ReflowOptions{
		MaxChars:          40,
		MaxDurationMillis: 6_000,
		MinDurationMillis: 800,
	}
}

const (
	synthesizedFloorMillis = 2_000
	readingMillisPerChar   = 25
)

// clausePattern matches runs terminated by sentence-ending or clause
// punctuation, keeping the punctuation with the preceding piece.
var clausePattern = regexp.MustCompile(`[^。！？!?…，,；;、\n]+[。！？!?…，,；;、]+|[^。！？!?…，,；;、\n]+`)

// Reflow transforms recognized segments into bounded subtitle cues.
// Cue numbering starts at 1 across the whole segment sequence. The sum
// of cue durations for each input segment equals the segment's original
// duration exactly.
func Reflow(segments []domain.Segment, opts ReflowOptions) []Cue {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultReflowOptions().MaxChars
	}
	if opts.MaxDurationMillis <= 0 {
		opts.MaxDurationMillis = DefaultReflowOptions().MaxDurationMillis
	}
	if opts.MinDurationMillis <= 0 {
		opts.MinDurationMillis = DefaultReflowOptions().MinDurationMillis
	}

	var cues []Cue
	for _, segment := range segments {
		for _, cue := range reflowSegment(segment, opts) {
			cue.Index = len(cues) + 1
			cues = append(cues, cue)
		}
	}
	return cues
}

// reflowSegment splits one segment into cues and distributes its
// duration across them.
func reflowSegment(segment domain.Segment, opts ReflowOptions) []Cue {
	start := segment.StartMillis
	end := segment.EndMillis
	if end <= start {
		end = start + synthesizeDurationMillis(segment.Text)
	}
	totalMillis := end - start

	pieces := splitPieces(segment.Text, opts.MaxChars)
	if len(pieces) == 0 {
		return nil
	}

	if len(pieces) == 1 &&
		utf8.RuneCountInString(pieces[0]) <= opts.MaxChars &&
		totalMillis <= opts.MaxDurationMillis {
		return []Cue{{StartMillis: start, EndMillis: end, Text: pieces[0]}}
	}

	durations := distributeDurations(pieces, totalMillis, opts.MinDurationMillis)

	cues := make([]Cue, 0, len(pieces))
	cursor := start
	for i, piece := range pieces {
		cue := Cue{
			StartMillis: cursor,
			EndMillis:   cursor + durations[i],
			Text:        piece,
		}
		cues = append(cues, cue)
		cursor = cue.EndMillis
	}
	return cues
}

// synthesizeDurationMillis estimates a display duration for a segment
// with no usable end time, scaling with text length.
func synthesizeDurationMillis(text string) int64 {
	estimated := int64(utf8.RuneCountInString(text)) * readingMillisPerChar
	if estimated < synthesizedFloorMillis {
		return synthesizedFloorMillis
	}
	return estimated
}

// splitPieces splits text by clause punctuation, then hard-splits any
// piece still longer than maxChars into fixed-size rune chunks.
func splitPieces(text string, maxChars int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	matches := clausePattern.FindAllString(trimmed, -1)
	if len(matches) == 0 {
		matches = []string{trimmed}
	}

	var pieces []string
	for _, match := range matches {
		piece := strings.TrimSpace(match)
		if piece == "" {
			continue
		}
		pieces = append(pieces, hardSplit(piece, maxChars)...)
	}
	return pieces
}

// hardSplit chops a piece into chunks of at most maxChars runes.
func hardSplit(piece string, maxChars int) []string {
	runes := []rune(piece)
	if len(runes) <= maxChars {
		return []string{piece}
	}

	var out []string
	for begin := 0; begin < len(runes); begin += maxChars {
		stop := begin + maxChars
		if stop > len(runes) {
			stop = len(runes)
		}
		out = append(out, string(runes[begin:stop]))
	}
	return out
}

// distributeDurations shares totalMillis across pieces proportionally
// to character length, clamps each piece to the minimum floor, then
// distributes the signed remainder one millisecond at a time so the sum
// matches totalMillis exactly.
func distributeDurations(pieces []string, totalMillis, minMillis int64) []int64 {
	totalChars := 0
	for _, piece := range pieces {
		totalChars += utf8.RuneCountInString(piece)
	}

	durations := make([]int64, len(pieces))
	for i, piece := range pieces {
		if totalChars > 0 {
			durations[i] = totalMillis * int64(utf8.RuneCountInString(piece)) / int64(totalChars)
		}
		if durations[i] < minMillis {
			durations[i] = minMillis
		}
	}

	var sum int64
	for _, d := range durations {
		sum += d
	}

	diff := totalMillis - sum
	step := int64(1)
	if diff < 0 {
		step = -1
	}
	for i := 0; diff != 0; i = (i + 1) % len(durations) {
		if step < 0 && durations[i] <= 0 {
			continue
		}
		durations[i] += step
		diff -= step
	}
	return durations
}

// FormatTimestamp renders a millisecond offset as HH:MM:SS,mmm.
func FormatTimestamp(millis int64) string {
	if millis < 0 {
		millis = 0
	}
	seconds, rem := millis/1000, millis%1000
	minutes, seconds := seconds/60, seconds%60
	hours, minutes := minutes/60, minutes%60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, rem)
}

// RenderCues renders numbered cues in SubRip form.
func RenderCues(cues []Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n",
			cue.Index,
			FormatTimestamp(cue.StartMillis),
			FormatTimestamp(cue.EndMillis),
			cue.Text,
		)
	}
	return b.String()
}
