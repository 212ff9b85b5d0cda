package export

import (
	"encoding/json"
	"errors"
	"strings"

	"audioscribe/internal/domain"
)

// ErrUnsupportedFormat is returned for unknown export format requests.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format selects an export rendering.
type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
	FormatSRT  Format = "srt"
)

// structuredResult is the json export payload.
type structuredResult struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Segments []domain.Segment `json:"segments"`
}

// Render produces the export artifact for a finished (or partial) task
// record in the requested format.
func Render(record domain.TaskRecord, format Format, opts ReflowOptions) (string, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatText:
		return record.ResultText, nil

	case FormatJSON:
		payload := structuredResult{
			ID:       record.ID,
			Text:     record.ResultText,
			Segments: record.Segments,
		}
		if payload.Segments == nil {
			payload.Segments = []domain.Segment{}
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil

	case FormatSRT:
		segments := record.Segments
		if len(segments) == 0 {
			segments = fallbackSegments(record.ResultText)
		}
		return RenderCues(Reflow(segments, opts)), nil

	default:
		return "", ErrUnsupportedFormat
	}
}

// fallbackSegments synthesizes a single segment from plain result text
// so text-only tasks still export subtitles.
func fallbackSegments(text string) []domain.Segment {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	endMillis := int64(len(strings.Fields(trimmed))) * 500
	if endMillis < 2000 {
		endMillis = 2000
	}
	return []domain.Segment{{
		Index:       0,
		StartMillis: 0,
		EndMillis:   endMillis,
		Text:        trimmed,
	}}
}
