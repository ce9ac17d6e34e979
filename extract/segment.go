package extract

import (
	"regexp"
	"strings"
)

// Segment is one unit of a deterministically segmented response: a title and
// the body text under it. Produced when structured extraction fails so that
// some deliverable can always be built from a non-empty response.
type Segment struct {
	Title string
	Body  string
}

var (
	markdownHeader = regexp.MustCompile(`(?m)^#{1,4}\s+(.+)$`)
	capsLabel      = regexp.MustCompile(`(?m)^([A-Z][A-Z0-9 /&-]{2,60}):?\s*$`)
	numberedItem   = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+(.+)$`)
)

// Segments splits generated text into titled sections using a cascade of
// heuristics: markdown-style headers first, then all-caps section labels,
// then numbered list items. As a last resort the entire text becomes one
// segment, so any non-empty input yields at least one segment.
func Segments(text string) []Segment {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if segs := splitByPattern(trimmed, markdownHeader); len(segs) > 0 {
		return segs
	}
	if segs := splitByPattern(trimmed, capsLabel); len(segs) > 0 {
		return segs
	}
	if segs := splitNumbered(trimmed); len(segs) > 0 {
		return segs
	}

	return []Segment{{Title: firstLine(trimmed), Body: trimmed}}
}

// splitByPattern cuts the text at every match of re, using the captured
// group as the segment title and the text up to the next match as the body.
// Returns nil when fewer than one match exists or when any segment would
// have an empty body.
func splitByPattern(text string, re *regexp.Regexp) []Segment {
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var segs []Segment
	for i, loc := range locs {
		title := strings.TrimSpace(text[loc[2]:loc[3]])
		bodyStart := loc[1]
		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(text[bodyStart:bodyEnd])
		if body == "" {
			continue
		}
		segs = append(segs, Segment{Title: title, Body: body})
	}
	return segs
}

// splitNumbered treats each numbered list item as its own segment, with the
// item text serving as both title seed and body.
func splitNumbered(text string) []Segment {
	locs := numberedItem.FindAllStringSubmatchIndex(text, -1)
	if len(locs) < 2 {
		return nil
	}

	var segs []Segment
	for i, loc := range locs {
		itemStart := loc[2]
		itemEnd := len(text)
		if i+1 < len(locs) {
			itemEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(text[itemStart:itemEnd])
		if body == "" {
			continue
		}
		segs = append(segs, Segment{Title: firstLine(body), Body: body})
	}
	return segs
}

// firstLine returns the first line of text truncated to a title-sized span.
func firstLine(text string) string {
	line := text
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		line = text[:nl]
	}
	line = strings.TrimSpace(line)
	const maxTitle = 80
	if len(line) > maxTitle {
		line = strings.TrimSpace(line[:maxTitle])
	}
	return line
}
