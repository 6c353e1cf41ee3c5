package sse

import (
	"bufio"
	"strings"
)

// frameParser accumulates `field: value` lines into an Event, following
// the standard SSE wire format: `id:`, `event:`, `data:`, `retry:`
// fields separated by blank lines; multi-line `data:` values concatenate
// with `\n`; unknown fields are ignored.
type frameParser struct {
	id, event, retry string
	dataLines        []string
}

func (p *frameParser) reset() {
	p.id, p.event, p.retry = "", "", ""
	p.dataLines = nil
}

func (p *frameParser) hasContent() bool {
	return p.id != "" || p.event != "" || p.retry != "" || len(p.dataLines) > 0
}

func (p *frameParser) feedLine(line string) (Event, bool) {
	if line == "" {
		if !p.hasContent() {
			return Event{}, false
		}
		evt := Event{ID: p.id, Event: p.event, Retry: p.retry, Data: strings.Join(p.dataLines, "\n")}
		p.reset()
		return evt, true
	}

	field, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")
	switch field {
	case "id":
		p.id = value
	case "event":
		p.event = value
	case "retry":
		p.retry = value
	case "data":
		p.dataLines = append(p.dataLines, value)
	default:
		// unknown fields are ignored
	}
	return Event{}, false
}

// parseStream reads SSE frames from r, invoking onEvent for each
// complete frame. It returns when the scanner hits EOF or an error, or
// when onEvent returns false (requesting the loop stop, e.g. on the
// consumer's own shutdown signal).
func parseStream(scanner *bufio.Scanner, onEvent func(Event) bool) {
	var parser frameParser
	for scanner.Scan() {
		line := scanner.Text()
		if evt, ok := parser.feedLine(line); ok {
			if !onEvent(evt) {
				return
			}
		}
	}
}
