// Package format renders command output as JSON, EDN or plain text.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	JSON = "json"
	EDN  = "edn"
	Text = "text"
)

// Lines is implemented by values that have a plain text rendering.
type Lines interface {
	TextLines() []string
}

// Write renders v in the requested format. An empty format means JSON.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", JSON:
		return WriteJSON(w, v, pretty)
	case EDN:
		return WriteEDN(w, v, pretty)
	case Text:
		return WriteText(w, v)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// WriteText prints one line per entry for Lines values and falls back to
// fmt's %v for anything else.
func WriteText(w io.Writer, v any) error {
	l, ok := v.(Lines)
	if !ok {
		_, err := fmt.Fprintln(w, v)
		return err
	}
	for _, line := range l.TextLines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
