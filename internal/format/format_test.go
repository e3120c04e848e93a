package format

import (
	"bytes"
	"strings"
	"testing"
)

type row struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type rows []row

func (r rows) TextLines() []string {
	out := make([]string, 0, len(r))
	for _, x := range r {
		out = append(out, x.Value+" ("+x.ID+")")
	}
	return out
}

const sampleID = "0b7f0c3e-8d7a-4a52-9b1e-2f6f4c1d9a10"

func TestWriteEDN_KeywordsAndUUIDTags(t *testing.T) {
	var b bytes.Buffer
	if err := Write(&b, map[string]any{"items": rows{{ID: sampleID, Value: "great"}}, "version": 2}, EDN, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := `{:items [{:id #uuid "` + sampleID + `" :value "great"}] :version 2}` + "\n"
	if b.String() != want {
		t.Fatalf("got  %q\nwant %q", b.String(), want)
	}
}

func TestWriteEDN_PrettyIndents(t *testing.T) {
	var b bytes.Buffer
	if err := WriteEDN(&b, map[string]any{"a": []any{1, "x"}, "b": map[string]any{}}, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "{\n  :a [\n    1\n    \"x\"\n  ]\n  :b {}\n}\n"
	if b.String() != want {
		t.Fatalf("got  %q\nwant %q", b.String(), want)
	}
}

func TestWrite_TextUsesLines(t *testing.T) {
	var b bytes.Buffer
	if err := Write(&b, rows{{ID: "1", Value: "great"}, {ID: "2", Value: "amasing"}}, "TEXT", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if b.String() != "great (1)\namasing (2)\n" {
		t.Fatalf("unexpected text: %q", b.String())
	}
}

func TestWrite_JSONDoesNotEscapeHTML(t *testing.T) {
	var b bytes.Buffer
	if err := Write(&b, row{ID: "1", Value: "<b>"}, "", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.TrimSpace(b.String()) != `{"id":"1","value":"<b>"}` {
		t.Fatalf("unexpected json: %q", b.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "yaml", false); err == nil {
		t.Fatalf("expected error")
	}
}
