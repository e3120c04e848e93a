package format

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// WriteEDN writes v as EDN. Values go through encoding/json first so json
// tags decide field names; object keys become keywords and canonical UUID
// strings become #uuid literals.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return err
	}

	var b strings.Builder
	p := ednPrinter{b: &b, pretty: pretty}
	p.value(tree, 0)
	b.WriteByte('\n')
	_, err = io.WriteString(w, b.String())
	return err
}

type ednPrinter struct {
	b      *strings.Builder
	pretty bool
}

func (p ednPrinter) value(v any, depth int) {
	switch t := v.(type) {
	case nil:
		p.b.WriteString("nil")
	case bool:
		p.b.WriteString(strconv.FormatBool(t))
	case float64:
		if t == float64(int64(t)) {
			p.b.WriteString(strconv.FormatInt(int64(t), 10))
		} else {
			p.b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		}
	case string:
		if isCanonicalUUID(t) {
			p.b.WriteString("#uuid ")
		}
		p.b.WriteString(strconv.Quote(t))
	case []any:
		p.open('[', len(t) > 0)
		for i, x := range t {
			p.sep(i, depth+1)
			p.value(x, depth+1)
		}
		p.close(']', len(t) > 0, depth)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		p.open('{', len(keys) > 0)
		for i, k := range keys {
			p.sep(i, depth+1)
			p.b.WriteString(keyword(k))
			p.b.WriteByte(' ')
			p.value(t[k], depth+1)
		}
		p.close('}', len(keys) > 0, depth)
	}
}

func (p ednPrinter) open(c byte, nonEmpty bool) {
	p.b.WriteByte(c)
	if p.pretty && nonEmpty {
		p.b.WriteByte('\n')
	}
}

func (p ednPrinter) sep(i, depth int) {
	switch {
	case p.pretty:
		if i > 0 {
			p.b.WriteByte('\n')
		}
		p.b.WriteString(strings.Repeat("  ", depth))
	case i > 0:
		p.b.WriteByte(' ')
	}
}

func (p ednPrinter) close(c byte, nonEmpty bool, depth int) {
	if p.pretty && nonEmpty {
		p.b.WriteByte('\n')
		p.b.WriteString(strings.Repeat("  ", depth))
	}
	p.b.WriteByte(c)
}

func keyword(k string) string {
	k = strings.Join(strings.Fields(k), "-")
	if k == "" {
		k = "_"
	}
	return ":" + k
}

func isCanonicalUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
