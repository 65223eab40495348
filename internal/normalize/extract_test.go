package normalize

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractNilAndEmpty(t *testing.T) {
	e := NewExtractor(DefaultKeyTable())
	cases := []any{nil, map[string]any{}, "", "   ", []any{}, "{}", json.RawMessage("[]"), 42.0, true}
	for _, c := range cases {
		if got := e.Extract(c); got != "" {
			t.Fatalf("Extract(%#v) = %q, want empty", c, got)
		}
	}
}

func TestExtractNestedNonPriorityKey(t *testing.T) {
	e := NewExtractor(DefaultKeyTable())
	body := `{"meta":{"job":{"payload":"iVBORw0KGgo="}}}`
	if got := e.Extract(body); got != "iVBORw0KGgo=" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractPrefersPriorityKey(t *testing.T) {
	e := NewExtractor(DefaultKeyTable())
	body := `{"aaa":"fallback","zzz":{"x":"deep"},"image":"preferred"}`
	if got := e.Extract(body); got != "preferred" {
		t.Fatalf("Extract = %q, want preferred", got)
	}
	m := map[string]any{"aaa": "fallback", "result": "preferred"}
	if got := e.Extract(m); got != "preferred" {
		t.Fatalf("Extract(map) = %q, want preferred", got)
	}
}

func TestExtractPriorityOrder(t *testing.T) {
	e := NewExtractor(DefaultKeyTable())
	body := `{"data":"third","image":"second","imageBase64":"first"}`
	if got := e.Extract(body); got != "first" {
		t.Fatalf("Extract = %q, want first", got)
	}
}

func TestExtractSkipsEmptyPriorityValue(t *testing.T) {
	e := NewExtractor(DefaultKeyTable())
	body := `{"image":"","output":null,"other":"found"}`
	if got := e.Extract(body); got != "found" {
		t.Fatalf("Extract = %q, want found", got)
	}
}

func TestExtractInsertionOrderForNonPriorityKeys(t *testing.T) {
	e := NewExtractor(DefaultKeyTable())
	body := `{"zeta":"first-in-document","alpha":"second-in-document"}`
	if got := e.Extract(body); got != "first-in-document" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractArraysInOrder(t *testing.T) {
	e := NewExtractor(DefaultKeyTable())
	body := `[null, {"n": 1}, {"url": "https://x.test/a.png"}, "later"]`
	if got := e.Extract(body); got != "https://x.test/a.png" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractEmbeddedJSONString(t *testing.T) {
	e := NewExtractor(DefaultKeyTable())
	body := map[string]any{"body": `{"processedBase64":"QUJD"}`}
	if got := e.Extract(body); got != "QUJD" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractInvalidJSONIsLiteral(t *testing.T) {
	e := NewExtractor(DefaultKeyTable())
	if got := e.Extract("  {not json  "); got != "{not json" {
		t.Fatalf("Extract = %q", got)
	}
	if got := e.Extract("  QUJD \n"); got != "QUJD" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractDepthCap(t *testing.T) {
	table := DefaultKeyTable()
	table.MaxDepth = 8
	e := NewExtractor(table)
	deep := strings.Repeat(`{"a":`, 50) + `"buried"` + strings.Repeat(`}`, 50)
	if got := e.Extract(deep); got != "" {
		t.Fatalf("Extract beyond depth cap = %q, want empty", got)
	}
	shallow := strings.Repeat(`{"a":`, 3) + `"near"` + strings.Repeat(`}`, 3)
	if got := e.Extract(shallow); got != "near" {
		t.Fatalf("Extract within cap = %q", got)
	}
}

func TestParseKeyTable(t *testing.T) {
	raw := []byte("version: \"2\"\nkeys:\n  - picture\n  - image\nmax_depth: 12\n")
	table, err := ParseKeyTable(raw)
	if err != nil {
		t.Fatalf("ParseKeyTable error: %v", err)
	}
	if table.Version != "2" || len(table.Keys) != 2 || table.MaxDepth != 12 {
		t.Fatalf("unexpected table: %+v", table)
	}
	e := NewExtractor(table)
	if got := e.Extract(`{"image":"b","picture":"a"}`); got != "a" {
		t.Fatalf("Extract = %q, want a", got)
	}
}

func TestParseKeyTableRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing version": "keys: [image]\n",
		"no keys":         "version: \"3\"\nkeys: []\n",
		"duplicate key":   "version: \"3\"\nkeys: [image, image]\n",
		"unknown field":   "version: \"3\"\nkeys: [image]\nextra: 1\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseKeyTable([]byte(raw)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
