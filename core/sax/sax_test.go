package sax

import (
	"fmt"
	"strings"
	"testing"
)

// recordingHandler collects events as printable strings for assertions.
type recordingHandler struct {
	events []string
	failOn string // event name that should return an error, "" for none
}

func (h *recordingHandler) record(ev string) error {
	h.events = append(h.events, ev)
	if h.failOn != "" && strings.HasPrefix(ev, h.failOn) {
		return fmt.Errorf("handler refused %s", ev)
	}
	return nil
}

func (h *recordingHandler) StartDocument() error { return h.record("startdoc") }
func (h *recordingHandler) EndDocument() error   { return h.record("enddoc") }

func (h *recordingHandler) StartElement(el StartElement) error {
	ev := "open " + el.Prefixed
	for _, a := range el.Attrs {
		ev += fmt.Sprintf(" %s=%s", a.Name, a.Value)
	}
	return h.record(ev)
}

func (h *recordingHandler) EndElement(local string) error {
	return h.record("close " + local)
}

func (h *recordingHandler) Characters(data string) error {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil
	}
	return h.record("text " + data)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "flat document",
			input: `<Root><Row>1</Row><Row>2</Row></Root>`,
			want: []string{
				"startdoc",
				"open Root", "open Row", "text 1", "close Row",
				"open Row", "text 2", "close Row", "close Root",
				"enddoc",
			},
		},
		{
			name:  "attributes in document order",
			input: `<Root><Item id="7" unit="mm"/></Root>`,
			want: []string{
				"startdoc",
				"open Root", "open Item id=7 unit=mm", "close Item", "close Root",
				"enddoc",
			},
		},
		{
			name:  "prefixed names rebuilt",
			input: `<a:Root xmlns:a="urn:alpha"><a:Leaf>x</a:Leaf></a:Root>`,
			want: []string{
				"startdoc",
				"open a:Root", "open a:Leaf", "text x", "close Leaf", "close Root",
				"enddoc",
			},
		},
		{
			name:  "default namespace keeps local names",
			input: `<Root xmlns="urn:alpha"><Leaf>x</Leaf></Root>`,
			want: []string{
				"startdoc",
				"open Root", "open Leaf", "text x", "close Leaf", "close Root",
				"enddoc",
			},
		},
		{
			name:  "namespace declarations are not attributes",
			input: `<Root xmlns:a="urn:alpha" kept="yes"/>`,
			want: []string{
				"startdoc",
				"open Root kept=yes", "close Root",
				"enddoc",
			},
		},
		{
			name:  "predefined entities decoded",
			input: `<Root><V>a &amp; b &lt; c</V></Root>`,
			want: []string{
				"startdoc",
				"open Root", "open V", "text a & b < c", "close V", "close Root",
				"enddoc",
			},
		},
		{
			name:  "comments and instructions skipped",
			input: `<?xml version="1.0"?><!-- hi --><Root><?pi data?></Root>`,
			want: []string{
				"startdoc",
				"open Root", "close Root",
				"enddoc",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			if err := Parse(strings.NewReader(tt.input), h); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(h.events) != len(tt.want) {
				t.Fatalf("got %d events %v, want %d", len(h.events), h.events, len(tt.want))
			}
			for i := range tt.want {
				if h.events[i] != tt.want[i] {
					t.Errorf("event[%d] = %q, want %q", i, h.events[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	h := &recordingHandler{}
	err := Parse(strings.NewReader(`<Root><Open></Root>`), h)
	if err == nil {
		t.Fatal("Parse() should fail on mismatched tags")
	}
}

func TestParseHandlerErrorAborts(t *testing.T) {
	h := &recordingHandler{failOn: "open Row"}
	err := Parse(strings.NewReader(`<Root><Row>1</Row><Row>2</Row></Root>`), h)
	if err == nil {
		t.Fatal("Parse() should propagate the handler error")
	}
	for _, ev := range h.events {
		if ev == "text 1" {
			t.Error("parsing continued past the failing handler call")
		}
	}
}

func TestParseNestedPrefixOverride(t *testing.T) {
	input := `<a:Root xmlns:a="urn:alpha"><b:Inner xmlns:b="urn:alpha">x</b:Inner><a:Leaf>y</a:Leaf></a:Root>`
	h := &recordingHandler{}
	if err := Parse(strings.NewReader(input), h); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	var opens []string
	for _, ev := range h.events {
		if strings.HasPrefix(ev, "open ") {
			opens = append(opens, strings.TrimPrefix(ev, "open "))
		}
	}
	want := []string{"a:Root", "b:Inner", "a:Leaf"}
	if len(opens) != len(want) {
		t.Fatalf("opens = %v, want %v", opens, want)
	}
	for i := range want {
		if opens[i] != want[i] {
			t.Errorf("opens[%d] = %q, want %q", i, opens[i], want[i])
		}
	}
}
