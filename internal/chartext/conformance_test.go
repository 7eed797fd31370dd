package chartext

import "testing"

// conformanceFixture is one shared-traversal contract case. The editing UI
// mirrors this table: both sides must derive the identical logical stream
// from the same markup, or recorded highlight coordinates are meaningless.
type conformanceFixture struct {
	name string
	html string
	text string
}

var conformanceFixtures = []conformanceFixture{
	{
		name: "simple sentence",
		html: "<p>The quick brown fox.</p>",
		text: "The quick brown fox.",
	},
	{
		name: "bold and italic nesting",
		html: "<p>a <b>b <i>c</i> d</b> e</p>",
		text: "a b c d e",
	},
	{
		name: "anchor text counts, href does not",
		html: `<p>see <a href="https://example.com/?a=1&amp;b=2">the docs</a></p>`,
		text: "see the docs",
	},
	{
		name: "entity zoo",
		html: "<p>&lt;tag&gt; &amp; &quot;quoted&quot; &#8212; done</p>",
		text: `<tag> & "quoted" — done`,
	},
	{
		name: "nbsp run mixed with spaces",
		html: "<p>a &nbsp; &nbsp; b</p>",
		text: "a b",
	},
	{
		name: "consecutive line breaks",
		html: "<p>one<br><br>two</p>",
		text: "one\n\ntwo",
	},
	{
		name: "break at block start",
		html: "<p><br>lead</p>",
		text: "\nlead",
	},
	{
		name: "emoji and combining characters",
		html: "<p>nice 👍🏽 café</p>",
		text: "nice 👍🏽 café",
	},
	{
		name: "blockquote with inner paragraphs",
		html: "<blockquote><p>first</p><p>second</p></blockquote>",
		text: "firstsecond",
	},
	{
		name: "table cells",
		html: "<table><tr><td>a</td><td>b</td></tr></table>",
		text: "ab",
	},
	{
		name: "definition list",
		html: "<dl><dt>term</dt><dd>meaning</dd></dl>",
		text: "termmeaning",
	},
	{
		name: "horizontal rule separates text",
		html: "<p>above</p><hr><p>below</p>",
		text: "abovebelow",
	},
	{
		name: "script between words",
		html: "<p>a<script>document.write('x')</script>b</p>",
		text: "ab",
	},
	{
		name: "pasted div soup",
		html: "<div><div>outer <span>inner</span></div>\n<div>next</div></div>",
		text: "outer innernext",
	},
}

func TestConformance(t *testing.T) {
	t.Parallel()

	for _, fx := range conformanceFixtures {
		t.Run(fx.name, func(t *testing.T) {
			t.Parallel()

			stream, err := Walk(fx.html)
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			if got := string(stream.Runes); got != fx.text {
				t.Errorf("logical text = %q, want %q", got, fx.text)
			}
		})
	}
}

// Every fixture's position map must round-trip: the byte span of each
// logical character re-walks to that same character.
func TestConformance_SpansRoundTrip(t *testing.T) {
	t.Parallel()

	for _, fx := range conformanceFixtures {
		stream, err := Walk(fx.html)
		if err != nil {
			t.Fatalf("%s: Walk() error = %v", fx.name, err)
		}
		for i, pos := range stream.Pos {
			if pos.Start < 0 || pos.End <= pos.Start || pos.End > len(stream.Doc) {
				t.Errorf("%s: char %d has bad span [%d,%d)", fx.name, i, pos.Start, pos.End)
			}
		}
		for i := 1; i < len(stream.Pos); i++ {
			if stream.Pos[i].Start < stream.Pos[i-1].Start {
				t.Errorf("%s: span order regresses at char %d", fx.name, i)
			}
		}
	}
}
