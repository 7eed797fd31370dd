// Package carrier projects highlight regions back onto the serialized
// document and splices flat annotation carriers around them, one carrier
// per block, because the downstream converter silently deletes any inline
// element that straddles a block boundary.
package carrier

import (
	"errors"
	"fmt"
	stdhtml "html"
	"sort"
	"strconv"
	"strings"

	"github.com/MQFacultyOfArts/annotex/internal/chartext"
	"github.com/MQFacultyOfArts/annotex/internal/region"
	"github.com/MQFacultyOfArts/annotex/internal/texdoc"
)

// Sentinel errors for emission failures.
var (
	ErrUnknownTag      = errors.New("no colour configured for tag")
	ErrUnknownActive   = errors.New("active set references unknown highlight")
	ErrRangeOutOfBound = errors.New("region outside position map")
)

// Carrier attribute vocabulary, shared bit-exactly with the rendering
// filter. Pandoc's HTML reader strips the data- prefix, so the filter
// accepts both spellings.
const (
	AttrActiveSet = "data-annot"
	AttrColors    = "data-annot-colors"
	AttrNote      = "data-annot-note"
)

// Highlight carries the per-record fields the emitter needs to resolve
// colours and pre-render margin notes.
type Highlight struct {
	Index    int
	Start    int
	End      int
	Tag      string
	Author   string
	Comments []string
}

// Options configures emission.
type Options struct {
	// Colors maps a highlight tag to its configured colour name.
	Colors map[string]string
	// Citations optionally resolves a highlight's start index to a
	// reference label for the margin note.
	Citations func(start int) (string, bool)
}

// insertion is one pending splice into the serialized document.
type insertion struct {
	offset int
	open   bool
	text   string
}

// Emit returns the serialized document with carrier spans spliced around
// every highlighted range. A region crossing k block boundaries yields
// exactly k+1 carriers sharing one active set and colour list; only the
// last carrier of a region holds the margin notes of highlights ending
// there. Splices are applied in descending byte offset so earlier
// insertions never shift offsets still to be processed; output is
// byte-identical regardless of highlight input order.
func Emit(stream *chartext.Stream, regions []region.Region, highlights []Highlight, opts Options) (string, error) {
	byIndex := make(map[int]Highlight, len(highlights))
	for _, hl := range highlights {
		byIndex[hl.Index] = hl
	}

	var insertions []insertion
	for _, reg := range regions {
		if len(reg.Active) == 0 {
			continue
		}
		if reg.Start < 0 || reg.End > len(stream.Pos) {
			return "", fmt.Errorf("%w: [%d,%d) over %d characters", ErrRangeOutOfBound, reg.Start, reg.End, len(stream.Pos))
		}

		colors, err := colorList(reg.Active, byIndex, opts.Colors)
		if err != nil {
			return "", err
		}
		note, err := marginNote(reg, byIndex, colors, opts.Citations)
		if err != nil {
			return "", err
		}

		runs := splitByBlock(stream, reg)
		for i, r := range runs {
			carrierNote := ""
			if i == len(runs)-1 {
				carrierNote = note
			}
			insertions = append(insertions,
				insertion{offset: stream.Pos[r.from].Start, open: true, text: openTag(reg.Active, colors, carrierNote)},
				insertion{offset: stream.Pos[r.to-1].End, open: false, text: "</span>"},
			)
		}
	}

	// Descending offset; at equal offsets opens are spliced first so the
	// close of the preceding carrier ends up before the next open.
	sort.SliceStable(insertions, func(i, j int) bool {
		if insertions[i].offset != insertions[j].offset {
			return insertions[i].offset > insertions[j].offset
		}
		return insertions[i].open && !insertions[j].open
	})

	doc := stream.Doc
	for _, ins := range insertions {
		doc = doc[:ins.offset] + ins.text + doc[ins.offset:]
	}
	return doc, nil
}

// run is a maximal sub-range of a region inside a single block.
type run struct {
	from, to int // logical characters, [from, to)
}

// splitByBlock cuts a region at every block-ancestor change.
func splitByBlock(stream *chartext.Stream, reg region.Region) []run {
	var runs []run
	from := reg.Start
	for i := reg.Start + 1; i < reg.End; i++ {
		if stream.Pos[i].Block != stream.Pos[i-1].Block {
			runs = append(runs, run{from: from, to: i})
			from = i
		}
	}
	return append(runs, run{from: from, to: reg.End})
}

// colorList resolves each active highlight's tag to its configured colour,
// ordered by ascending highlight index. This fixes the nesting order the
// rendering filter applies.
func colorList(active []int, byIndex map[int]Highlight, colors map[string]string) ([]string, error) {
	out := make([]string, 0, len(active))
	for _, idx := range active {
		hl, ok := byIndex[idx]
		if !ok {
			return nil, fmt.Errorf("%w: index %d", ErrUnknownActive, idx)
		}
		color, ok := colors[hl.Tag]
		if !ok {
			return nil, fmt.Errorf("%w: highlight %d tag %q", ErrUnknownTag, idx, hl.Tag)
		}
		out = append(out, color)
	}
	return out, nil
}

// marginNote pre-renders the margin notes of every highlight ending at the
// region's end boundary, in ascending index order. The result is a
// complete print-markup fragment; the rendering filter emits it verbatim.
func marginNote(reg region.Region, byIndex map[int]Highlight, colors []string, cite func(int) (string, bool)) (string, error) {
	var b strings.Builder
	for i, idx := range reg.Active {
		hl, ok := byIndex[idx]
		if !ok {
			return "", fmt.Errorf("%w: index %d", ErrUnknownActive, idx)
		}
		if hl.End != reg.End {
			continue
		}
		b.WriteString(renderNote(hl, colors[i], cite))
	}
	return b.String(), nil
}

// renderNote builds one \annotnote command with fully escaped content.
func renderNote(hl Highlight, color string, cite func(int) (string, bool)) string {
	var b strings.Builder
	fmt.Fprintf(&b, `\textbf{%s}`, texdoc.Escape(hl.Tag))
	if hl.Author != "" {
		fmt.Fprintf(&b, ` (%s)`, texdoc.Escape(hl.Author))
	}
	if cite != nil {
		if label, ok := cite(hl.Start); ok {
			fmt.Fprintf(&b, ` \S%s`, texdoc.Escape(label))
		}
	}
	if len(hl.Comments) > 0 {
		escaped := make([]string, len(hl.Comments))
		for i, c := range hl.Comments {
			escaped[i] = texdoc.Escape(c)
		}
		fmt.Fprintf(&b, `: %s`, strings.Join(escaped, "; "))
	}
	return fmt.Sprintf(`\annotnote{%s}{%s}`, texdoc.DarkColor(color), b.String())
}

// openTag builds a carrier's opening markup.
func openTag(active []int, colors []string, note string) string {
	var b strings.Builder
	b.WriteString("<span ")
	b.WriteString(AttrActiveSet)
	b.WriteString(`="`)
	b.WriteString(joinInts(active))
	b.WriteString(`" `)
	b.WriteString(AttrColors)
	b.WriteString(`="`)
	b.WriteString(strings.Join(colors, ","))
	b.WriteString(`"`)
	if note != "" {
		b.WriteString(" ")
		b.WriteString(AttrNote)
		b.WriteString(`="`)
		b.WriteString(stdhtml.EscapeString(note))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	return b.String()
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}
