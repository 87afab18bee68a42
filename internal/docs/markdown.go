package docs

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	htmlImgSrc  = regexp.MustCompile(`(?i)<img\b[^>]*?\bsrc\s*=\s*["']([^"']+)["']`)
	htmlAnchor  = regexp.MustCompile(`(?i)<a\b[^>]*?\bhref\s*=\s*["']([^"']+)["']`)
	rosterSplit = []string{" — ", " – ", " - ", ": ", " | "}
)

// document is what the checks need from a parsed README
type document struct {
	images []string
	links  []string
	roster []RosterEntry
	// rosterFound is set when a heading containing "Team" was seen
	rosterFound bool
}

func newParser() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.Table, extension.Linkify))
}

func parse(src []byte) *document {
	root := newParser().Parser().Parse(text.NewReader(src))
	doc := &document{}

	seenImages := map[string]bool{}
	seenLinks := map[string]bool{}
	addImage := func(dest string) { addUnique(&doc.images, seenImages, dest) }
	addLink := func(dest string) { addUnique(&doc.links, seenLinks, dest) }
	scanRawHTML := func(raw string) {
		for _, m := range htmlImgSrc.FindAllStringSubmatch(raw, -1) {
			addImage(m[1])
		}
		for _, m := range htmlAnchor.FindAllStringSubmatch(raw, -1) {
			addLink(m[1])
		}
	}

	// a roster section runs from a heading containing "team" to the next
	// heading of the same or a higher level
	inRoster, rosterLevel := false, 0

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			title := strings.ToLower(inlineText(node, src))
			switch {
			case inRoster && node.Level > rosterLevel:
			case strings.Contains(title, "team"):
				inRoster, rosterLevel = true, node.Level
				doc.rosterFound = true
			default:
				inRoster = false
			}
		case *ast.Image:
			addImage(string(node.Destination))
		case *ast.Link:
			addLink(string(node.Destination))
		case *ast.AutoLink:
			if node.AutoLinkType == ast.AutoLinkURL {
				addLink(string(node.URL(src)))
			}
		case *ast.HTMLBlock:
			scanRawHTML(blockText(node, src))
		case *ast.RawHTML:
			var b strings.Builder
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				b.Write(seg.Value(src))
			}
			scanRawHTML(b.String())
		case *east.Table:
			if inRoster {
				doc.roster = append(doc.roster, tableRoster(node, src)...)
				return ast.WalkSkipChildren, nil
			}
		case *ast.ListItem:
			if inRoster {
				doc.roster = append(doc.roster, listRoster(node, src))
			}
		}
		return ast.WalkContinue, nil
	})

	return doc
}

func addUnique(dst *[]string, seen map[string]bool, v string) {
	v = strings.TrimSpace(v)
	if v == "" || seen[v] {
		return
	}
	seen[v] = true
	*dst = append(*dst, v)
}

// inlineText concatenates the text of n's inline descendants
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.List:
			// nested lists belong to their own items
			if c != n {
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func blockText(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

// tableRoster reads a roster table. Columns headed "name" and "role" (or
// "position") are used when present, otherwise the first two columns.
func tableRoster(table *east.Table, src []byte) []RosterEntry {
	nameCol, roleCol := 0, 1
	var out []RosterEntry

	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for td := row.FirstChild(); td != nil; td = td.NextSibling() {
			cells = append(cells, inlineText(td, src))
		}

		if _, isHeader := row.(*east.TableHeader); isHeader {
			for i, c := range cells {
				switch h := strings.ToLower(c); {
				case strings.Contains(h, "name"):
					nameCol = i
				case strings.Contains(h, "role"), strings.Contains(h, "position"):
					roleCol = i
				}
			}
			continue
		}

		out = append(out, RosterEntry{Name: cell(cells, nameCol), Role: cell(cells, roleCol)})
	}
	return out
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return strings.TrimSpace(cells[i])
	}
	return ""
}

// listRoster reads a list item of the form "Name - Role"
func listRoster(item *ast.ListItem, src []byte) RosterEntry {
	line := inlineText(item, src)
	for _, sep := range rosterSplit {
		if name, role, ok := strings.Cut(line, sep); ok {
			return RosterEntry{Name: strings.TrimSpace(name), Role: strings.TrimSpace(role)}
		}
	}
	return RosterEntry{Name: line}
}
