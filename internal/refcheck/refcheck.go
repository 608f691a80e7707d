// Package refcheck verifies the cross references of a qcML document:
// every *_ref attribute and every reference list must name the id of an
// element in the same document.
package refcheck

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

var allElements = xpath.MustCompile("//*")

// Elements whose text is a whitespace separated list of references
var refListElements = map[string]bool{
	"Assay_refs":  true,
	"ColumnIndex": true,
}

// id_refs names identification runs, not elements of the document
var externalRefAttrs = map[string]bool{
	"id_refs": true,
}

// Problem is a reference that could not be resolved cleanly
type Problem struct {
	Element string
	Attr    string
	Ref     string
}

func (p Problem) String() string {
	if p.Attr == "" {
		return fmt.Sprintf("<%s> %s", p.Element, p.Ref)
	}
	return fmt.Sprintf("<%s %s=%q>", p.Element, p.Attr, p.Ref)
}

// Report is the result of Check. Forward references point to an element
// that appears later in the document; they resolve but a streaming
// reader sees them before their target.
type Report struct {
	IDs        int
	Refs       int
	Dangling   []Problem
	Forward    []Problem
	Duplicates []Problem
}

// OK reports whether every reference resolves and ids are unique
func (r Report) OK() bool {
	return len(r.Dangling) == 0 && len(r.Duplicates) == 0
}

type reference struct {
	attr string
	ref  string
}

func references(n *xmlquery.Node) []reference {
	var refs []reference
	for _, a := range n.Attr {
		name := a.Name.Local
		if externalRefAttrs[name] {
			continue
		}
		switch {
		case strings.HasSuffix(name, "_ref"):
			if a.Value != "" {
				refs = append(refs, reference{attr: name, ref: a.Value})
			}
		case strings.HasSuffix(name, "_refs"):
			for _, f := range strings.Fields(a.Value) {
				refs = append(refs, reference{attr: name, ref: f})
			}
		}
	}
	if refListElements[n.Data] {
		for _, f := range strings.Fields(n.InnerText()) {
			refs = append(refs, reference{ref: f})
		}
	}
	return refs
}

// Check parses the document read from r and resolves its references
func Check(r io.Reader) (Report, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return Report{}, fmt.Errorf("refcheck: %w", err)
	}
	nodes := xmlquery.QuerySelectorAll(doc, allElements)

	var rep Report
	pos := make(map[string]int, len(nodes))
	for i, n := range nodes {
		id := n.SelectAttr("id")
		if id == "" {
			continue
		}
		if _, dup := pos[id]; dup {
			rep.Duplicates = append(rep.Duplicates, Problem{Element: n.Data, Attr: "id", Ref: id})
			continue
		}
		pos[id] = i
	}
	rep.IDs = len(pos)

	for i, n := range nodes {
		for _, ref := range references(n) {
			rep.Refs++
			p := Problem{Element: n.Data, Attr: ref.attr, Ref: ref.ref}
			j, ok := pos[ref.ref]
			switch {
			case !ok:
				rep.Dangling = append(rep.Dangling, p)
			case j > i:
				rep.Forward = append(rep.Forward, p)
			}
		}
	}
	return rep, nil
}
