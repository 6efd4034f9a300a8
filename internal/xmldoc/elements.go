package xmldoc

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Elements are matched on their local name; namespace prefixes differ
// between simulator versions and are ignored on lookup.

// Children returns the direct children of e named tag.
func Children(e *etree.Element, tag string) []*etree.Element {
	if e == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first direct child of e named tag, or nil.
func Child(e *etree.Element, tag string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// Path follows a chain of first-match children.
func Path(e *etree.Element, tags ...string) *etree.Element {
	for _, t := range tags {
		e = Child(e, t)
		if e == nil {
			return nil
		}
	}
	return e
}

// Descendants returns every element below e named tag, in document order.
func Descendants(e *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(n *etree.Element) {
		for _, c := range n.ChildElements() {
			if c.Tag == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if e != nil {
		walk(e)
	}
	return out
}

// Attr returns the value of an unprefixed attribute, "" when absent.
func Attr(e *etree.Element, key string) string {
	return e.SelectAttrValue(key, "")
}

// HasAttr reports whether e carries the attribute.
func HasAttr(e *etree.Element, key string) bool {
	return e.SelectAttr(key) != nil
}

// Float parses a numeric attribute; ok is false when it is absent or not a
// number.
func Float(e *etree.Element, key string) (float64, bool) {
	a := e.SelectAttr(key)
	if a == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FloatOr0 parses a numeric attribute, returning 0 when it is missing.
func FloatOr0(e *etree.Element, key string) float64 {
	v, _ := Float(e, key)
	return v
}

// NewChild creates an element named tag under parent, using parent's
// namespace prefix, and appends it after the last child with the same
// indentation. attrs are key/value pairs, written in order.
func NewChild(parent *etree.Element, tag string, attrs ...string) *etree.Element {
	name := tag
	if parent.Space != "" {
		name = parent.Space + ":" + tag
	}
	el := etree.NewElement(name)
	for i := 0; i+1 < len(attrs); i += 2 {
		el.CreateAttr(attrs[i], attrs[i+1])
	}
	Append(parent, el)
	return el
}

// Append inserts child as the last element of parent, reusing the
// whitespace that precedes the existing last element. The first child of
// an empty element is indented one level deeper than its parent.
func Append(parent, child *etree.Element) {
	n := len(parent.Child)
	if n == 0 {
		outer := "\n"
		if gp := parent.Parent(); gp != nil {
			if i := parent.Index(); i > 0 {
				if cd, ok := gp.Child[i-1].(*etree.CharData); ok && cd.IsWhitespace() {
					outer = cd.Data
				}
			}
		}
		parent.AddChild(etree.NewText(outer + "  "))
		parent.AddChild(child)
		parent.AddChild(etree.NewText(outer))
		return
	}
	indent := "\n"
	for i := n - 1; i > 0; i-- {
		if _, ok := parent.Child[i].(*etree.Element); ok {
			if cd, ok := parent.Child[i-1].(*etree.CharData); ok && cd.IsWhitespace() {
				indent = cd.Data
			}
			break
		}
	}
	if cd, ok := parent.Child[n-1].(*etree.CharData); ok && cd.IsWhitespace() {
		parent.InsertChildAt(n-1, etree.NewText(indent))
		parent.InsertChildAt(n, child)
		return
	}
	parent.AddChild(etree.NewText(indent))
	parent.AddChild(child)
}

// Remove detaches e from its parent together with the whitespace that
// precedes it.
func Remove(e *etree.Element) {
	parent := e.Parent()
	if parent == nil {
		return
	}
	idx := e.Index()
	if idx > 0 {
		if cd, ok := parent.Child[idx-1].(*etree.CharData); ok && cd.IsWhitespace() {
			parent.RemoveChildAt(idx - 1)
		}
	}
	parent.RemoveChild(e)
}

// FormatFloat renders a float the way the simulators expect in attribute
// values: shortest representation, no exponent for ordinary magnitudes.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
