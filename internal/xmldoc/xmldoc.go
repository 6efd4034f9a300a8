// Package xmldoc loads simulator input files into mutable element trees and
// writes them back in the simulator's own textual conventions: the original
// XML declaration is kept verbatim and the body is re-encoded into the
// declared charset.
package xmldoc

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"gridcontg/internal/casefs"
)

var encodingAttr = regexp.MustCompile(`encoding\s*=\s*['"]([^'"]+)['"]`)

// Document is one parsed XML file.
type Document struct {
	Path    string
	Charset string
	tree    *etree.Document
}

// Snapshot is a frozen copy of a document tree.
type Snapshot struct {
	tree *etree.Document
}

// Load reads and parses the file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("xmldoc: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses data; path is kept for error messages and as the default
// write target.
func Parse(data []byte, path string) (*Document, error) {
	tree := etree.NewDocument()
	tree.ReadSettings.CharsetReader = charsetReader
	tree.ReadSettings.PreserveCData = true
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("xmldoc: parse %s: %w", path, err)
	}
	if tree.Root() == nil {
		return nil, fmt.Errorf("xmldoc: parse %s: no root element", path)
	}
	return &Document{Path: path, Charset: declaredCharset(tree), tree: tree}, nil
}

// Root returns the document element.
func (d *Document) Root() *etree.Element { return d.tree.Root() }

// Bytes serializes the document in its declared charset.
func (d *Document) Bytes() ([]byte, error) {
	raw, err := d.tree.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("xmldoc: serialize %s: %w", d.Path, err)
	}
	if isUTF8(d.Charset) {
		return raw, nil
	}
	enc, err := lookup(d.Charset)
	if err != nil {
		return nil, err
	}
	out, err := encoding.HTMLEscapeUnsupported(enc.NewEncoder()).Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("xmldoc: encode %s as %s: %w", d.Path, d.Charset, err)
	}
	return out, nil
}

// String returns the serialized document; used to compare trees.
func (d *Document) String() string {
	b, err := d.tree.WriteToString()
	if err != nil {
		return ""
	}
	return b
}

// WriteFile atomically replaces path with the serialized document.
func (d *Document) WriteFile(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	return casefs.WriteAtomic(path, data)
}

// Snapshot captures the current tree.
func (d *Document) Snapshot() Snapshot {
	return Snapshot{tree: d.tree.Copy()}
}

// Restore replaces the tree with a copy of s; s stays reusable.
func (d *Document) Restore(s Snapshot) {
	d.tree = s.tree.Copy()
}

func declaredCharset(tree *etree.Document) string {
	for _, tok := range tree.Child {
		pi, ok := tok.(*etree.ProcInst)
		if !ok || pi.Target != "xml" {
			continue
		}
		if m := encodingAttr.FindStringSubmatch(pi.Inst); m != nil {
			return m[1]
		}
	}
	return "UTF-8"
}

func isUTF8(label string) bool {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

func lookup(label string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("xmldoc: charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("xmldoc: charset %q not supported", label)
	}
	return enc, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if isUTF8(label) {
		return input, nil
	}
	enc, err := lookup(label)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}
