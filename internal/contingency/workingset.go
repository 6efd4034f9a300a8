// Package contingency drives the generation of contingency cases: it
// opens both models of a base case, matches and samples the devices of one
// class, then writes one case directory per selected device with that
// device disconnected in both models.
package contingency

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"gridcontg/internal/astre"
	"gridcontg/internal/dynawo"
	"gridcontg/internal/hades"
	"gridcontg/internal/model"
	"gridcontg/internal/xmldoc"
)

// Model is one simulator's view of the base case.
type Model interface {
	Label() string
	Extract(class model.Class) ([]model.Record, error)
	BusCatalog() model.Catalog
	// Documents returns the trees edited per case.
	Documents() []*xmldoc.Document
	// MutableFiles returns, relative to the base case, the files Write
	// rewrites.
	MutableFiles() []string
	Disconnect(rec model.Record, mode model.Mode) (int, error)
	AddCurves(buses []string) (int, error)
	Write(caseDir string) error
}

// Pairing names which two simulators are compared.
type Pairing string

const (
	PairAstre  Pairing = "astre"
	PairHades  Pairing = "hades"
	PairDynawo Pairing = "dynawo"
)

// Pairings returns every supported pairing.
func Pairings() []Pairing { return []Pairing{PairAstre, PairHades, PairDynawo} }

// ParsePairing validates a pairing name.
func ParsePairing(s string) (Pairing, error) {
	for _, p := range Pairings() {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("contingency: unknown pairing %q", s)
}

// WorkingSet owns the parsed trees of both models for the whole run.
// Cases edit the trees in place; Snapshot and Restore bracket each edit.
type WorkingSet struct {
	Pairing Pairing
	Base    string
	A, B    Model
}

// Open loads both models of the base case concurrently.
func Open(ctx context.Context, p Pairing, base string) (*WorkingSet, error) {
	ws := &WorkingSet{Pairing: p, Base: base}
	g, ctx := errgroup.WithContext(ctx)
	switch p {
	case PairAstre, PairHades:
		g.Go(func() error {
			m, err := dynawo.Open(ctx, "dynawo", base, base)
			if err != nil {
				return err
			}
			ws.A = m
			return nil
		})
		g.Go(func() error {
			if p == PairAstre {
				m, err := astre.Open(base)
				if err != nil {
					return err
				}
				ws.B = m
				return nil
			}
			m, err := hades.Open(base)
			if err != nil {
				return err
			}
			ws.B = m
			return nil
		})
	case PairDynawo:
		g.Go(func() error {
			m, err := dynawo.Open(ctx, "A", base, filepath.Join(base, "A"))
			if err != nil {
				return err
			}
			ws.A = m
			return nil
		})
		g.Go(func() error {
			m, err := dynawo.Open(ctx, "B", base, filepath.Join(base, "B"))
			if err != nil {
				return err
			}
			ws.B = m
			return nil
		})
	default:
		return nil, fmt.Errorf("contingency: unknown pairing %q", p)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ws, nil
}

// Snapshot is the saved state of every edited tree of a working set.
type Snapshot struct {
	docs []xmldoc.Snapshot
}

func (ws *WorkingSet) documents() []*xmldoc.Document {
	return append(ws.A.Documents(), ws.B.Documents()...)
}

// Snapshot captures both models.
func (ws *WorkingSet) Snapshot() Snapshot {
	docs := ws.documents()
	s := Snapshot{docs: make([]xmldoc.Snapshot, len(docs))}
	for i, d := range docs {
		s.docs[i] = d.Snapshot()
	}
	return s
}

// Restore puts both models back in the state captured by s.
func (ws *WorkingSet) Restore(s Snapshot) {
	for i, d := range ws.documents() {
		d.Restore(s.docs[i])
	}
}

// MutableFiles lists, without duplicates, the base-relative files either
// model rewrites.
func (ws *WorkingSet) MutableFiles() []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range append(ws.A.MutableFiles(), ws.B.MutableFiles()...) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// Write serializes both models into caseDir.
func (ws *WorkingSet) Write(caseDir string) error {
	if err := ws.A.Write(caseDir); err != nil {
		return err
	}
	return ws.B.Write(caseDir)
}
