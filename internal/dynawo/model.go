// Package dynawo reads and edits a dynamic-simulator case: the IIDM
// network, the dynamic models (DYD), their parameters (PAR) and the curve
// request (CRV) named by the case's job descriptor.
package dynawo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/beevik/etree"

	"golang.org/x/sync/errgroup"

	"gridcontg/internal/jobs"
	"gridcontg/internal/logging"
	"gridcontg/internal/model"
	"gridcontg/internal/xmldoc"
)

// Model is one dynamic-simulator case loaded in memory. The network tree
// is read-only; the DYD, PAR and CRV trees are edited per contingency.
type Model struct {
	label string
	base  string
	dir   string
	paths jobs.Paths

	network *xmldoc.Document
	dyd     *xmldoc.Document
	par     *xmldoc.Document
	crv     *xmldoc.Document
	// Parameter files of base events other than par, in DYD order.
	eventPars []*xmldoc.Document

	topo *Topology
	// staticId -> blackBoxModel id, for every non-event dynamic model.
	dynModels map[string]string

	log *slog.Logger
}

// Open loads the case in dir. base is the root of the whole base case;
// file paths written by the materializer are relative to it. The four
// files are parsed concurrently.
func Open(ctx context.Context, label, base, dir string) (*Model, error) {
	paths, err := jobs.GetPaths(dir)
	if err != nil {
		return nil, err
	}
	m := &Model{
		label: label,
		base:  base,
		dir:   dir,
		paths: paths,
		log:   logging.New("dynawo").With("model", label),
	}
	g, _ := errgroup.WithContext(ctx)
	for _, f := range []struct {
		dst  **xmldoc.Document
		path string
	}{
		{&m.network, paths.NetworkFile},
		{&m.dyd, paths.DydFile},
		{&m.par, paths.ParFile},
		{&m.crv, paths.CurveFile},
	} {
		g.Go(func() error {
			d, err := xmldoc.Load(f.path)
			if err != nil {
				return err
			}
			*f.dst = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dynawo: open %s: %w", dir, err)
	}
	if err := m.loadEventPars(); err != nil {
		return nil, fmt.Errorf("dynawo: open %s: %w", dir, err)
	}
	m.topo = newTopology(m.network.Root())
	m.dynModels = indexDynModels(m.dyd)
	m.log.Debug("case loaded", "dir", dir, "network", filepath.Base(paths.NetworkFile))
	return m, nil
}

// loadEventPars loads the parameter files that base events name besides
// the network one.
func (m *Model) loadEventPars() error {
	for _, bbm := range jobs.EventModels(m.dyd.Root()) {
		path := jobs.EventParFile(m.dir, bbm, m.paths.ParFile)
		if m.loadedPar(path) != nil {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return &model.MissingFileError{Role: "event parameter", Path: path}
		}
		d, err := xmldoc.Load(path)
		if err != nil {
			return err
		}
		m.eventPars = append(m.eventPars, d)
	}
	return nil
}

func (m *Model) loadedPar(path string) *xmldoc.Document {
	path = filepath.Clean(path)
	for _, d := range append([]*xmldoc.Document{m.par}, m.eventPars...) {
		if filepath.Clean(d.Path) == path {
			return d
		}
	}
	return nil
}

// eventPar returns the parameter tree holding the set of event model bbm.
func (m *Model) eventPar(bbm *etree.Element) (*etree.Element, error) {
	path := jobs.EventParFile(m.dir, bbm, m.paths.ParFile)
	d := m.loadedPar(path)
	if d == nil {
		return nil, fmt.Errorf("dynawo: event %q: parameter file %s was not loaded with the case",
			xmldoc.Attr(bbm, "id"), path)
	}
	return d.Root(), nil
}

func indexDynModels(dyd *xmldoc.Document) map[string]string {
	out := map[string]string{}
	for _, bbm := range xmldoc.Children(dyd.Root(), "blackBoxModel") {
		static := xmldoc.Attr(bbm, "staticId")
		if static == "" {
			continue
		}
		if _, dup := out[static]; !dup {
			out[static] = xmldoc.Attr(bbm, "id")
		}
	}
	return out
}

// Label names the model in logs and summaries.
func (m *Model) Label() string { return m.label }

// Paths returns the case files.
func (m *Model) Paths() jobs.Paths { return m.paths }

// Topology returns the network index.
func (m *Model) Topology() *Topology { return m.topo }

// Documents returns the trees edited per contingency.
func (m *Model) Documents() []*xmldoc.Document {
	return append([]*xmldoc.Document{m.dyd, m.par, m.crv}, m.eventPars...)
}

// MutableFiles returns the paths, relative to the base case, of the files
// rewritten per contingency.
func (m *Model) MutableFiles() []string {
	var out []string
	for _, d := range m.Documents() {
		out = append(out, m.rel(d.Path))
	}
	return out
}

// Write serializes the edited trees into caseDir at their base-relative
// locations.
func (m *Model) Write(caseDir string) error {
	for _, d := range m.Documents() {
		if err := d.WriteFile(filepath.Join(caseDir, m.rel(d.Path))); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) rel(path string) string {
	r, err := filepath.Rel(m.base, path)
	if err != nil {
		return filepath.Base(path)
	}
	return r
}
