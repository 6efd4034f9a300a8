// Package jobs reads the dynamic simulator's job descriptor, which names the
// network, dynamic-model, parameter and curve files of a case.
package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"gridcontg/internal/model"
	"gridcontg/internal/xmldoc"
)

// MalformedJobError reports a case directory without exactly one usable
// job descriptor.
type MalformedJobError struct {
	Dir        string
	Candidates []string
	Reason     string
}

func (e *MalformedJobError) Error() string {
	if len(e.Candidates) > 0 {
		return fmt.Sprintf("jobs: %s: %s (%s)", e.Dir, e.Reason, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("jobs: %s: %s", e.Dir, e.Reason)
}

// Paths are the files of one dynamic-simulator case, joined with the case
// directory.
type Paths struct {
	JobFile     string
	NetworkFile string
	DydFile     string
	ParFile     string
	CurveFile   string
}

// TimeParams are the simulation window and the instant of the base case's
// seed event.
type TimeParams struct {
	Start     float64
	Stop      float64
	EventTime float64
	HasEvent  bool
}

// Find returns the single job descriptor in dir: a *.jobs file or a file
// matching *JOB*.xml.
func Find(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &model.MissingFileError{Role: "case directory", Path: dir}
		}
		return "", fmt.Errorf("jobs: read %s: %w", dir, err)
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if isJobName(name) {
			found = append(found, name)
		}
	}
	sort.Strings(found)
	switch len(found) {
	case 0:
		return "", &MalformedJobError{Dir: dir, Reason: "no job descriptor"}
	case 1:
		return filepath.Join(dir, found[0]), nil
	default:
		return "", &MalformedJobError{Dir: dir, Candidates: found, Reason: "several job descriptors"}
	}
}

func isJobName(name string) bool {
	if ok, _ := filepath.Match("*.jobs", name); ok {
		return true
	}
	ok, _ := filepath.Match("*JOB*.xml", name)
	return ok
}

// GetPaths locates the job descriptor of dir and resolves the files of its
// last job entry. Every file must exist.
func GetPaths(dir string) (Paths, error) {
	job, jobFile, err := lastJob(dir)
	if err != nil {
		return Paths{}, err
	}
	p := Paths{
		JobFile:     jobFile,
		NetworkFile: joinAttr(dir, xmldoc.Path(job, "modeler", "network"), "iidmFile"),
		ParFile:     joinAttr(dir, xmldoc.Path(job, "modeler", "network"), "parFile"),
		DydFile:     joinAttr(dir, xmldoc.Path(job, "modeler", "dynModels"), "dydFile"),
		CurveFile:   joinAttr(dir, xmldoc.Path(job, "outputs", "curves"), "inputFile"),
	}
	for _, f := range []struct{ role, path string }{
		{"network", p.NetworkFile},
		{"dynamic model", p.DydFile},
		{"parameter", p.ParFile},
		{"curve", p.CurveFile},
	} {
		if f.path == "" {
			return Paths{}, &model.MissingFileError{Role: f.role, Path: "(not named by " + filepath.Base(jobFile) + ")"}
		}
		if _, err := os.Stat(f.path); err != nil {
			return Paths{}, &model.MissingFileError{Role: f.role, Path: f.path}
		}
	}
	return p, nil
}

// GetTimeParams returns the simulation window of the last job entry and the
// instant of the first seed event declared in the case.
func GetTimeParams(dir string) (TimeParams, error) {
	job, _, err := lastJob(dir)
	if err != nil {
		return TimeParams{}, err
	}
	var tp TimeParams
	if sim := xmldoc.Child(job, "simulation"); sim != nil {
		tp.Start = xmldoc.FloatOr0(sim, "startTime")
		tp.Stop = xmldoc.FloatOr0(sim, "stopTime")
	}
	paths, err := GetPaths(dir)
	if err != nil {
		return TimeParams{}, err
	}
	dyd, err := xmldoc.Load(paths.DydFile)
	if err != nil {
		return TimeParams{}, err
	}
	pars := map[string]*xmldoc.Document{}
	for _, ev := range EventModels(dyd.Root()) {
		parPath := EventParFile(dir, ev, paths.ParFile)
		par, ok := pars[parPath]
		if !ok {
			if par, err = xmldoc.Load(parPath); err != nil {
				return TimeParams{}, err
			}
			pars[parPath] = par
		}
		if t, ok := ParValue(par.Root(), xmldoc.Attr(ev, "parId"), "event_tEvent"); ok {
			tp.EventTime, tp.HasEvent = t, true
			break
		}
	}
	return tp, nil
}

func lastJob(dir string) (*etree.Element, string, error) {
	jobFile, err := Find(dir)
	if err != nil {
		return nil, "", err
	}
	doc, err := xmldoc.Load(jobFile)
	if err != nil {
		return nil, "", &MalformedJobError{Dir: dir, Candidates: []string{filepath.Base(jobFile)}, Reason: err.Error()}
	}
	jobList := xmldoc.Children(doc.Root(), "job")
	if len(jobList) == 0 {
		return nil, "", &MalformedJobError{Dir: dir, Candidates: []string{filepath.Base(jobFile)}, Reason: "no job entry"}
	}
	return jobList[len(jobList)-1], jobFile, nil
}

func joinAttr(dir string, e *etree.Element, key string) string {
	if e == nil {
		return ""
	}
	v := xmldoc.Attr(e, key)
	if v == "" {
		return ""
	}
	if filepath.IsAbs(v) {
		return v
	}
	return filepath.Join(dir, v)
}

// EventParFile returns the parameter file of an event model: its parFile
// attribute resolved against the case directory dir, else def.
func EventParFile(dir string, ev *etree.Element, def string) string {
	if p := joinAttr(dir, ev, "parFile"); p != "" {
		return p
	}
	return def
}

// EventLibPrefix starts the library name of every event model.
const EventLibPrefix = "Event"

// EventModels returns the blackBoxModel entries of a DYD tree whose library
// is an event, in document order.
func EventModels(dyd *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, bbm := range xmldoc.Children(dyd, "blackBoxModel") {
		if strings.HasPrefix(xmldoc.Attr(bbm, "lib"), EventLibPrefix) {
			out = append(out, bbm)
		}
	}
	return out
}

// ParSet returns the parameter set with the given id.
func ParSet(par *etree.Element, id string) *etree.Element {
	for _, set := range xmldoc.Children(par, "set") {
		if xmldoc.Attr(set, "id") == id {
			return set
		}
	}
	return nil
}

// ParRaw returns the literal value of a parameter in the set with the
// given id.
func ParRaw(par *etree.Element, setID, name string) (string, bool) {
	set := ParSet(par, setID)
	if set == nil {
		return "", false
	}
	for _, p := range xmldoc.Children(set, "par") {
		if xmldoc.Attr(p, "name") == name {
			return xmldoc.Attr(p, "value"), true
		}
	}
	return "", false
}

// ParValue reads a numeric parameter from the set with the given id.
func ParValue(par *etree.Element, setID, name string) (float64, bool) {
	raw, ok := ParRaw(par, setID, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return v, err == nil
}
