package dynawo

import (
	"fmt"
	"path/filepath"

	"gridcontg/internal/jobs"
	"gridcontg/internal/model"
	"gridcontg/internal/xmldoc"
)

// EventParSet is the parameter set id of every generated event.
const EventParSet = "99991234"

// NetworkModel is the id the DYD uses for the static network.
const NetworkModel = "NETWORK"

type connect struct {
	var1, id2, var2 string
}

type param struct {
	typ, name, value string
}

// event is the block a strategy asks to declare: one blackBoxModel, its
// connections and its parameters (besides the event time).
type event struct {
	lib      string
	connects []connect
	params   []param
}

type strategy func(rec model.Record, mode model.Mode) (event, error)

// strategies maps a device kind to the way it is disconnected.
var strategies = map[model.Kind]strategy{
	{Subtype: model.Line}:                          branchEvent,
	{Subtype: model.Transformer}:                   branchEvent,
	{Subtype: model.PhaseShifter}:                  branchEvent,
	{Subtype: model.BusBar}:                        statusEvent,
	{Subtype: model.Gen}:                           statusEvent,
	{Subtype: model.Gen, HasDynModel: true}:        switchOffEvent("generator_switchOffSignal2"),
	{Subtype: model.SingleLoad}:                    statusEvent,
	{Subtype: model.SingleLoad, HasDynModel: true}: switchOffEvent("load_switchOffSignal2"),
	{Subtype: model.LoadGroup}:                     loadGroupEvent,
	{Subtype: model.ShuntComp}:                     statusEvent,
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func branchEvent(rec model.Record, mode model.Mode) (event, error) {
	return event{
		lib:      "EventQuadripoleDisconnection",
		connects: []connect{{"event_state1_value", NetworkModel, rec.Name + "_state_value"}},
		params: []param{
			{"BOOL", "event_disconnectOrigin", boolString(mode.Opens(model.SideFrom))},
			{"BOOL", "event_disconnectExtremity", boolString(mode.Opens(model.SideTo))},
		},
	}, nil
}

func statusEvent(rec model.Record, _ model.Mode) (event, error) {
	return event{
		lib:      "EventConnectedStatus",
		connects: []connect{{"event_state1_value", NetworkModel, rec.Name + "_state_value"}},
		params:   []param{{"BOOL", "event_open", "true"}},
	}, nil
}

func switchOffEvent(signal string) strategy {
	return func(rec model.Record, _ model.Mode) (event, error) {
		return event{
			lib:      "EventSetPointBoolean",
			connects: []connect{{"event_state1", rec.DynModel, signal}},
			params:   []param{{"BOOL", "event_stateEvent1", "true"}},
		}, nil
	}
}

// loadGroupEvent switches off every member with one block.
func loadGroupEvent(rec model.Record, _ model.Mode) (event, error) {
	ev := event{
		lib:    "EventSetPointBoolean",
		params: []param{{"BOOL", "event_stateEvent1", "true"}},
	}
	for _, m := range rec.Members {
		if !m.HasDynModel() {
			return event{}, fmt.Errorf("dynawo: load group %s: member %s has no dynamic model", rec.Name, m.Name)
		}
		ev.connects = append(ev.connects, connect{"event_state1", m.DynModel, "load_switchOffSignal2"})
	}
	if len(ev.connects) == 0 {
		return event{}, fmt.Errorf("dynawo: load group %s has no members", rec.Name)
	}
	return ev, nil
}

// Disconnect replaces the case's events with one that disconnects rec.
// It returns the number of event blocks written.
func (m *Model) Disconnect(rec model.Record, mode model.Mode) (int, error) {
	strat, ok := strategies[rec.Kind()]
	if !ok {
		return 0, fmt.Errorf("dynawo: no disconnection strategy for %s %s (dynamic model: %v)",
			rec.Subtype, rec.Name, rec.HasDynModel())
	}
	ev, err := strat(rec, mode)
	if err != nil {
		return 0, err
	}
	tEvent, err := m.purgeEvents()
	if err != nil {
		return 0, err
	}
	m.declare(rec.Class, ev, tEvent)
	return 1, nil
}

// purgeEvents removes every event model with its connections and
// parameter set, and returns the literal event time of the first one. Each
// set is looked up in the parameter file its event names.
func (m *Model) purgeEvents() (string, error) {
	dyd := m.dyd.Root()
	var tEvent string
	found := false
	for _, bbm := range jobs.EventModels(dyd) {
		id := xmldoc.Attr(bbm, "id")
		setID := xmldoc.Attr(bbm, "parId")
		par, err := m.eventPar(bbm)
		if err != nil {
			return "", err
		}
		if !found {
			tEvent, found = jobs.ParRaw(par, setID, "event_tEvent")
		}
		for _, c := range xmldoc.Children(dyd, "connect") {
			if xmldoc.Attr(c, "id1") == id || xmldoc.Attr(c, "id2") == id {
				xmldoc.Remove(c)
			}
		}
		if set := jobs.ParSet(par, setID); set != nil {
			xmldoc.Remove(set)
		}
		xmldoc.Remove(bbm)
	}
	if !found {
		return "", &model.NoBaseEventError{Model: m.label, File: m.dyd.Path}
	}
	return tEvent, nil
}

func (m *Model) declare(class model.Class, ev event, tEvent string) {
	id := "Disconnect my " + class.String()
	parFile, err := filepath.Rel(filepath.Dir(m.dyd.Path), m.par.Path)
	if err != nil {
		parFile = filepath.Base(m.par.Path)
	}
	dyd := m.dyd.Root()
	xmldoc.NewChild(dyd, "blackBoxModel",
		"id", id, "lib", ev.lib, "parFile", filepath.ToSlash(parFile), "parId", EventParSet)
	for _, c := range ev.connects {
		xmldoc.NewChild(dyd, "connect", "id1", id, "var1", c.var1, "id2", c.id2, "var2", c.var2)
	}
	set := xmldoc.NewChild(m.par.Root(), "set", "id", EventParSet)
	xmldoc.NewChild(set, "par", "type", "DOUBLE", "name", "event_tEvent", "value", tEvent)
	for _, p := range ev.params {
		xmldoc.NewChild(set, "par", "type", p.typ, "name", p.name, "value", p.value)
	}
}

// AddCurves requests the voltage curve of each bus. It returns the number
// of curves added.
func (m *Model) AddCurves(buses []string) (int, error) {
	root := m.crv.Root()
	for _, b := range buses {
		xmldoc.NewChild(root, "curve", "model", NetworkModel, "variable", b+"_Upu_value")
	}
	return len(buses), nil
}

// EventCount returns the number of event models currently declared.
func (m *Model) EventCount() int {
	return len(jobs.EventModels(m.dyd.Root()))
}
