// Package testutil writes small base cases for tests.
//
// The grid is the same in every flavour:
//
//	S1: VL1 (B1: G1, LD1)  VL1B (B1B)      TR1  B1-B1B
//	S2: VL2 (B2: LD2, LD2X, G_OFF, SH2, SH_OFF)  VL2B (B2B: LD2B, G_DISC)  PS2 B2-B2B
//	S3: VL3 node-breaker (BBS3A dead, BBS3B: G3, LD3, SH3; SH3_OFF unattached)
//	lines: L12 B1-B2, L_OFF B1-B2 (no flow), L2B3 B2B-VL3, L1B2B B1B-B2B
//
// The reference files describe the same grid except that LD2 and LD2X are
// merged into a single conso LD2_MERGED, and an extra quadripole L_REF
// exists only there.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Relative locations of the generated files inside a dynawo case.
const (
	JobFile     = "fic_JOB.xml"
	NetworkFile = "case.iidm"
	DydFile     = "case.dyd"
	ParFile     = "case.par"
	CurveFile   = "case.crv"
	SolverFile  = "solvers.par"
	AstreFile   = "Astre/donneesModelesEntree.xml"
	HadesFile   = "Hades/donneesEntreeHADES2.xml"
)

// Job is a job descriptor naming the files of a dynawo case.
const Job = `<?xml version='1.0' encoding='UTF-8'?>
<dyn:jobs xmlns:dyn="http://www.rte-france.com/dynawo">
  <dyn:job name="base">
    <dyn:solver lib="dynawo_SolverIDA" parFile="solvers.par" parId="2"/>
    <dyn:modeler compileDir="outputs/compilation">
      <dyn:network iidmFile="case.iidm" parFile="case.par" parId="NETWORK"/>
      <dyn:dynModels dydFile="case.dyd"/>
      <dyn:precompiledModels useStandardModels="true"/>
      <dyn:modelicaModels useStandardModels="true"/>
    </dyn:modeler>
    <dyn:simulation startTime="0" stopTime="1200"/>
    <dyn:outputs directory="outputs">
      <dyn:curves inputFile="case.crv" exportMode="CSV"/>
    </dyn:outputs>
  </dyn:job>
</dyn:jobs>
`

// Network is the IIDM file of the grid.
const Network = `<?xml version='1.0' encoding='UTF-8'?>
<iidm:network xmlns:iidm="http://www.powsybl.org/schema/iidm/1_4" id="grid" caseDate="2026-01-01T00:00:00.000+01:00" forecastDistance="0" sourceFormat="test">
  <iidm:substation id="S1">
    <iidm:voltageLevel id="VL1" nominalV="400" topologyKind="BUS_BREAKER">
      <iidm:busBreakerTopology>
        <iidm:bus id="B1" v="402" angle="0"/>
      </iidm:busBreakerTopology>
      <iidm:generator id="G1" energySource="NUCLEAR" bus="B1" connectableBus="B1" targetP="150" p="-150" q="-20"/>
      <iidm:load id="LD1" loadType="UNDEFINED" p0="80" q0="20" bus="B1" connectableBus="B1" p="80" q="20"/>
    </iidm:voltageLevel>
    <iidm:voltageLevel id="VL1B" nominalV="225" topologyKind="BUS_BREAKER">
      <iidm:busBreakerTopology>
        <iidm:bus id="B1B" v="226" angle="-1.5"/>
      </iidm:busBreakerTopology>
    </iidm:voltageLevel>
    <iidm:twoWindingsTransformer id="TR1" voltageLevelId1="VL1" bus1="B1" connectableBus1="B1" voltageLevelId2="VL1B" bus2="B1B" connectableBus2="B1B" p1="40" q1="4" p2="-39.9" q2="-3.5"/>
  </iidm:substation>
  <iidm:substation id="S2">
    <iidm:voltageLevel id="VL2" nominalV="400" topologyKind="BUS_BREAKER">
      <iidm:busBreakerTopology>
        <iidm:bus id="B2" v="399" angle="-2"/>
      </iidm:busBreakerTopology>
      <iidm:generator id="G_OFF" energySource="HYDRO" bus="B2" connectableBus="B2" p="0" q="0"/>
      <iidm:load id="LD2" loadType="UNDEFINED" bus="B2" connectableBus="B2" p="40" q="10"/>
      <iidm:load id="LD2X" loadType="UNDEFINED" bus="B2" connectableBus="B2" p="15" q="3"/>
      <iidm:shunt id="SH2" bus="B2" connectableBus="B2" q="-50"/>
      <iidm:shunt id="SH_OFF" connectableBus="B2" q="0"/>
    </iidm:voltageLevel>
    <iidm:voltageLevel id="VL2B" nominalV="225" topologyKind="BUS_BREAKER">
      <iidm:busBreakerTopology>
        <iidm:bus id="B2B" v="224" angle="-3"/>
      </iidm:busBreakerTopology>
      <iidm:load id="LD2B" loadType="UNDEFINED" bus="B2B" connectableBus="B2B" p="10" q="2"/>
      <iidm:generator id="G_DISC" energySource="WIND" p="-5" q="0"/>
    </iidm:voltageLevel>
    <iidm:twoWindingsTransformer id="PS2" voltageLevelId1="VL2" bus1="B2" connectableBus1="B2" voltageLevelId2="VL2B" bus2="B2B" connectableBus2="B2B" p1="20" q1="2" p2="-19.9" q2="-1.9">
      <iidm:phaseTapChanger lowTapPosition="0" tapPosition="1" regulationMode="FIXED_TAP"/>
    </iidm:twoWindingsTransformer>
  </iidm:substation>
  <iidm:substation id="S3">
    <iidm:voltageLevel id="VL3" nominalV="225" topologyKind="NODE_BREAKER">
      <iidm:nodeBreakerTopology>
        <iidm:busbarSection id="BBS3A" node="0" v="0" angle="0"/>
        <iidm:busbarSection id="BBS3B" node="1" v="223" angle="-4"/>
        <iidm:switch id="SW3" kind="BREAKER" open="false" node1="0" node2="1"/>
      </iidm:nodeBreakerTopology>
      <iidm:generator id="G3" energySource="THERMAL" node="5" p="-60" q="5"/>
      <iidm:load id="LD3" loadType="UNDEFINED" node="6" p="30" q="5"/>
      <iidm:shunt id="SH3" node="7" q="-20"/>
      <iidm:shunt id="SH3_OFF" node="-1" q="0"/>
    </iidm:voltageLevel>
  </iidm:substation>
  <iidm:line id="L12" voltageLevelId1="VL1" bus1="B1" connectableBus1="B1" voltageLevelId2="VL2" bus2="B2" connectableBus2="B2" p1="100" q1="10" p2="-99" q2="-8"/>
  <iidm:line id="L_OFF" voltageLevelId1="VL1" bus1="B1" connectableBus1="B1" voltageLevelId2="VL2" bus2="B2" connectableBus2="B2" p1="0" q1="0" p2="0" q2="0"/>
  <iidm:line id="L2B3" voltageLevelId1="VL2B" bus1="B2B" connectableBus1="B2B" voltageLevelId2="VL3" node2="2" p1="50" q1="5" p2="-49.5" q2="-4"/>
  <iidm:line id="L1B2B" voltageLevelId1="VL1B" bus1="B1B" connectableBus1="B1B" voltageLevelId2="VL2B" bus2="B2B" connectableBus2="B2B" p1="30" q1="3" p2="-29.8" q2="-2.5"/>
</iidm:network>
`

// Dyd declares dynamic models for G1 and the loads LD1, LD2, LD2X, LD3,
// plus one seed event.
const Dyd = `<?xml version='1.0' encoding='UTF-8'?>
<dyn:dynamicModelsArchitecture xmlns:dyn="http://www.rte-france.com/dynawo">
  <dyn:blackBoxModel id="GEN_G1" lib="GeneratorSynchronousFourWindingsProportionalRegulations" parFile="case.par" parId="GEN" staticId="G1"/>
  <dyn:blackBoxModel id="LOAD_LD1" lib="LoadAlphaBeta" parFile="case.par" parId="LOAD" staticId="LD1"/>
  <dyn:blackBoxModel id="LOAD_LD2" lib="LoadAlphaBeta" parFile="case.par" parId="LOAD" staticId="LD2"/>
  <dyn:blackBoxModel id="LOAD_LD2X" lib="LoadAlphaBeta" parFile="case.par" parId="LOAD" staticId="LD2X"/>
  <dyn:blackBoxModel id="LOAD_LD3" lib="LoadAlphaBetaRestorative" parFile="case.par" parId="LOAD" staticId="LD3"/>
  <dyn:blackBoxModel id="OMEGA_REF" lib="DYNModelOmegaRef" parFile="case.par" parId="OMEGA"/>
  <dyn:blackBoxModel id="Disconnect my branch" lib="EventQuadripoleDisconnection" parFile="case.par" parId="99991234"/>
  <dyn:connect id1="GEN_G1" var1="generator_terminal" id2="NETWORK" var2="B1_ACPIN"/>
  <dyn:connect id1="LOAD_LD1" var1="load_terminal" id2="NETWORK" var2="B1_ACPIN"/>
  <dyn:connect id1="Disconnect my branch" var1="event_state1_value" id2="NETWORK" var2="L12_state_value"/>
</dyn:dynamicModelsArchitecture>
`

// Par holds the parameter sets, the seed event firing at t=300.
const Par = `<?xml version='1.0' encoding='UTF-8'?>
<parametersSet xmlns="http://www.rte-france.com/dynawo">
  <set id="NETWORK">
    <par type="DOUBLE" name="capacitor_no_reclosing_delay" value="300"/>
  </set>
  <set id="GEN">
    <par type="DOUBLE" name="generator_H" value="5.4"/>
  </set>
  <set id="LOAD">
    <par type="DOUBLE" name="load_alpha" value="1.5"/>
  </set>
  <set id="99991234">
    <par type="DOUBLE" name="event_tEvent" value="300"/>
    <par type="BOOL" name="event_disconnectOrigin" value="true"/>
    <par type="BOOL" name="event_disconnectExtremity" value="true"/>
  </set>
</parametersSet>
`

// Crv monitors one bus.
const Crv = `<?xml version='1.0' encoding='UTF-8'?>
<curvesInput xmlns="http://www.rte-france.com/dynawo">
  <curve model="NETWORK" variable="B1_Upu_value"/>
</curvesInput>
`

// Solver is an unrelated file every case carries; it is never rewritten.
const Solver = `<?xml version='1.0' encoding='UTF-8'?>
<parametersSet xmlns="http://www.rte-france.com/dynawo">
  <set id="2">
    <par type="DOUBLE" name="hMin" value="1e-6"/>
  </set>
</parametersSet>
`

// reseau is the network section shared by the astre and hades files.
// Poste 2 carries a latin-1 byte.
const reseau = `    <reseau>
      <donneesPostes>
        <poste num="1" nom="S1"/>
        <poste num="2" nom="CH` + "\xc2" + `TEAU"/>
        <poste num="3" nom="S3"/>
      </donneesPostes>
      <donneesNoeuds>
        <noeud num="1" nom="B1" poste="1"><variables u="402.5" ph="0"/></noeud>
        <noeud num="2" nom="B1B" poste="1"><variables u="226" ph="-1.4"/></noeud>
        <noeud num="3" nom="B2" poste="2"><variables u="399" ph="-2"/></noeud>
        <noeud num="4" nom="B2B" poste="2"><variables u="224.1" ph="-3"/></noeud>
        <noeud num="5" nom="BBS3B" poste="3"><variables u="223" ph="-4.1"/></noeud>
      </donneesNoeuds>
      <donneesQuadripoles>
        <quadripole num="1" nom="L12" nor="1" nex="3"><variables por="101" qor="10" pex="-100" qex="-8"/></quadripole>
        <quadripole num="2" nom="L_OFF" nor="1" nex="3"><variables por="0" qor="0" pex="0" qex="0"/></quadripole>
        <quadripole num="3" nom="L2B3" nor="4" nex="5"><variables por="50" qor="5" pex="-49.4" qex="-4"/></quadripole>
        <quadripole num="4" nom="L1B2B" nor="2" nex="4"><variables por="30" qor="3" pex="-29.8" qex="-2.5"/></quadripole>
        <quadripole num="5" nom="TR1" nor="1" nex="2"><regleur num="1"/><variables por="40" qor="4" pex="-39.9" qex="-3.5"/></quadripole>
        <quadripole num="6" nom="PS2" nor="3" nex="4"><dephaseur num="1"/><variables por="20" qor="2" pex="-19.9" qex="-1.9"/></quadripole>
        <quadripole num="7" nom="L_REF" nor="-1" nex="4"><variables por="0" qor="0" pex="0" qex="0"/></quadripole>
      </donneesQuadripoles>
      <donneesCouplages>
        <couplage num="1" nom="CPL2" nor="3" nex="4" etat="1"/>
      </donneesCouplages>
      <donneesGroupes>
        <groupe num="1" nom="G1" noeud="1" poste="1"><variables pc="150" qc="20"/></groupe>
        <groupe num="2" nom="G3" noeud="5" poste="3"><variables pc="61" qc="-5"/></groupe>
        <groupe num="3" nom="G_OFF" noeud="3" poste="2"><variables pc="0" qc="0"/></groupe>
      </donneesGroupes>
      <donneesConsos>
        <conso num="1" nom="LD1" noeud="1" poste="1"><variables peci="80" reci="20"/></conso>
        <conso num="2" nom="LD2_MERGED" noeud="3" poste="2"><variables peci="55" reci="13"/></conso>
        <conso num="3" nom="LD3" noeud="5" poste="3"><variables peci="30" reci="5"/></conso>
      </donneesConsos>
      <donneesShunts>
        <shunt num="1" nom="SH2" noeud="3" poste="2"><variables q="-48"/></shunt>
        <shunt num="2" nom="SH_OFF" noeud="-1" poste="2"/>
      </donneesShunts>
    </reseau>
`

// Astre is the time-domain reference file, with one seed event and one
// monitored bus.
const Astre = `<?xml version="1.0" encoding="ISO-8859-1"?>
<modele>
  <entrees>
` + reseau + `    <scenario nom="base" instantfin="1200">
      <evtouvrtopo instant="300" ouvrage="1" type="9" cote="0" ouvrir="true" typeevt="1"/>
      <courbe nom="B1_Upu_value" typecourbe="63" ouvrage="1" type="7"/>
    </scenario>
  </entrees>
</modele>
`

// Hades is the static reference file.
const Hades = `<?xml version="1.0" encoding="ISO-8859-1"?>
<modele>
  <entrees>
` + reseau + `  </entrees>
</modele>
`

// WriteFiles writes name/content pairs below dir, creating parents.
func WriteFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// DynawoFiles returns the files of a dynawo case.
func DynawoFiles() map[string]string {
	return map[string]string{
		JobFile:     Job,
		NetworkFile: Network,
		DydFile:     Dyd,
		ParFile:     Par,
		CurveFile:   Crv,
		SolverFile:  Solver,
	}
}

// BaseCase writes a base case for pairing ("astre", "hades" or "dynawo")
// under a fresh temp dir and returns its path. For the dynawo pairing the
// B side differs from A only in the origin flow of L12.
func BaseCase(t testing.TB, pairing string) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), "base")
	files := DynawoFiles()
	switch pairing {
	case "astre":
		files[AstreFile] = Astre
	case "hades":
		files[HadesFile] = Hades
	case "dynawo":
		files = map[string]string{}
		for name, content := range DynawoFiles() {
			files["A/"+name] = content
			if name == NetworkFile {
				content = strings.ReplaceAll(content, `p1="100"`, `p1="101"`)
			}
			files["B/"+name] = content
		}
	default:
		t.Fatalf("testutil: unknown pairing %q", pairing)
	}
	WriteFiles(t, base, files)
	return base
}

// Tree reads every regular file below dir into a map keyed by slash
// separated relative path. Symbolic links are followed.
func Tree(t testing.TB, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}
