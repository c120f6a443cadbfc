package scoring

import "github.com/okian/leadscore/internal/domain/model"

// question describes one categorical payload field.
type question struct {
	field     string
	theme     model.Theme
	subdomain string
	keyword   string
}

// questions lists the categorical answers in chart order.
var questions = []question{
	{"Governance_Q1", model.ThemeGovernance, "Visie op passende zorg", "Visie"},
	{"Governance_Q2", model.ThemeGovernance, "Leiderschap en eigenaarschap", "Leiderschap"},
	{"Structuur_Q1", model.ThemeStructure, "Regionale samenwerking", "Samenwerking"},
	{"Structuur_Q2", model.ThemeStructure, "Tools en platforms", "Tools"},
	{"Proces_Q1", model.ThemeProcess, "Patiëntgericht procesontwerp", "Patiëntgericht"},
	{"Proces_Q2", model.ThemeProcess, "Leren en verbeteren", "Leren"},
	{"Uitkomsten_en_sturing_Q1", model.ThemeOutcomes, "Outcomegericht werken", "Uitkomsten"},
	{"Uitkomsten_en_sturing_Q2", model.ThemeOutcomes, "Monitoring en besluitvorming", "Data"},
}

// domainFields maps Domain_N_Sum to its theme, in order.
var domainFields = []struct {
	field string
	theme model.Theme
}{
	{"Domain_1_Sum", model.ThemeGovernance},
	{"Domain_2_Sum", model.ThemeStructure},
	{"Domain_3_Sum", model.ThemeProcess},
	{"Domain_4_Sum", model.ThemeOutcomes},
}

const totalField = "Total_Sum"

// phases partition the 0..40 total score.
var phases = []model.Phase{
	{Index: 0, Name: "Startfase", Range: "0-14 pnt", Focus: "Begrip en taal ontwikkelen", Min: 0, Max: 14},
	{Index: 1, Name: "Aan de slag", Range: "15-22 pnt", Focus: "Richting en partners bepalen", Min: 15, Max: 22},
	{Index: 2, Name: "Op de kaart", Range: "23-30 pnt", Focus: "Governance en procesafspraken", Min: 23, Max: 30},
	{Index: 3, Name: "In control", Range: "31-36 pnt", Focus: "PDCA-cyclus en datasturing", Min: 31, Max: 36},
	{Index: 4, Name: "Voorloper", Range: "37-40 pnt", Focus: "Leren, waardesturing, opschaling", Min: 37, Max: 40},
}

var unknownPhase = model.Phase{Index: -1, Name: "Onbekend"}

// Phases returns the maturity phases in ascending order.
func Phases() []model.Phase {
	out := make([]model.Phase, len(phases))
	copy(out, phases)
	return out
}

// support offered per answer level; levels above 3 get no recommendation.
var support = map[int]struct{ text, kind string }{
	1: {"Startsessie of training: visie, netwerk of dashboard opzetten.", "Training"},
	2: {"Co-creatie workshop: structuur of pilotplan uitwerken.", "Workshop"},
	3: {"Consultancy: concretiseer aanpak en borg werkwijze.", "Consultancy"},
}

type adviceKey struct {
	subdomain string
	level     int
}

var advice = map[adviceKey]string{
	{"Visie op passende zorg", 1}:       "Faciliteer een visie- en inspiratiesessie met stakeholders.",
	{"Visie op passende zorg", 2}:       "Vertaal losse ideeën naar een eerste conceptvisie.",
	{"Visie op passende zorg", 3}:       "Verscherp visie en koppel concrete doelen en termijnen.",
	{"Leiderschap en eigenaarschap", 1}: "Benoem een bestuurlijk ambassadeur voor passende zorg.",
	{"Leiderschap en eigenaarschap", 2}: "Betrek bestuur actief bij voortgang en beslismomenten.",
	{"Leiderschap en eigenaarschap", 3}: "Geef bestuur formele rol in governance.",
	{"Regionale samenwerking", 1}:       "Breng partners in kaart en start eerste verkenningsgesprekken.",
	{"Regionale samenwerking", 2}:       "Organiseer maandelijks thematisch netwerkoverleg.",
	{"Regionale samenwerking", 3}:       "Versterk met gezamenlijke doelen en actielijst.",
	{"Tools en platforms", 1}:           "Start met gedeelde mappen of formats.",
	{"Tools en platforms", 2}:           "Verken dashboard-tools of Zoho/PowerBI.",
	{"Tools en platforms", 3}:           "Versnel ontwikkeling en test actief met gebruikers.",
	{"Patiëntgericht procesontwerp", 1}: "Visualiseer de patiëntreis met team of patiëntpanel.",
	{"Patiëntgericht procesontwerp", 2}: "Evalueer pilots en werk verbeterideeën verder uit.",
	{"Patiëntgericht procesontwerp", 3}: "Standaardiseer het proces en monitor op resultaat.",
	{"Leren en verbeteren", 1}:          "Start met reflectie- of verbetermomenten per kwartaal.",
	{"Leren en verbeteren", 2}:          "Implementeer eenvoudige PDCA-cyclus op teamniveau.",
	{"Leren en verbeteren", 3}:          "Borg deze in overleggen en dashboards.",
	{"Outcomegericht werken", 1}:        "Definieer 2-3 relevante uitkomstindicatoren.",
	{"Outcomegericht werken", 2}:        "Maak ze zichtbaar in teamoverleg of dashboard.",
	{"Outcomegericht werken", 3}:        "Koppel outcome aan proces- en beslisinformatie.",
	{"Monitoring en besluitvorming", 1}: "Start met een maandelijks stuurmoment.",
	{"Monitoring en besluitvorming", 2}: "Introduceer KPI-dashboard met kwartaalupdate.",
	{"Monitoring en besluitvorming", 3}: "Train teams in gebruik en interpretatie.",
}
