// Package testutil holds fixtures shared by package tests and the smoke client.
package testutil

// SamplePayload returns the documented example lead. Each call returns a
// fresh map.
func SamplePayload() map[string]any {
	return map[string]any{
		"Email":                            "jan.jansen@zorggroep.nl",
		"Organization":                     "Zorggroep Noord",
		"First_Name":                       "Jan",
		"Last_Name":                        "Jansen",
		"Lead_ID":                          "123456789",
		"Created_Time":                     "2025-06-12T10:15:00+02:00",
		"Domain_1_Sum":                     "7",
		"Domain_2_Sum":                     "5",
		"Domain_3_Sum":                     "6",
		"Domain_4_Sum":                     "4",
		"Total_Sum":                        "22",
		"Governance_Q1":                    "4. Breed gedragen visie, vastgelegd in beleid",
		"Governance_Q2":                    "3. Bestuur is betrokken bij de voortgang",
		"Structuur_Q1":                     "3. Structureel overleg met enkele partners",
		"Structuur_Q2":                     "2. Eerste verkenning van gedeelde tools",
		"Proces_Q1":                        "4. Patiëntreis is in kaart gebracht",
		"Proces_Q2":                        "2. Incidentele evaluaties",
		"Uitkomsten_en_sturing_Q1":         "2. Enkele uitkomsten worden gemeten",
		"Uitkomsten_en_sturing_Q2":         "2. Data wordt beperkt gebruikt",
		"Governance_Q1_Numeric":            "4",
		"Governance_Q2_Numeric":            "3",
		"Structuur_Q1_Numeric":             "3",
		"Structuur_Q2_Numeric":             "2",
		"Proces_Q1_Numeric":                "4",
		"Proces_Q2_Numeric":                "2",
		"Uitkomsten_en_sturing_Q1_Numeric": "2",
		"Uitkomsten_en_sturing_Q2_Numeric": "2",
	}
}

// Without returns SamplePayload minus the given keys.
func Without(keys ...string) map[string]any {
	p := SamplePayload()
	for _, k := range keys {
		delete(p, k)
	}
	return p
}

// With returns SamplePayload with the given overrides applied.
func With(overrides map[string]any) map[string]any {
	p := SamplePayload()
	for k, v := range overrides {
		p[k] = v
	}
	return p
}
