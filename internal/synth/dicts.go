package synth

var (
	PayerNames = []string{
		"Aetna", "Anthem", "Blue Cross Blue Shield", "Cigna Health", "Humana",
		"Kaiser Foundation", "Medicaid", "Medicare", "UnitedHealthcare", "Dual Eligible",
	}
	States = []string{"MA", "CT", "NY", "NJ", "PA", "RI", "VT", "NH", "ME", "OH"}

	// EncounterClasses is weighted by repetition.
	EncounterClasses = []string{
		"ambulatory", "ambulatory", "ambulatory", "wellness", "wellness",
		"outpatient", "outpatient", "emergency", "urgentcare", "inpatient",
	}

	// Genders as Synthea writes them.
	Genders = []string{"M", "F"}

	// PatientShareTypes are the transaction types a patient pays.
	PatientShareTypes = []string{"COPAY", "COINSURANCE", "DEDUCTIBLE"}
)

type procedure struct {
	Code        string
	Description string
	Low, High   float64
}

var Procedures = []procedure{
	{"185345009", "Encounter for symptom", 75, 180},
	{"162673000", "General examination of patient", 90, 250},
	{"410620009", "Well child visit", 80, 200},
	{"50849002", "Emergency room admission", 800, 2500},
	{"183452005", "Emergency hospital admission", 1500, 9000},
	{"430193006", "Medication reconciliation", 20, 80},
	{"710824005", "Assessment of health and social care needs", 30, 120},
	{"171207006", "Depression screening", 25, 90},
	{"703423002", "Combined chemotherapy and radiation therapy", 4000, 15000},
	{"76601001", "Intramuscular injection", 15, 60},
	{"252160004", "Standard pregnancy test", 20, 45},
	{"88039007", "Glucose measurement", 10, 40},
}

// classCost scales the charge of an encounter class.
var classCost = map[string]float64{
	"ambulatory": 1,
	"wellness":   1,
	"outpatient": 1.5,
	"urgentcare": 2,
	"emergency":  4,
	"inpatient":  8,
}
