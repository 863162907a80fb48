package contract

// Gold table names.
const (
	GoldPatientMonthly   = "gold_patient_monthly_summary"
	GoldPayerPerformance = "gold_payer_performance"
	GoldEncounterSummary = "gold_encounter_summary"
	GoldProcedures       = "gold_procedure_analysis"
	GoldProviderActivity = "gold_provider_activity_summary"

	GoldAudit = "gold_processing_timestamp"
)

var goldAudit = Field{Name: GoldAudit, Type: TypeTimestamp, Coerce: true}

var PatientMonthly = MustNew(GoldPatientMonthly,
	Field{Name: "patient_id", Type: TypeString},
	Field{Name: "first_name", Type: TypeString},
	Field{Name: "last_name", Type: TypeString},
	Field{Name: "year_month", Type: TypeString, Pattern: `^\d{4}-\d{2}$`},
	Field{Name: "total_claims_count", Type: TypeInt, Min: Bound(0), Coerce: true},
	Field{Name: "total_billed_amount_month", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	Field{Name: "total_paid_amount_month", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	Field{Name: "avg_claim_value_month", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	goldAudit,
)

var PayerPerformance = MustNew(GoldPayerPerformance,
	Field{Name: "payer_id", Type: TypeString, Unique: true},
	Field{Name: "payer_name", Type: TypeString},
	Field{Name: "total_claims_count", Type: TypeInt, Min: Bound(0), Coerce: true},
	Field{Name: "total_billed_amount", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	Field{Name: "total_paid_amount", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	Field{Name: "avg_paid_per_claim", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	Field{Name: "avg_patient_responsibility", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	goldAudit,
)

var EncounterSummary = MustNew(GoldEncounterSummary,
	Field{Name: "encounter_id", Type: TypeString, Unique: true},
	Field{Name: "patient_id", Type: TypeString},
	Field{Name: "encounter_date", Type: TypeTimestamp, Coerce: true},
	Field{Name: "discharge_date", Type: TypeTimestamp, Nullable: true, Coerce: true},
	Field{Name: "provider_id", Type: TypeString, Nullable: true},
	Field{Name: "encounter_type", Type: TypeString, Nullable: true},
	Field{Name: "length_of_stay_days", Type: TypeInt, Min: Bound(0), Coerce: true},
	Field{Name: "total_billed_amount_encounter", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	goldAudit,
)

var Procedures = MustNew(GoldProcedures,
	Field{Name: "procedure_code", Type: TypeString, Unique: true},
	Field{Name: "transaction_count", Type: TypeInt, Min: Bound(0)},
	Field{Name: "total_amount", Type: TypeDecimal},
	Field{Name: "avg_amount", Type: TypeDecimal},
	goldAudit,
)

var ProviderActivity = MustNew(GoldProviderActivity,
	Field{Name: "provider_id", Type: TypeString, Unique: true},
	Field{Name: "total_patients_seen", Type: TypeInt, Min: Bound(0)},
	Field{Name: "total_encounters", Type: TypeInt, Min: Bound(0)},
	Field{Name: "total_billed_from_encounters", Type: TypeDecimal, Min: Bound(0)},
	Field{Name: "avg_billed_per_encounter", Type: TypeDecimal, Min: Bound(0)},
	goldAudit,
)

// Default returns the registry of every Silver and Gold contract.
func Default() *Registry {
	r, err := NewRegistry(
		Patients, Payers, Encounters, Claims, Transactions,
		PatientMonthly, PayerPerformance, EncounterSummary, Procedures, ProviderActivity,
	)
	if err != nil {
		panic(err)
	}
	return r
}
