package contract

// Silver table names.
const (
	SilverPatients     = "silver_patients_dim"
	SilverPayers       = "silver_payers_dim"
	SilverEncounters   = "silver_encounters_fact"
	SilverClaims       = "silver_claims_fact"
	SilverTransactions = "silver_claims_transactions_fact"

	SilverAudit = "silver_processing_timestamp"
)

var silverAudit = Field{Name: SilverAudit, Type: TypeTimestamp, Coerce: true}

var Patients = MustNew(SilverPatients,
	Field{Name: "patient_id", Type: TypeString, Unique: true},
	Field{Name: "first_name", Type: TypeString},
	Field{Name: "last_name", Type: TypeString},
	Field{Name: "date_of_birth", Type: TypeDate, Coerce: true},
	Field{Name: "gender", Type: TypeString},
	Field{Name: "age", Type: TypeInt, Min: Bound(0), Max: Bound(120), Coerce: true},
	Field{Name: "payer_id", Type: TypeString, Nullable: true},
	Field{Name: "payer_name", Type: TypeString},
	silverAudit,
)

var Payers = MustNew(SilverPayers,
	Field{Name: "payer_id", Type: TypeString, Unique: true},
	Field{Name: "payer_name", Type: TypeString},
	silverAudit,
)

var Encounters = MustNew(SilverEncounters,
	Field{Name: "encounter_id", Type: TypeString, Unique: true},
	Field{Name: "patient_id", Type: TypeString},
	Field{Name: "provider_id", Type: TypeString, Nullable: true},
	Field{Name: "payer_id", Type: TypeString, Nullable: true},
	Field{Name: "encounter_date", Type: TypeTimestamp, Coerce: true},
	Field{Name: "discharge_date", Type: TypeTimestamp, Nullable: true, NotBefore: "encounter_date", Coerce: true},
	Field{Name: "encounter_type", Type: TypeString},
	Field{Name: "length_of_stay_days", Type: TypeInt, Nullable: true, Min: Bound(0), Coerce: true},
	Field{Name: "total_claim_cost", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	Field{Name: "payer_coverage", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	silverAudit,
)

var Claims = MustNew(SilverClaims,
	Field{Name: "claim_id", Type: TypeString, Unique: true},
	Field{Name: "patient_id", Type: TypeString},
	Field{Name: "provider_id", Type: TypeString, Nullable: true},
	Field{Name: "claim_start_date", Type: TypeTimestamp, Coerce: true},
	Field{Name: "claim_end_date", Type: TypeTimestamp, Nullable: true, Coerce: true},
	Field{Name: "total_billed_amount", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	Field{Name: "total_paid_amount", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	Field{Name: "patient_responsibility_amount", Type: TypeDecimal, Min: Bound(0), Coerce: true},
	silverAudit,
)

var Transactions = MustNew(SilverTransactions,
	Field{Name: "transaction_id", Type: TypeString, Unique: true},
	Field{Name: "claim_id", Type: TypeString},
	Field{Name: "patient_id", Type: TypeString, Nullable: true},
	Field{Name: "transaction_date", Type: TypeTimestamp, Coerce: true},
	Field{Name: "transaction_amount", Type: TypeDecimal, Coerce: true},
	Field{Name: "procedure_code", Type: TypeString, Nullable: true},
	Field{Name: "transaction_type", Type: TypeString},
	silverAudit,
)
