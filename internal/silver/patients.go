package silver

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/engine"
)

var genders = map[string]string{
	"M": "Male", "MALE": "Male",
	"F": "Female", "FEMALE": "Female",
	"O": "Other", "OTHER": "Other",
	"U": DefaultString, "UNKNOWN": DefaultString,
}

// Patients builds the patient dimension. Names are title-cased, gender
// codes are mapped, age is whole calendar years at processedAt, and each
// patient takes the payer of their latest encounter, ties going to the
// smallest encounter_id.
func Patients(in, encounters, payers *dataset.Dataset, processedAt time.Time) (*dataset.Dataset, engine.Stats, error) {
	stats := engine.NewStats(in.Len())
	if err := requireColumns(in, BronzePatients, "patient_id", "first_name", "last_name", "date_of_birth"); err != nil {
		return nil, stats, err
	}
	current, err := latestPayers(encounters)
	if err != nil {
		return nil, stats, err
	}
	names, err := payerNames(payers)
	if err != nil {
		return nil, stats, err
	}

	title := cases.Title(language.Und)
	out := dataset.New(outputColumns(contract.Patients)...)
	for i := 0; i < in.Len(); i++ {
		r := row{in, i}
		if missing := r.essential("patient_id", "first_name", "last_name"); missing != "" {
			stats.Drop(dropReason(missing))
			continue
		}
		dob, ok := r.time("date_of_birth")
		if !ok {
			stats.Drop(dropReason("date_of_birth"))
			continue
		}
		id, _ := r.str("patient_id")
		first, _ := r.str("first_name")
		last, _ := r.str("last_name")

		gender := DefaultString
		if g, ok := r.str("gender"); ok {
			if mapped, known := genders[strings.ToUpper(g)]; known {
				gender = mapped
			} else {
				gender = g
				stats.Unmap("gender", g)
			}
		}

		years := Age(dob, processedAt)
		if years < 0 {
			stats.Anomaly(AnomalyNegativeAge)
			years = 0
		}

		payerID := dataset.Null
		payerName := DefaultPayer
		if p, ok := current[id]; ok {
			payerID = dataset.String(p)
			if n, ok := names[p]; ok {
				payerName = n
			}
		}

		err := out.Append(
			dataset.String(id),
			dataset.String(title.String(first)),
			dataset.String(title.String(last)),
			dataset.Date(dob),
			dataset.String(gender),
			dataset.Int(int64(years)),
			payerID,
			dataset.String(payerName),
		)
		if err != nil {
			return nil, stats, err
		}
	}
	return finish(out, stats, "patient_id")
}

// Age is the number of whole years from dob to on, counting a birthday
// only once its calendar day has been reached in on's location.
func Age(dob, on time.Time) int {
	dob = dob.UTC()
	years := on.Year() - dob.Year()
	if on.Month() < dob.Month() || (on.Month() == dob.Month() && on.Day() < dob.Day()) {
		years--
	}
	return years
}

type latest struct {
	encounter string
	at        time.Time
	payer     string
	hasPayer  bool
}

// latestPayers maps patient_id to the payer of the latest encounter. The
// map has no entry when that encounter carries no payer.
func latestPayers(encounters *dataset.Dataset) (map[string]string, error) {
	if err := requireColumns(encounters, contract.SilverEncounters, "encounter_id", "patient_id", "encounter_date", "payer_id"); err != nil {
		return nil, err
	}
	best := make(map[string]latest)
	for i := 0; i < encounters.Len(); i++ {
		patient, ok := encounters.Get(i, "patient_id").AsString()
		if !ok {
			continue
		}
		at, ok := encounters.Get(i, "encounter_date").AsTime()
		if !ok {
			continue
		}
		id, _ := encounters.Get(i, "encounter_id").AsString()
		payer, hasPayer := encounters.Get(i, "payer_id").AsString()

		cur, seen := best[patient]
		if !seen || at.After(cur.at) || (at.Equal(cur.at) && id < cur.encounter) {
			best[patient] = latest{encounter: id, at: at, payer: payer, hasPayer: hasPayer}
		}
	}
	out := make(map[string]string, len(best))
	for patient, l := range best {
		if l.hasPayer {
			out[patient] = l.payer
		}
	}
	return out, nil
}

func payerNames(payers *dataset.Dataset) (map[string]string, error) {
	if err := requireColumns(payers, contract.SilverPayers, "payer_id", "payer_name"); err != nil {
		return nil, err
	}
	out := make(map[string]string, payers.Len())
	for i := 0; i < payers.Len(); i++ {
		id, ok := payers.Get(i, "payer_id").AsString()
		if !ok {
			continue
		}
		if name, ok := payers.Get(i, "payer_name").AsString(); ok {
			out[id] = name
		}
	}
	return out, nil
}
