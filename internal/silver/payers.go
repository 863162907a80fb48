package silver

import (
	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/engine"
)

// Payers keeps trimmed payer_id and payer_name, dropping rows missing either.
func Payers(in *dataset.Dataset) (*dataset.Dataset, engine.Stats, error) {
	stats := engine.NewStats(in.Len())
	if err := requireColumns(in, BronzePayers, "payer_id", "payer_name"); err != nil {
		return nil, stats, err
	}

	out := dataset.New(outputColumns(contract.Payers)...)
	for i := 0; i < in.Len(); i++ {
		r := row{in, i}
		if missing := r.essential("payer_id", "payer_name"); missing != "" {
			stats.Drop(dropReason(missing))
			continue
		}
		id, _ := r.str("payer_id")
		name, _ := r.str("payer_name")
		if err := out.Append(dataset.String(id), dataset.String(name)); err != nil {
			return nil, stats, err
		}
	}
	return finish(out, stats, "payer_id")
}
