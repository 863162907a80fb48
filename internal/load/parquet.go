package load

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/dialect"
	"medallion/internal/extract"
)

// metaColumns stores the dataset column order and types in the file footer;
// a parquet group orders its leaves by name.
const metaColumns = "medallion.columns"

const parquetReadBatch = 1024

// ParquetStore keeps one file per table at <Dir>/<namespace>/<table>.parquet.
// A replace writes a hidden temp file and renames it over the old one.
type ParquetStore struct {
	Dir string
}

func NewParquetStore(dir string) *ParquetStore { return &ParquetStore{Dir: dir} }

func (s *ParquetStore) Path(namespace, table string) string {
	return filepath.Join(s.Dir, namespace, table+".parquet")
}

func (s *ParquetStore) Replace(ctx context.Context, namespace, table string, ds *dataset.Dataset, c contract.Contract) (int64, error) {
	dir := filepath.Join(s.Dir, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp := filepath.Join(dir, "."+table+".parquet.tmp")
	if err := writeParquet(ctx, tmp, table, ds, ColumnDefs(ds, c)); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, s.Path(namespace, table)); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to move %s into place: %w", table, err)
	}
	return int64(ds.Len()), nil
}

func leafNode(t contract.Type) parquet.Node {
	switch t {
	case contract.TypeInt:
		return parquet.Int(64)
	case contract.TypeFloat:
		return parquet.Leaf(parquet.DoubleType)
	case contract.TypeDate:
		return parquet.Date()
	case contract.TypeTimestamp:
		return parquet.Timestamp(parquet.Microsecond)
	default:
		// decimals keep their exact text
		return parquet.String()
	}
}

// leafIndexes maps top-level column names to leaf column indexes.
func leafIndexes(schema *parquet.Schema) map[string]int {
	idx := make(map[string]int)
	for i, path := range schema.Columns() {
		if len(path) > 0 {
			idx[path[0]] = i
		}
	}
	return idx
}

func writeParquet(ctx context.Context, path, table string, ds *dataset.Dataset, defs []dialect.ColumnDef) error {
	group := parquet.Group{}
	for _, d := range defs {
		group[d.Name] = parquet.Optional(leafNode(d.Type))
	}
	schema := parquet.NewSchema(table, group)
	leaves := leafIndexes(schema)

	meta, err := json.Marshal(defs)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer f.Close()

	w := parquet.NewWriter(f, schema,
		parquet.Compression(&parquet.Snappy),
		parquet.KeyValueMetadata(metaColumns, string(meta)),
	)

	batch := make([]parquet.Row, 0, parquetReadBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := w.WriteRows(batch); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
		batch = batch[:0]
		return nil
	}
	for i := 0; i < ds.Len(); i++ {
		vals, err := rowValues(ds, i, defs)
		if err != nil {
			return err
		}
		row := make(parquet.Row, len(defs))
		for j, d := range defs {
			leaf := leaves[d.Name]
			row[leaf] = parquetValue(vals[j], d.Type).Level(0, definitionLevel(vals[j]), leaf)
		}
		batch = append(batch, row)
		if len(batch) == cap(batch) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return f.Sync()
}

func definitionLevel(x any) int {
	if x == nil {
		return 0
	}
	return 1
}

func parquetValue(x any, t contract.Type) parquet.Value {
	switch v := x.(type) {
	case nil:
		return parquet.NullValue()
	case int64:
		return parquet.Int64Value(v)
	case float64:
		return parquet.DoubleValue(v)
	case time.Time:
		if t == contract.TypeDate {
			return parquet.Int32Value(epochDays(v))
		}
		return parquet.Int64Value(v.UnixMicro())
	case string:
		return parquet.ByteArrayValue([]byte(v))
	default:
		return parquet.ByteArrayValue([]byte(fmt.Sprint(v)))
	}
}

// epochDays floors toward negative infinity so dates before 1970 land on
// the right day.
func epochDays(t time.Time) int32 {
	sec := t.Unix()
	days := sec / 86400
	if sec%86400 < 0 {
		days--
	}
	return int32(days)
}

func (s *ParquetStore) Extract(ctx context.Context, namespace, table string) (*dataset.Dataset, error) {
	path := s.Path(namespace, table)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, extract.ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet %s: %w", path, err)
	}

	raw, ok := pf.Lookup(metaColumns)
	if !ok {
		return nil, fmt.Errorf("%s: missing %s metadata", path, metaColumns)
	}
	var defs []dialect.ColumnDef
	if err := json.Unmarshal([]byte(raw), &defs); err != nil {
		return nil, fmt.Errorf("%s: bad column metadata: %w", path, err)
	}
	leaves := leafIndexes(pf.Schema())
	names := make([]string, len(defs))
	for i, d := range defs {
		if _, ok := leaves[d.Name]; !ok {
			return nil, fmt.Errorf("%s: column %s not in file schema", path, d.Name)
		}
		names[i] = d.Name
	}

	ds := dataset.New(names...)
	buf := make([]parquet.Row, parquetReadBatch)
	for _, rg := range pf.RowGroups() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows := rg.Rows()
		for {
			n, readErr := rows.ReadRows(buf)
			for _, r := range buf[:n] {
				row := make([]dataset.Value, len(defs))
				for j, d := range defs {
					v, err := fromParquet(r[leaves[d.Name]], d.Type)
					if err != nil {
						rows.Close()
						return nil, fmt.Errorf("%s: column %s: %w", path, d.Name, err)
					}
					row[j] = v
				}
				if err := ds.Append(row...); err != nil {
					rows.Close()
					return nil, err
				}
			}
			if errors.Is(readErr, io.EOF) {
				break
			}
			if readErr != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to read %s: %w", path, readErr)
			}
		}
		rows.Close()
	}
	return ds, nil
}

func fromParquet(v parquet.Value, t contract.Type) (dataset.Value, error) {
	if v.IsNull() {
		return dataset.Null, nil
	}
	switch t {
	case contract.TypeInt:
		return dataset.Int(v.Int64()), nil
	case contract.TypeFloat:
		return dataset.Float(v.Double()), nil
	case contract.TypeDate:
		return dataset.Date(time.Unix(int64(v.Int32())*86400, 0)), nil
	case contract.TypeTimestamp:
		return dataset.Timestamp(time.UnixMicro(v.Int64())), nil
	case contract.TypeDecimal:
		d, err := decimal.NewFromString(string(v.ByteArray()))
		if err != nil {
			return dataset.Null, err
		}
		return dataset.Decimal(d), nil
	default:
		return dataset.String(string(v.ByteArray())), nil
	}
}
