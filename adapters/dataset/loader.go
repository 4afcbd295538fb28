package dataset

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"

	"amesdash/domain/anova"
	"amesdash/internal/config"
	"amesdash/internal/errors"

	"golang.org/x/sync/singleflight"
)

// PriceColumn is the canonical name of the sale-price column after
// normalization.
const PriceColumn = "saleprice"

// maxNumericLevels is the cardinality below which a numeric column is
// treated as a categorical candidate (e.g. year sold, quality codes).
const maxNumericLevels = 20

// Dataset is the loaded, cleaned table plus the column roles derived from
// it. It is read-only after construction; analyses must not mutate it.
type Dataset struct {
	Frame *Frame
	// PriceColumn is empty when no usable price column was found.
	PriceColumn string
	// Price is the coerced sale price, aligned with the frame rows (rows
	// with a missing price have been dropped).
	Price []float64
	// Categoricals are the candidate factor columns: text columns plus
	// low-cardinality numeric columns, excluding the price column.
	Categoricals []string
	// Source names where the data came from (URL or file path).
	Source string
}

// SampleFor builds the cleaned (factor, response) sample for one
// categorical variable, removing rows where the factor is missing. The
// price is already non-missing by construction.
func (d *Dataset) SampleFor(variable string) (*anova.Sample, error) {
	values, ok := d.Frame.Column(variable)
	if !ok {
		return nil, errors.New(errors.CodeInsufficientData,
			"column "+variable+" not found in dataset")
	}

	s := &anova.Sample{
		Variable: variable,
		Response: d.PriceColumn,
		Factors:  make([]anova.FactorLevel, 0, len(values)),
		Values:   make([]float64, 0, len(values)),
	}
	for i, raw := range values {
		if IsMissing(raw) {
			continue
		}
		s.Factors = append(s.Factors, anova.FactorLevel(strings.TrimSpace(raw)))
		s.Values = append(s.Values, d.Price[i])
	}
	return s, nil
}

// Loader acquires the dataset and caches it for the process lifetime. The
// cache is explicit state on the Loader (not hidden module state) and its
// invalidation rule is Reload: callers decide when a refetch happens.
type Loader struct {
	cfg config.DataConfig

	group singleflight.Group

	mu     sync.RWMutex
	cached *Dataset
}

// NewLoader creates a dataset loader from the data configuration.
func NewLoader(cfg config.DataConfig) *Loader {
	return &Loader{cfg: cfg}
}

// Load returns the cached dataset, fetching it on first use. Concurrent
// first loads are collapsed into a single fetch.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	l.mu.RLock()
	cached := l.cached
	l.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	result, err, _ := l.group.Do("dataset", func() (interface{}, error) {
		// Re-check under the flight: another caller may have stored it.
		l.mu.RLock()
		existing := l.cached
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		ds, fetchErr := l.fetch(ctx)
		if fetchErr != nil {
			return nil, fetchErr
		}

		l.mu.Lock()
		l.cached = ds
		l.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Dataset), nil
}

// Reload drops the cached dataset and fetches it again.
func (l *Loader) Reload(ctx context.Context) (*Dataset, error) {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
	return l.Load(ctx)
}

func (l *Loader) fetch(ctx context.Context) (*Dataset, error) {
	var (
		rows   [][]string
		source string
		err    error
	)

	if l.cfg.LocalFile != "" {
		rows, err = NewFileReader(l.cfg.LocalFile).Read()
		source = l.cfg.LocalFile
	} else {
		rows, source, err = NewRemoteReader(l.cfg.URLs, l.cfg.FetchTimeout).Read(ctx)
	}
	if err != nil {
		return nil, errors.Wrap(err, "dataset unavailable")
	}

	return build(rows, source)
}

var columnCleaner = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// NormalizeColumn canonicalizes a column name: non-alphanumerics stripped
// (underscore kept), lowercased.
func NormalizeColumn(name string) string {
	return strings.ToLower(columnCleaner.ReplaceAllString(name, ""))
}

// build turns raw rows into a Dataset: normalize headers, locate and coerce
// the price column, drop rows without a price, and classify the candidate
// categorical columns.
func build(rows [][]string, source string) (*Dataset, error) {
	header := rows[0]
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = NormalizeColumn(name)
	}

	// The price column sometimes survives normalization as sale_price.
	for i, name := range columns {
		if name == "sale_price" {
			columns[i] = PriceColumn
		}
	}

	frame := NewFrame(columns, rows[1:])

	ds := &Dataset{Frame: frame, Source: source}
	if frame.HasColumn(PriceColumn) {
		ds.PriceColumn = PriceColumn
	}

	if ds.PriceColumn != "" {
		raw, _ := frame.Column(ds.PriceColumn)
		valid := make([]bool, len(raw))
		for i, cell := range raw {
			_, ok := ParseNumeric(cell)
			valid[i] = ok
		}
		frame = frame.filterRows(func(row int) bool { return valid[row] })
		ds.Frame = frame

		price := make([]float64, frame.RowCount())
		cells, _ := frame.Column(ds.PriceColumn)
		for i, cell := range cells {
			v, _ := ParseNumeric(cell)
			price[i] = v
		}
		ds.Price = price
	}

	ds.Categoricals = candidateCategoricals(frame, ds.PriceColumn)

	log.Printf("[Loader] dataset built: %d rows, %d columns, price=%q, %d categorical candidates",
		frame.RowCount(), len(frame.Columns()), ds.PriceColumn, len(ds.Categoricals))
	return ds, nil
}

// candidateCategoricals selects the factor candidates: every text column,
// plus numeric columns with fewer than maxNumericLevels distinct values,
// excluding the price column. The result is deduplicated and sorted.
func candidateCategoricals(frame *Frame, priceColumn string) []string {
	seen := make(map[string]bool)
	var candidates []string

	for _, col := range frame.Columns() {
		if col == priceColumn || seen[col] {
			continue
		}
		values, _ := frame.Column(col)

		numeric := true
		distinct := make(map[string]bool)
		observed := 0
		for _, v := range values {
			if IsMissing(v) {
				continue
			}
			observed++
			distinct[strings.TrimSpace(v)] = true
			if _, ok := ParseNumeric(v); !ok {
				numeric = false
			}
		}
		if observed == 0 {
			continue
		}

		if !numeric || len(distinct) < maxNumericLevels {
			seen[col] = true
			candidates = append(candidates, col)
		}
	}

	sort.Strings(candidates)
	return candidates
}
