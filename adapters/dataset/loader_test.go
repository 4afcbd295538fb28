package dataset

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"amesdash/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// amesLikeCSV builds a small table shaped like the Ames export: a unique id,
// a price with thousands separators, a text factor, a low-cardinality year,
// a high-cardinality numeric, and an all-missing column.
func amesLikeCSV(rows int) string {
	var b strings.Builder
	b.WriteString("Order,SalePrice,House Style,Yr Sold,Lot Area,Alley\n")
	styles := []string{"1Story", "2Story", "SLvl"}
	for i := 0; i < rows; i++ {
		price := fmt.Sprintf("\"%d,500\"", 150+i) // e.g. "152,500"
		style := styles[i%len(styles)]
		year := 2006 + i%5
		fmt.Fprintf(&b, "%d,%s,%s,%d,%d,NA\n", i+1, price, style, year, 7000+i*37)
	}
	return b.String()
}

func serveCSV(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func loaderFor(urls ...string) *Loader {
	return NewLoader(config.DataConfig{
		URLs:         urls,
		PreviewRows:  10,
		FetchTimeout: 5 * time.Second,
	})
}

func TestLoaderBuildsDataset(t *testing.T) {
	body := amesLikeCSV(24)
	// Corrupt one price so its row gets dropped.
	body = strings.Replace(body, "\"151,500\"", "NA", 1)
	srv := serveCSV(t, body, nil)

	ds, err := loaderFor(srv.URL).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PriceColumn, ds.PriceColumn)
	assert.Equal(t, srv.URL, ds.Source)
	assert.Equal(t, 23, ds.Frame.RowCount(), "the row without a price must be dropped")
	require.Len(t, ds.Price, 23)
	assert.Equal(t, 150500.0, ds.Price[0], "thousands separators must parse")

	// Text column and low-cardinality year are candidates; the unique id,
	// the high-cardinality lot area, the all-missing alley, and the price
	// itself are not.
	assert.Equal(t, []string{"housestyle", "yrsold"}, ds.Categoricals)
}

func TestLoaderRenamesSalePriceVariant(t *testing.T) {
	body := "Sale_Price,House Style\n100000,1Story\n200000,2Story\n"
	srv := serveCSV(t, body, nil)

	ds, err := loaderFor(srv.URL).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PriceColumn, ds.PriceColumn)
	assert.True(t, ds.Frame.HasColumn(PriceColumn))
}

func TestLoaderFallsBackAcrossURLs(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)
	good := serveCSV(t, amesLikeCSV(12), nil)

	ds, err := loaderFor(broken.URL, good.URL).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, good.URL, ds.Source)
}

func TestLoaderReportsUnavailableData(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(broken.Close)

	_, err := loaderFor(broken.URL).Load(context.Background())
	require.Error(t, err)
}

func TestLoaderFetchesOnceUnderConcurrency(t *testing.T) {
	var hits int32
	srv := serveCSV(t, amesLikeCSV(24), &hits)
	loader := loaderFor(srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := loader.Load(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "concurrent first loads must collapse into one fetch")

	// Cached afterwards.
	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLoaderReloadRefetches(t *testing.T) {
	var hits int32
	srv := serveCSV(t, amesLikeCSV(24), &hits)
	loader := loaderFor(srv.URL)

	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	_, err = loader.Reload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestLoaderPrefersLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ames.csv")
	require.NoError(t, os.WriteFile(path, []byte(amesLikeCSV(12)), 0o644))

	var hits int32
	srv := serveCSV(t, amesLikeCSV(24), &hits)

	loader := NewLoader(config.DataConfig{
		URLs:         []string{srv.URL},
		LocalFile:    path,
		PreviewRows:  10,
		FetchTimeout: 5 * time.Second,
	})
	ds, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, path, ds.Source)
	assert.Equal(t, 12, ds.Frame.RowCount())
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "local file must shadow the remote URLs")
}

func TestSampleForSkipsMissingFactors(t *testing.T) {
	body := amesLikeCSV(24)
	body = strings.Replace(body, "1Story", "NA", 1)
	srv := serveCSV(t, body, nil)

	ds, err := loaderFor(srv.URL).Load(context.Background())
	require.NoError(t, err)

	sample, err := ds.SampleFor("housestyle")
	require.NoError(t, err)
	assert.Equal(t, 23, sample.Len(), "rows with a missing factor are dropped pairwise")
	assert.Equal(t, "housestyle", sample.Variable)
	assert.Equal(t, PriceColumn, sample.Response)
	assert.Len(t, sample.Factors, sample.Len())

	_, err = ds.SampleFor("nosuchcolumn")
	require.Error(t, err)
}

func TestNormalizeColumn(t *testing.T) {
	cases := map[string]string{
		"House Style": "housestyle",
		"Yr Sold":     "yrsold",
		"Sale_Price":  "sale_price",
		"Lot.Area":    "lotarea",
		"MS-Zoning":   "mszoning",
		"saleprice":   "saleprice",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeColumn(in), "input %q", in)
		assert.Equal(t, want, NormalizeColumn(NormalizeColumn(in)), "normalization must be idempotent for %q", in)
	}
}

func TestParseNumeric(t *testing.T) {
	v, ok := ParseNumeric(" 152,500 ")
	assert.True(t, ok)
	assert.Equal(t, 152500.0, v)

	for _, raw := range []string{"", "NA", "N/A", "null", "NaN", "abc"} {
		_, ok := ParseNumeric(raw)
		assert.False(t, ok, "input %q", raw)
	}
}

func TestFileReaderCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0o644))

	rows, err := NewFileReader(path).Read()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}}, rows)

	_, err = NewFileReader(filepath.Join(t.TempDir(), "missing.csv")).Read()
	require.Error(t, err)
}

func TestFrameHandlesRaggedRows(t *testing.T) {
	f := NewFrame([]string{"a", "b", "c"}, [][]string{
		{"1", "2", "3"},
		{"4"},
		{"5", "6", "7", "8"},
	})
	assert.Equal(t, 3, f.RowCount())
	assert.Equal(t, "", f.Cell(1, "b"), "short rows are padded")
	assert.Equal(t, "7", f.Cell(2, "c"), "long rows are truncated")

	col, ok := f.Column("a")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "4", "5"}, col)

	assert.Len(t, f.Head(2), 2)
	assert.Len(t, f.Head(99), 3)
}
