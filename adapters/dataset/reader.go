package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"amesdash/internal/errors"

	"github.com/xuri/excelize/v2"
)

// FileReader reads tabular data from a local CSV or XLSX file.
type FileReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewFileReader creates a reader for a local data file, dispatching on the
// file extension.
func NewFileReader(filePath string) *FileReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" {
		fileType = "xlsx"
	}
	return &FileReader{filePath: filePath, fileType: fileType}
}

// Read returns the raw rows of the file, header first.
func (r *FileReader) Read() ([][]string, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "xlsx":
		return r.readExcel()
	default:
		return r.readCSV()
	}
}

func (r *FileReader) readExcel() ([][]string, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	log.Printf("[FileReader] Excel file read in %.2fms (%d rows)",
		float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel file must have at least a header row and one data row")
	}
	return rows, nil
}

func (r *FileReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	start := time.Now()
	rows, err := parseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	log.Printf("[FileReader] CSV file read in %.2fms (%d rows)",
		float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}
	return rows, nil
}

// RemoteReader downloads CSV data from a list of candidate URLs, trying each
// in order until one yields a parseable table.
type RemoteReader struct {
	urls    []string
	client  *http.Client
	timeout time.Duration
}

// NewRemoteReader creates a reader for remote CSV sources.
func NewRemoteReader(urls []string, timeout time.Duration) *RemoteReader {
	return &RemoteReader{
		urls:    urls,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Read fetches the first reachable URL and returns its rows together with
// the URL that succeeded.
func (r *RemoteReader) Read(ctx context.Context) ([][]string, string, error) {
	var lastErr error
	for _, url := range r.urls {
		rows, err := r.fetch(ctx, url)
		if err != nil {
			log.Printf("[RemoteReader] fetch failed for %s: %v", url, err)
			lastErr = err
			continue
		}
		log.Printf("[RemoteReader] dataset loaded from %s (%d rows)", url, len(rows))
		return rows, url, nil
	}
	unavailable := errors.DataUnavailable("none of the known data sources could be fetched")
	unavailable.Cause = lastErr
	return nil, "", unavailable
}

func (r *RemoteReader) fetch(ctx context.Context, url string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	rows, err := parseCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("response has no data rows")
	}
	return rows, nil
}

func parseCSV(reader io.Reader) ([][]string, error) {
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1 // tolerate ragged rows; the frame pads them
	return cr.ReadAll()
}
