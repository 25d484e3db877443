package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/clinic-finder/internal/clinic"
)

const (
	sheetsBaseURL       = "https://sheets.googleapis.com"
	DefaultClinicsRange = "Clinicas!A2:K"
	DefaultMappingRange = "TXS!A2:B"
)

// ErrNotConfigured is wrapped by configuration errors of every source.
var ErrNotConfigured = errors.New("source not configured")

// SheetsConfig identifies the spreadsheet and its ranges.
type SheetsConfig struct {
	APIKey        string
	SpreadsheetID string
	ClinicsRange  string
	MappingRange  string
	// BaseURL overrides the Sheets API host (tests).
	BaseURL string
}

// SheetsClient reads clinic and mapping rows from the Google Sheets values API.
// It implements clinic.RowSource.
type SheetsClient struct {
	cfg  SheetsConfig
	http *resilientGetter
}

// NewSheetsClient creates a SheetsClient. Missing ranges get the defaults.
func NewSheetsClient(client *http.Client, cfg SheetsConfig) *SheetsClient {
	if cfg.ClinicsRange == "" {
		cfg.ClinicsRange = DefaultClinicsRange
	}
	if cfg.MappingRange == "" {
		cfg.MappingRange = DefaultMappingRange
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = sheetsBaseURL
	}
	return &SheetsClient{
		cfg: cfg,
		http: newResilientGetter("google-sheets", client, BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}),
	}
}

// FetchClinicRows reads the clinic range.
func (s *SheetsClient) FetchClinicRows(ctx context.Context) ([]clinic.RawRow, error) {
	return s.FetchRange(ctx, s.cfg.ClinicsRange)
}

// FetchMappingRows reads the equipment→treatment range.
func (s *SheetsClient) FetchMappingRows(ctx context.Context) ([]clinic.RawRow, error) {
	return s.FetchRange(ctx, s.cfg.MappingRange)
}

// FetchRange reads an A1 range and returns its rows. An empty range is not
// an error.
func (s *SheetsClient) FetchRange(ctx context.Context, a1Range string) ([]clinic.RawRow, error) {
	if s.cfg.APIKey == "" || s.cfg.SpreadsheetID == "" {
		return nil, &clinic.Error{
			Kind:    clinic.KindConfiguration,
			Message: "google sheets api key or spreadsheet id is not configured",
			Err:     ErrNotConfigured,
		}
	}

	u := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?%s",
		strings.TrimRight(s.cfg.BaseURL, "/"),
		url.PathEscape(s.cfg.SpreadsheetID),
		url.PathEscape(a1Range),
		url.Values{"key": []string{s.cfg.APIKey}}.Encode(),
	)

	resp, err := s.http.get(ctx, u)
	if err != nil {
		return nil, clinic.NewUpstreamError("fetching sheet range "+a1Range, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Range  string  `json:"range"`
		Values [][]any `json:"values"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, clinic.NewUpstreamError("decoding sheet range "+a1Range, err)
	}

	rows := make([]clinic.RawRow, 0, len(payload.Values))
	for _, v := range payload.Values {
		rows = append(rows, clinic.RawRow(v))
	}
	return rows, nil
}

// RangeStatus is the outcome of probing one range.
type RangeStatus struct {
	Range string `json:"range"`
	OK    bool   `json:"ok"`
	Rows  int    `json:"rows"`
	Error string `json:"error,omitempty"`
}

// Check reads both configured ranges and reports row counts.
func (s *SheetsClient) Check(ctx context.Context) []RangeStatus {
	ranges := []string{s.cfg.ClinicsRange, s.cfg.MappingRange}
	out := make([]RangeStatus, 0, len(ranges))
	for _, r := range ranges {
		rows, err := s.FetchRange(ctx, r)
		st := RangeStatus{Range: r, OK: err == nil, Rows: len(rows)}
		if err != nil {
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	return out
}
