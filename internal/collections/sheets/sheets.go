// Package sheets loads receivable metrics from a Google spreadsheet into a
// memory.Store and keeps it refreshed.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/odyssey-erp/arcollect/internal/collections"
	"github.com/odyssey-erp/arcollect/internal/collections/memory"
	"github.com/odyssey-erp/arcollect/internal/format"
)

// Sheet ranges read on every refresh.
const (
	TrendRange    = "Trend!A2:D"
	CustomerRange = "Customers!A2:G"
)

// Source serves collections.Repository from the last successful sheet load.
type Source struct {
	*memory.Store

	svc           *gsheet.Service
	spreadsheetID string
	logger        *slog.Logger
	loadedAt      time.Time
}

var _ collections.Repository = (*Source)(nil)

// NewService builds a read-only Sheets client from a service account file.
func NewService(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*gsheet.Service, error) {
	if strings.TrimSpace(credentialsFile) != "" {
		raw, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("sheets: read credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(raw))
	}
	opts = append(opts, option.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return svc, nil
}

// New constructs an empty Source. Call Refresh before serving requests.
func New(svc *gsheet.Service, spreadsheetID string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		Store:         memory.New(nil, nil),
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger,
	}
}

// Refresh reads both ranges and replaces the store contents. Rows that cannot
// be parsed are skipped and logged.
func (s *Source) Refresh(ctx context.Context) error {
	if s.svc == nil {
		return errors.New("sheets: service not initialised")
	}
	resp, err := s.svc.Spreadsheets.Values.BatchGet(s.spreadsheetID).
		Ranges(TrendRange, CustomerRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: batch get: %w", err)
	}
	if len(resp.ValueRanges) != 2 {
		return fmt.Errorf("sheets: expected 2 ranges, got %d", len(resp.ValueRanges))
	}

	trends := make([]memory.TrendRecord, 0, len(resp.ValueRanges[0].Values))
	for i, row := range resp.ValueRanges[0].Values {
		rec, err := parseTrendRow(row)
		if err != nil {
			s.logger.Warn("skip trend row", slog.Int("row", i+2), slog.Any("error", err))
			continue
		}
		trends = append(trends, rec)
	}
	customers := make([]memory.CustomerRecord, 0, len(resp.ValueRanges[1].Values))
	for i, row := range resp.ValueRanges[1].Values {
		rec, err := parseCustomerRow(row)
		if err != nil {
			s.logger.Warn("skip customer row", slog.Int("row", i+2), slog.Any("error", err))
			continue
		}
		customers = append(customers, rec)
	}

	s.Store.Replace(trends, customers)
	s.loadedAt = time.Now()
	s.logger.Info("sheets refreshed",
		slog.Int("trend_rows", len(trends)),
		slog.Int("customer_rows", len(customers)))
	return nil
}

// Run refreshes on every interval tick until ctx is cancelled. Failures keep
// the previous data.
func (s *Source) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("sheets refresh", slog.Any("error", err))
			}
		}
	}
}

// Ping checks that the spreadsheet is reachable.
func (s *Source) Ping(ctx context.Context) error {
	if s.svc == nil {
		return errors.New("sheets: service not initialised")
	}
	_, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: ping: %w", err)
	}
	return nil
}

func parseTrendRow(row []any) (memory.TrendRecord, error) {
	if len(row) < 4 {
		return memory.TrendRecord{}, fmt.Errorf("want 4 columns, got %d", len(row))
	}
	division, err := collections.ParseDivision(cell(row, 0))
	if err != nil {
		return memory.TrendRecord{}, err
	}
	month, err := format.ParseMonth(cell(row, 1))
	if err != nil {
		return memory.TrendRecord{}, err
	}
	over30, err := number(row, 2)
	if err != nil {
		return memory.TrendRecord{}, err
	}
	over90, err := number(row, 3)
	if err != nil {
		return memory.TrendRecord{}, err
	}
	return memory.TrendRecord{Division: division, Month: month, Over30Pct: over30, Over90Pct: over90}, nil
}

func parseCustomerRow(row []any) (memory.CustomerRecord, error) {
	if len(row) < 6 {
		return memory.CustomerRecord{}, fmt.Errorf("want at least 6 columns, got %d", len(row))
	}
	division, err := collections.ParseDivision(cell(row, 0))
	if err != nil {
		return memory.CustomerRecord{}, err
	}
	month, err := format.ParseMonth(cell(row, 1))
	if err != nil {
		return memory.CustomerRecord{}, err
	}
	rec := memory.CustomerRecord{
		Division:       division,
		Month:          month,
		CustomerNumber: cell(row, 2),
		CustomerName:   cell(row, 3),
	}
	if rec.CustomerName == "" {
		return memory.CustomerRecord{}, errors.New("customer name missing")
	}
	if rec.CustomerNumber == "" {
		rec.CustomerNumber = rec.CustomerName
	}
	if rec.Over30, err = number(row, 4); err != nil {
		return memory.CustomerRecord{}, err
	}
	if rec.Over90, err = number(row, 5); err != nil {
		return memory.CustomerRecord{}, err
	}
	if len(row) > 6 {
		if rec.ForecastBadDebt, err = number(row, 6); err != nil {
			return memory.CustomerRecord{}, err
		}
	}
	return rec, nil
}

func cell(row []any, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

// number accepts raw numbers and formatted strings such as "$1,200.50" or "12%".
func number(row []any, idx int) (float64, error) {
	if idx < len(row) {
		if f, ok := row[idx].(float64); ok {
			return f, nil
		}
	}
	raw := cell(row, idx)
	if raw == "" {
		return 0, nil
	}
	cleaned := strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(raw)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("column %d: parse %q: %w", idx+1, raw, err)
	}
	return f, nil
}
