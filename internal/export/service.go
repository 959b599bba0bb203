package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
	"github.com/joseph-ayodele/proposal-extractor/internal/repository"
)

const (
	ProposalsSheet = "Proposals"
	ServicesSheet  = "Services"
)

// Row is one document in an export. Result is nil for failed runs.
type Row struct {
	Source string
	RunID  string
	Status string
	Result *entity.ExtractionResult
	Error  string
}

// Service produces XLSX bytes from the extraction journal.
type Service struct {
	runs   repository.ExtractionRunRepository
	logger *slog.Logger
}

func NewService(runs repository.ExtractionRunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

// ExportRunsXLSX returns a workbook for the most recent journaled runs.
func (s *Service) ExportRunsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	runs, err := s.runs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	rows := make([]Row, 0, len(runs))
	for _, r := range runs {
		row := Row{Source: r.Source, RunID: r.ID.String(), Status: string(r.Status)}
		if r.ErrorMessage != nil {
			row.Error = *r.ErrorMessage
		}
		res, err := r.Result()
		if err != nil {
			s.logger.Warn("export.result.decode_error", "run_id", r.ID, "error", err)
		}
		row.Result = res
		rows = append(rows, row)
	}

	b, err := WriteResultsXLSX(rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

// WriteResultsXLSX renders one Proposals row per document and one Services
// row per priced line.
func WriteResultsXLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default "Sheet1" becomes Proposals
	if err := f.SetSheetName("Sheet1", ProposalsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ServicesSheet); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(ProposalsSheet)
	f.SetActiveSheet(idx)

	writeRow(f, ProposalsSheet, 1, []any{
		"Source", "Run ID", "Status", "Project", "Address", "Client",
		"Total Price", "Confidence", "Services", "Warnings", "Error",
	})
	writeRow(f, ServicesSheet, 1, []any{"Source", "Service", "Description", "Quantity", "Price"})

	svcRow := 2
	for i, r := range rows {
		vals := []any{r.Source, r.RunID, r.Status}
		if res := r.Result; res != nil {
			vals = append(vals,
				res.ProjectName, res.ProjectAddress, res.ClientName,
				res.TotalPrice, res.Confidence, len(res.Services),
				truncate(strings.Join(res.Warnings, "; "), 240),
			)
			for _, s := range res.Services {
				writeRow(f, ServicesSheet, svcRow, []any{r.Source, s.Name, truncate(s.Description, 240), s.Quantity, s.Price})
				svcRow++
			}
		} else {
			vals = append(vals, "", "", "", "", "", "", "")
		}
		vals = append(vals, truncate(r.Error, 240))
		writeRow(f, ProposalsSheet, i+2, vals)
	}

	_ = f.SetColWidth(ProposalsSheet, "A", "A", 48) // source
	_ = f.SetColWidth(ProposalsSheet, "B", "B", 38) // run id
	_ = f.SetColWidth(ProposalsSheet, "D", "F", 28)
	_ = f.SetColWidth(ProposalsSheet, "G", "I", 12)
	_ = f.SetColWidth(ProposalsSheet, "J", "K", 60)
	_ = f.SetColWidth(ServicesSheet, "A", "A", 48)
	_ = f.SetColWidth(ServicesSheet, "B", "C", 36)
	_ = f.SetColWidth(ServicesSheet, "D", "E", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, vals []any) {
	for i, v := range vals {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
