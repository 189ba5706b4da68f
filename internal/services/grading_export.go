package services

import (
	"fmt"
	"io"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Attempts"

var exportHeaders = []string{
	"Attempt ID", "Student", "Username", "Attempt No", "Status", "Score", "Submitted At", "Comment",
}

// ExportXLSX writes the currently listed attempts as a spreadsheet.
func (g *GradingConsole) ExportXLSX(w io.Writer) error {
	return WriteAttemptsXLSX(w, g.Attempts())
}

// WriteAttemptsXLSX writes one row per attempt under a header row.
func WriteAttemptsXLSX(w io.Writer, attempts []models.AttemptSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	for i, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return err
		}
	}

	for i, a := range attempts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			a.ID.String(),
			a.DisplayName(),
			a.StudentUsername,
			a.AttemptNo,
			string(a.Status),
			"",
			"",
			a.Comment,
		}
		if a.Score != nil {
			row[5] = *a.Score
		}
		if a.SubmittedAt != nil {
			row[6] = a.SubmittedAt.UTC().Format(time.RFC3339)
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write attempt %s: %w", a.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}
