// Package excel renders the flag and check-in registers into an .xlsx
// workbook for the recovery team.
package excel

import (
	"fmt"
	"time"

	"talentbridge/models"

	"github.com/xuri/excelize/v2"
)

var flagHeaders = []string{
	"Flag ID", "Introduction ID", "Status", "Detected At", "Detection Method",
	"Evidence Items", "Estimated Salary", "Fee %", "Estimated Fee Owed",
	"Invoice Number", "Invoice Amount", "Invoice Sent At", "Invoice Paid At",
	"Resolution", "Resolution Notes",
}

var checkInHeaders = []string{
	"Check-in ID", "Introduction ID", "Number", "Scheduled For", "Sent At",
	"Responded At", "Response Type", "Risk Level", "Risk Reason",
	"Flagged For Review", "Review Notes",
}

// BuildReport assembles a workbook with one sheet per register.
func BuildReport(flagList []*models.CircumventionFlag, checkIns []*models.CheckIn) (*excelize.File, error) {
	f := excelize.NewFile()

	const flagSheet = "Flags"
	if err := f.SetSheetName("Sheet1", flagSheet); err != nil {
		return nil, fmt.Errorf("rename flag sheet: %w", err)
	}
	if err := writeRow(f, flagSheet, 1, toCells(flagHeaders)); err != nil {
		return nil, err
	}
	for i, flag := range flagList {
		row := []interface{}{
			flag.ID.String(), flag.IntroductionID.String(), string(flag.Status),
			formatTime(&flag.DetectedAt), string(flag.DetectionMethod),
			len(flag.Evidence), flag.EstimatedSalary, flag.FeePercentage, flag.EstimatedFeeOwed,
			strOrEmpty(flag.InvoiceNumber), floatOrEmpty(flag.InvoiceAmount),
			formatTime(flag.InvoiceSentAt), formatTime(flag.InvoicePaidAt),
			strOrEmpty(flag.Resolution), strOrEmpty(flag.ResolutionNotes),
		}
		if err := writeRow(f, flagSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	const checkInSheet = "Check-ins"
	if _, err := f.NewSheet(checkInSheet); err != nil {
		return nil, fmt.Errorf("create check-in sheet: %w", err)
	}
	if err := writeRow(f, checkInSheet, 1, toCells(checkInHeaders)); err != nil {
		return nil, err
	}
	for i, ci := range checkIns {
		row := []interface{}{
			ci.ID.String(), ci.IntroductionID.String(), ci.CheckInNumber,
			formatTime(&ci.ScheduledFor), formatTime(ci.SentAt), formatTime(ci.RespondedAt),
			respOrEmpty(ci.ResponseType), riskOrEmpty(ci.RiskLevel), strOrEmpty(ci.RiskReason),
			ci.FlaggedForReview, strOrEmpty(ci.ReviewNotes),
		}
		if err := writeRow(f, checkInSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func writeRow(f *excelize.File, sheet string, rowIdx int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
		if err != nil {
			return fmt.Errorf("cell coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}

func toCells(headers []string) []interface{} {
	cells := make([]interface{}, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	return cells
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrEmpty(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}

func respOrEmpty(t *models.ResponseType) string {
	if t == nil {
		return ""
	}
	return string(*t)
}

func riskOrEmpty(r *models.RiskLevel) string {
	if r == nil {
		return ""
	}
	return string(*r)
}
