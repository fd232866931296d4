package export

import (
	"fmt"
	"io"
	"time"

	"sunolegal/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{
	"ID", "User ID", "Lawyer ID", "Lawyer", "Package Type", "Package", "Price", "Duration (min)",
	"Scheduled At", "Status", "Payment", "Created At", "Updated At",
}

// FileName returns the download name for an export generated at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", t.UTC().Format("20060102_150405"))
}

// WriteBookings renders bookings as an XLSX workbook with a per-status summary sheet.
func WriteBookings(w io.Writer, bookings []*models.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, h)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(bookingsSheet, "A1", lastHeader, headerStyle)

	for i, b := range bookings {
		row := i + 2
		if err := f.SetSheetRow(bookingsSheet, fmt.Sprintf("A%d", row), &[]interface{}{
			b.ID,
			b.UserID,
			b.LawyerID,
			b.LawyerName,
			b.PackageType,
			b.PackageName,
			b.Price,
			b.Duration,
			scheduledLabel(b),
			b.Status,
			b.PaymentStatus,
			b.CreatedAt.Format("2006-01-02 15:04"),
			b.UpdatedAt.Format("2006-01-02 15:04"),
		}); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(bookingsSheet, "B", "M", 18)
	_ = f.SetPanes(bookingsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := writeSummary(f, bookings, headerStyle); err != nil {
		return err
	}

	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, bookings []*models.Booking, headerStyle int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	counts := make(map[string]int)
	revenue := make(map[string]int64)
	for _, b := range bookings {
		counts[b.Status]++
		if b.PaymentStatus == models.PaymentPaid {
			revenue[b.Status] += b.Price
		}
	}

	_ = f.SetSheetRow(summarySheet, "A1", &[]interface{}{"Status", "Bookings", "Paid Amount"})
	_ = f.SetCellStyle(summarySheet, "A1", "C1", headerStyle)

	row := 2
	var total int
	var totalPaid int64
	for _, status := range []string{models.StatusPending, models.StatusConfirmed, models.StatusCompleted, models.StatusCancelled} {
		_ = f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &[]interface{}{status, counts[status], revenue[status]})
		total += counts[status]
		totalPaid += revenue[status]
		row++
	}
	_ = f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &[]interface{}{"total", total, totalPaid})

	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row), boldStyle)
	_ = f.SetColWidth(summarySheet, "A", "C", 16)
	return nil
}

func scheduledLabel(b *models.Booking) string {
	if b.IsImmediate() {
		return "immediate"
	}
	return b.ScheduledDateTime
}
