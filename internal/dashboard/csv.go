package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/omlean/opboard/internal/trace"
)

// writeHistoryCSV streams the order history rows as CSV, matching the
// column layout of the historical export.
func writeHistoryCSV(w io.Writer, rows []trace.HistoryRow) error {
	cw := csv.NewWriter(w)
	header := []string{
		"order_number", "client", "product", "stage",
		"entered_at", "left_at", "duration_min", "observation", "evidence_photo",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("dashboard: write csv header: %w", err)
	}
	for _, r := range rows {
		leftAt := ""
		if r.LeftAt != nil {
			leftAt = r.LeftAt.Format(time.RFC3339)
		}
		duration := ""
		if r.DurationMinutes != nil {
			duration = strconv.FormatFloat(*r.DurationMinutes, 'f', 2, 64)
		}
		record := []string{
			r.OrderNumber, r.Client, r.Product, r.Stage,
			r.EnteredAt.Format(time.RFC3339), leftAt, duration,
			r.Observation, r.EvidencePhoto,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("dashboard: write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("dashboard: flush csv: %w", err)
	}
	return nil
}
