package trace

import (
	"time"

	"github.com/omlean/opboard/internal/models"
)

// HistoryRow is one stage stay of one order, flattened for the history
// report and its CSV export.
type HistoryRow struct {
	OrderNumber     string
	Client          string
	Product         string
	Stage           string
	EnteredAt       time.Time
	LeftAt          *time.Time
	DurationMinutes *float64
	Observation     string
	EvidencePhoto   string
}

// HistoryRows expands every order's transition history into flat rows.
// Closed stays get a duration in minutes; the open stay has none.
func HistoryRows(orders []models.ProductionOrder) []HistoryRow {
	var rows []HistoryRow
	for _, o := range orders {
		for _, t := range o.TransitionHistory {
			row := HistoryRow{
				OrderNumber:   o.OrderNumber,
				Client:        o.Client,
				Product:       o.Product,
				Stage:         t.Stage,
				EnteredAt:     t.EnteredAt,
				LeftAt:        t.LeftAt,
				Observation:   t.Observation,
				EvidencePhoto: t.EvidencePhotoReference,
			}
			if t.LeftAt != nil {
				mins := t.LeftAt.Sub(t.EnteredAt).Minutes()
				row.DurationMinutes = &mins
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// OrdersCreatedOn filters orders whose first transition started on the given
// calendar day. Orders with an empty history never match.
func OrdersCreatedOn(orders []models.ProductionOrder, day time.Time) []models.ProductionOrder {
	y, m, d := day.Date()
	var out []models.ProductionOrder
	for _, o := range orders {
		if len(o.TransitionHistory) == 0 {
			continue
		}
		cy, cm, cd := o.TransitionHistory[0].EnteredAt.Date()
		if cy == y && cm == m && cd == d {
			out = append(out, o)
		}
	}
	return out
}
