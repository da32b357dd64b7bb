package dashboard

import (
	"github.com/omlean/opboard/internal/board"
	"github.com/omlean/opboard/internal/catalog"
	"github.com/omlean/opboard/internal/models"
)

// BoardCard is one order rendered on the kanban view.
type BoardCard struct {
	Order        models.ProductionOrder
	Marker       string // severity emoji
	NextStage    string // empty when terminal
	Terminal     bool
	Inconsistent bool // current stage missing from the order's own sequence
}

// BoardColumn is one catalog stage with the orders currently sitting in it.
type BoardColumn struct {
	Stage models.Stage
	Cards []BoardCard
}

// boardColumns groups all orders under the catalog stages, in catalog
// display order. Orders whose current stage is not in their own sequence
// are shown but flagged, never advanced.
func boardColumns(cat *catalog.Catalog, engine *board.Engine) ([]BoardColumn, error) {
	stages, err := cat.List()
	if err != nil {
		return nil, err
	}
	orders, err := engine.List()
	if err != nil {
		return nil, err
	}

	columns := make([]BoardColumn, len(stages))
	for i, s := range stages {
		columns[i].Stage = s
		for _, o := range orders {
			if o.CurrentStage != s.Name {
				continue
			}
			card := BoardCard{
				Order:  o,
				Marker: severityMarker(o.AlertSeverity),
			}
			idx := o.StageIndex()
			switch {
			case idx < 0:
				card.Inconsistent = true
			case idx == len(o.StageSequence)-1:
				card.Terminal = true
			default:
				card.NextStage = o.StageSequence[idx+1]
			}
			columns[i].Cards = append(columns[i].Cards, card)
		}
	}
	return columns, nil
}

// severityMarker maps an order's alert severity to its board emoji.
func severityMarker(severity string) string {
	switch severity {
	case models.SeverityRed:
		return "🔴"
	case models.SeverityOrange:
		return "🟡"
	default:
		return "🟢"
	}
}
