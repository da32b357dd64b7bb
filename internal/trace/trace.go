// Package trace maintains the append-only traceability log and its
// read-only reporting projections. Entries are never edited or deleted
// after append.
package trace

import (
	"github.com/omlean/opboard/internal/models"
	"github.com/omlean/opboard/internal/store"
)

// Log is the append sink for traceability entries.
type Log struct {
	entries store.Store[models.TraceabilityEntry]
}

// NewLog returns a Log backed by the given entry store.
func NewLog(entries store.Store[models.TraceabilityEntry]) *Log {
	return &Log{entries: entries}
}

// Append persists one entry at the end of the log.
func (l *Log) Append(e models.TraceabilityEntry) error {
	return store.Append(l.entries, e)
}

// All returns every entry in append order.
func (l *Log) All() ([]models.TraceabilityEntry, error) {
	return l.entries.Load()
}

// ByOrder returns the entries recorded for one order, in append order.
func (l *Log) ByOrder(orderNumber string) ([]models.TraceabilityEntry, error) {
	entries, err := l.entries.Load()
	if err != nil {
		return nil, err
	}
	var out []models.TraceabilityEntry
	for _, e := range entries {
		if e.OrderNumber == orderNumber {
			out = append(out, e)
		}
	}
	return out, nil
}

// AverageMetricByStage computes the mean of one stage_metrics field, grouped
// by the stage the order moved to. Entries without the metric are ignored.
func AverageMetricByStage(entries []models.TraceabilityEntry, metric string) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, e := range entries {
		v, ok := e.StageMetrics[metric]
		if !ok {
			continue
		}
		sums[e.StageAfter] += v
		counts[e.StageAfter]++
	}
	out := make(map[string]float64, len(sums))
	for stage, sum := range sums {
		out[stage] = sum / float64(counts[stage])
	}
	return out
}
