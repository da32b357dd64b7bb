package models

import (
	"encoding/json"
	"time"
)

// Metric names recorded in a traceability entry's stage_metrics map. Names
// are kept as they appear in the historical data files.
const (
	MetricMaterialUsed  = "mt_utilizada"
	MetricScrap         = "merma"
	MetricFinalQuantity = "cantidad_final"
	MetricSetupTime     = "setup_time"
	MetricCycleTime     = "cycle_time"
	MetricIdleTime      = "idle_time"
	MetricTotalTime     = "tiempo_total"
	MetricPeople        = "personas"
)

// TraceabilityEntry is one append-only audit record. StageBefore equal to
// StageAfter denotes an alert-only event with no stage change.
type TraceabilityEntry struct {
	OrderNumber            string             `json:"order_number"`
	Timestamp              time.Time          `json:"timestamp"`
	ActingUser             string             `json:"acting_user"`
	StageBefore            string             `json:"stage_before"`
	StageAfter             string             `json:"stage_after"`
	AlertType              string             `json:"alert_type,omitempty"`
	Comment                string             `json:"comment,omitempty"`
	EvidencePhotoReference string             `json:"evidence_photo_reference,omitempty"`
	StageMetrics           map[string]float64 `json:"stage_metrics,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type traceabilityEntryAlias TraceabilityEntry

func (e *TraceabilityEntry) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*traceabilityEntryAlias)(e)); err != nil {
		return err
	}
	extra, err := extraFields(data, e)
	if err != nil {
		return err
	}
	e.Extra = extra
	return nil
}

func (e TraceabilityEntry) MarshalJSON() ([]byte, error) {
	return mergeExtra(traceabilityEntryAlias(e), e.Extra)
}
