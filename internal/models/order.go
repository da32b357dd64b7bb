package models

import (
	"encoding/json"
	"time"
)

// Severity markers an alert can stamp on an order.
const (
	SeverityRed    = "red"
	SeverityOrange = "orange"
)

// ProductionOrder is the core work item on the board. It moves forward
// through StageSequence one stage at a time; CurrentStage is always an
// element of StageSequence.
type ProductionOrder struct {
	OrderNumber         string                 `json:"order_number"`
	Client              string                 `json:"client"`
	Product             string                 `json:"product"`
	Quantity            float64                `json:"quantity"`
	DeliveryDate        string                 `json:"delivery_date"`
	StageSequence       []string               `json:"stage_sequence"`
	CurrentStage        string                 `json:"current_stage"`
	Planning            map[string]interface{} `json:"planning"`
	TransitionHistory   []TransitionRecord     `json:"transition_history"`
	AssociatedImagePath string                 `json:"associated_image_path,omitempty"`
	AlertSeverity       string                 `json:"alert_severity,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// TransitionRecord is one stay in a stage. LeftAt is nil exactly for the
// order's current stage.
type TransitionRecord struct {
	Stage                  string     `json:"stage"`
	EnteredAt              time.Time  `json:"entered_at"`
	LeftAt                 *time.Time `json:"left_at"`
	Observation            string     `json:"observation,omitempty"`
	EvidencePhotoReference string     `json:"evidence_photo_reference,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// OpenTransition returns the order's open transition record, or nil if the
// history is empty or already fully closed.
func (o *ProductionOrder) OpenTransition() *TransitionRecord {
	for i := len(o.TransitionHistory) - 1; i >= 0; i-- {
		if o.TransitionHistory[i].LeftAt == nil {
			return &o.TransitionHistory[i]
		}
	}
	return nil
}

// StageIndex returns the position of the order's current stage within its
// stage sequence, or -1 if the current stage is not in the sequence.
func (o *ProductionOrder) StageIndex() int {
	for i, s := range o.StageSequence {
		if s == o.CurrentStage {
			return i
		}
	}
	return -1
}

// Terminal reports whether the order sits in the last stage of its sequence.
func (o *ProductionOrder) Terminal() bool {
	idx := o.StageIndex()
	return idx >= 0 && idx == len(o.StageSequence)-1
}

type productionOrderAlias ProductionOrder

func (o *ProductionOrder) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*productionOrderAlias)(o)); err != nil {
		return err
	}
	extra, err := extraFields(data, o)
	if err != nil {
		return err
	}
	o.Extra = extra
	return nil
}

func (o ProductionOrder) MarshalJSON() ([]byte, error) {
	return mergeExtra(productionOrderAlias(o), o.Extra)
}

type transitionRecordAlias TransitionRecord

func (r *TransitionRecord) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*transitionRecordAlias)(r)); err != nil {
		return err
	}
	extra, err := extraFields(data, r)
	if err != nil {
		return err
	}
	r.Extra = extra
	return nil
}

func (r TransitionRecord) MarshalJSON() ([]byte, error) {
	return mergeExtra(transitionRecordAlias(r), r.Extra)
}
