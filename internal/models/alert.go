package models

import (
	"encoding/json"
	"time"
)

// Alert types recorded in pending alerts and traceability entries. The
// values match the labels in the historical data files.
const (
	AlertMachineDown         = "Máquina malograda"
	AlertMaterialOrPaperwork = "Falta de material o sin OP física"
	AlertSplit               = "Subdivisión de OP"
)

// Alert is a pending floor alert tied to an order and the stage it was at
// when raised. Alerts are not keyed by order; one order may have several
// pending at once.
type Alert struct {
	OrderNumber            string    `json:"order_number"`
	Client                 string    `json:"client"`
	Product                string    `json:"product"`
	Timestamp              time.Time `json:"timestamp"`
	RaisedByUser           string    `json:"raised_by_user"`
	StageAtTime            string    `json:"stage_at_time"`
	AlertType              string    `json:"alert_type"`
	SeverityColor          string    `json:"severity_color"`
	Comment                string    `json:"comment"`
	EvidencePhotoReference string    `json:"evidence_photo_reference,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// ResolvedAlert is an alert moved to the append-only resolved history,
// stamped with who resolved it and when. Flat copy of the Alert fields so
// the historical JSON schema stays a single object.
type ResolvedAlert struct {
	OrderNumber            string    `json:"order_number"`
	Client                 string    `json:"client"`
	Product                string    `json:"product"`
	Timestamp              time.Time `json:"timestamp"`
	RaisedByUser           string    `json:"raised_by_user"`
	StageAtTime            string    `json:"stage_at_time"`
	AlertType              string    `json:"alert_type"`
	SeverityColor          string    `json:"severity_color"`
	Comment                string    `json:"comment"`
	EvidencePhotoReference string    `json:"evidence_photo_reference,omitempty"`
	ResolvedBy             string    `json:"resolved_by"`
	ResolvedAt             time.Time `json:"resolved_at"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Resolved copies the alert into a ResolvedAlert stamped with the resolver
// identity and resolution time. Unknown legacy fields carry over.
func (a Alert) Resolved(by string, at time.Time) ResolvedAlert {
	return ResolvedAlert{
		OrderNumber:            a.OrderNumber,
		Client:                 a.Client,
		Product:                a.Product,
		Timestamp:              a.Timestamp,
		RaisedByUser:           a.RaisedByUser,
		StageAtTime:            a.StageAtTime,
		AlertType:              a.AlertType,
		SeverityColor:          a.SeverityColor,
		Comment:                a.Comment,
		EvidencePhotoReference: a.EvidencePhotoReference,
		ResolvedBy:             by,
		ResolvedAt:             at,
		Extra:                  a.Extra,
	}
}

type alertAlias Alert

func (a *Alert) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*alertAlias)(a)); err != nil {
		return err
	}
	extra, err := extraFields(data, a)
	if err != nil {
		return err
	}
	a.Extra = extra
	return nil
}

func (a Alert) MarshalJSON() ([]byte, error) {
	return mergeExtra(alertAlias(a), a.Extra)
}

type resolvedAlertAlias ResolvedAlert

func (a *ResolvedAlert) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*resolvedAlertAlias)(a)); err != nil {
		return err
	}
	extra, err := extraFields(data, a)
	if err != nil {
		return err
	}
	a.Extra = extra
	return nil
}

func (a ResolvedAlert) MarshalJSON() ([]byte, error) {
	return mergeExtra(resolvedAlertAlias(a), a.Extra)
}
