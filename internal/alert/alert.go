// Package alert raises and resolves floor alerts. An alert has exactly two
// states: pending after raise, then moved wholesale into the append-only
// resolved history. There is no acknowledge step and no re-open.
//
// Alerts are keyed by nothing: an order can hold several pending alerts at
// once, and a split's destructive rename leaves alerts raised against the
// parent order number orphaned in the pending set.
package alert

import (
	"fmt"
	"time"

	"github.com/omlean/opboard/internal/board"
	"github.com/omlean/opboard/internal/models"
	"github.com/omlean/opboard/internal/store"
	"github.com/omlean/opboard/internal/trace"
)

// Conditions are the boolean flags a floor worker can tick when reporting.
type Conditions struct {
	MachineDown      bool
	MaterialShortage bool
	MissingPaperwork bool
}

// rule is one row of the classification table.
type rule struct {
	match     func(Conditions) bool
	alertType string
	severity  string
}

// classification is evaluated top-down; the first matching rule decides the
// alert type and severity, never a combination.
var classification = []rule{
	{func(c Conditions) bool { return c.MachineDown }, models.AlertMachineDown, models.SeverityRed},
	{func(c Conditions) bool { return c.MaterialShortage || c.MissingPaperwork }, models.AlertMaterialOrPaperwork, models.SeverityOrange},
}

// Classify maps condition flags to an alert type and severity color.
// ok is false when no rule matches; the caller must then create nothing.
func Classify(c Conditions) (alertType, severity string, ok bool) {
	for _, r := range classification {
		if r.match(c) {
			return r.alertType, r.severity, true
		}
	}
	return "", "", false
}

// Service applies alert operations against the pending and resolved
// collections, stamping the owning order and the traceability log.
type Service struct {
	Pending  store.Store[models.Alert]
	Resolved store.Store[models.ResolvedAlert]
	Orders   store.Store[models.ProductionOrder]
	Trace    *trace.Log

	// Now is the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

// NewService returns a Service over the given stores.
func NewService(pending store.Store[models.Alert], resolved store.Store[models.ResolvedAlert], orders store.Store[models.ProductionOrder], log *trace.Log) *Service {
	return &Service{Pending: pending, Resolved: resolved, Orders: orders, Trace: log, Now: time.Now}
}

func (s *Service) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RaiseOpts holds parameters for reporting a floor alert.
type RaiseOpts struct {
	OrderNumber   string
	Conditions    Conditions
	Comment       string
	EvidencePhoto string
}

// Raise classifies the conditions and, on a match, appends a pending alert,
// stamps the order's severity marker (overwriting any prior one) and
// appends a no-stage-change traceability entry.
//
// When no condition flag is set the submission is silently a no-op and
// Raise returns (nil, nil) — preserved from the historical behavior.
func (s *Service) Raise(actor board.Actor, opts RaiseOpts) (*models.Alert, error) {
	alertType, severity, ok := Classify(opts.Conditions)
	if !ok {
		return nil, nil
	}

	orders, err := s.Orders.Load()
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range orders {
		if orders[i].OrderNumber == opts.OrderNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &board.NotFoundError{OrderNumber: opts.OrderNumber}
	}
	order := &orders[idx]

	now := s.clock()
	a := models.Alert{
		OrderNumber:            order.OrderNumber,
		Client:                 order.Client,
		Product:                order.Product,
		Timestamp:              now,
		RaisedByUser:           actor.User,
		StageAtTime:            order.CurrentStage,
		AlertType:              alertType,
		SeverityColor:          severity,
		Comment:                opts.Comment,
		EvidencePhotoReference: opts.EvidencePhoto,
	}

	if err := store.Append(s.Pending, a); err != nil {
		return nil, err
	}

	order.AlertSeverity = severity
	if err := s.Orders.Save(orders); err != nil {
		return nil, err
	}

	if err := s.Trace.Append(models.TraceabilityEntry{
		OrderNumber:            order.OrderNumber,
		Timestamp:              now,
		ActingUser:             actor.User,
		StageBefore:            order.CurrentStage,
		StageAfter:             order.CurrentStage,
		AlertType:              alertType,
		Comment:                opts.Comment,
		EvidencePhotoReference: opts.EvidencePhoto,
	}); err != nil {
		return nil, err
	}
	return &a, nil
}

// PendingAlerts returns the pending set in raise order.
func (s *Service) PendingAlerts() ([]models.Alert, error) {
	return s.Pending.Load()
}

// ResolvedHistory returns the resolved alerts in resolution order.
func (s *Service) ResolvedHistory() ([]models.ResolvedAlert, error) {
	return s.Resolved.Load()
}

// Resolve moves the pending alert at index into the resolved history,
// stamped with the resolver and the resolution time. The owning order's
// severity marker is deliberately NOT cleared; the stale marker stays until
// the order's next alert or stage transition.
func (s *Service) Resolve(actor board.Actor, index int) (*models.ResolvedAlert, error) {
	pending, err := s.Pending.Load()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pending) {
		return nil, fmt.Errorf("alert: no pending alert at index %d", index)
	}

	resolved := pending[index].Resolved(actor.User, s.clock())
	if err := store.Append(s.Resolved, resolved); err != nil {
		return nil, err
	}

	remaining := append(pending[:index:index], pending[index+1:]...)
	if err := s.Pending.Save(remaining); err != nil {
		return nil, err
	}
	return &resolved, nil
}
