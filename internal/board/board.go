// Package board implements the stage-progression engine: creating
// production orders, advancing them through their stage sequence with
// quantity accounting, and splitting one order into lettered sub-orders.
//
// Every operation takes an explicit Actor instead of reading ambient
// session state, and persists through whole-collection stores, keeping the
// single-writer semantics of the historical data files.
package board

import (
	"strings"
	"time"

	"github.com/omlean/opboard/internal/catalog"
	"github.com/omlean/opboard/internal/models"
	"github.com/omlean/opboard/internal/store"
	"github.com/omlean/opboard/internal/trace"
)

// Actor identifies who performs an operation, carried request-scoped into
// the engine.
type Actor struct {
	User          string
	Role          string
	AssignedStage string
}

// Engine applies order lifecycle operations against the order store,
// recording every mutation in the traceability log.
type Engine struct {
	Orders  store.Store[models.ProductionOrder]
	Catalog *catalog.Catalog
	Trace   *trace.Log

	// Now is the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

// New returns an Engine over the given stores.
func New(orders store.Store[models.ProductionOrder], cat *catalog.Catalog, log *trace.Log) *Engine {
	return &Engine{Orders: orders, Catalog: cat, Trace: log, Now: time.Now}
}

func (e *Engine) clock() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Get returns one order by number.
func (e *Engine) Get(orderNumber string) (*models.ProductionOrder, error) {
	orders, err := e.Orders.Load()
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].OrderNumber == orderNumber {
			return &orders[i], nil
		}
	}
	return nil, &NotFoundError{OrderNumber: orderNumber}
}

// List returns every order in store order.
func (e *Engine) List() ([]models.ProductionOrder, error) {
	return e.Orders.Load()
}

// CreateOpts holds parameters for creating a new production order.
type CreateOpts struct {
	OrderNumber  string
	Client       string
	Product      string
	Quantity     float64
	DeliveryDate string   // ISO date, e.g. 2026-03-15
	Stages       []string // ordered subset of the catalog
	ImagePath    string   // converted document image filename, optional
}

// Create validates and stores a new order at the first stage of its
// sequence, with one open transition record.
func (e *Engine) Create(actor Actor, opts CreateOpts) (*models.ProductionOrder, error) {
	opts.OrderNumber = strings.TrimSpace(opts.OrderNumber)
	switch {
	case opts.OrderNumber == "":
		return nil, &ValidationError{Reason: "order number is required"}
	case strings.TrimSpace(opts.Client) == "":
		return nil, &ValidationError{Reason: "client is required"}
	case strings.TrimSpace(opts.Product) == "":
		return nil, &ValidationError{Reason: "product is required"}
	case len(opts.Stages) == 0:
		return nil, &ValidationError{Reason: "at least one stage is required"}
	case opts.Quantity < 1:
		return nil, &ValidationError{Reason: "quantity must be at least 1"}
	}

	known, err := e.Catalog.Names()
	if err != nil {
		return nil, err
	}
	for _, s := range opts.Stages {
		if !containsName(known, s) {
			return nil, &ValidationError{Reason: "stage not in catalog: " + s}
		}
	}

	orders, err := e.Orders.Load()
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.OrderNumber == opts.OrderNumber {
			return nil, &ValidationError{Reason: "order number already exists: " + opts.OrderNumber}
		}
	}

	now := e.clock()
	order := models.ProductionOrder{
		OrderNumber:         opts.OrderNumber,
		Client:              opts.Client,
		Product:             opts.Product,
		Quantity:            opts.Quantity,
		DeliveryDate:        opts.DeliveryDate,
		StageSequence:       append([]string(nil), opts.Stages...),
		CurrentStage:        opts.Stages[0],
		Planning:            map[string]interface{}{},
		AssociatedImagePath: opts.ImagePath,
		TransitionHistory: []models.TransitionRecord{
			{Stage: opts.Stages[0], EnteredAt: now},
		},
	}

	if err := e.Orders.Save(append(orders, order)); err != nil {
		return nil, err
	}
	return &order, nil
}

// AdvanceOpts holds parameters for moving an order to its next stage.
type AdvanceOpts struct {
	OrderNumber   string
	MaterialUsed  float64 // raw material consumed in the stage being left
	Scrap         float64
	Observation   string
	EvidencePhoto string
	// ExtraMetrics are optional timing/staffing figures merged into the
	// traceability entry's stage_metrics, e.g. setup_time or personas.
	ExtraMetrics map[string]float64
}

// Advance closes the order's open transition, moves it to the next stage of
// its sequence and records the quantity accounting. The order's new quantity
// is material used minus scrap; a negative result is stored as-is, matching
// the historical behavior.
func (e *Engine) Advance(actor Actor, opts AdvanceOpts) (*models.ProductionOrder, error) {
	if opts.MaterialUsed < 0 {
		return nil, &ValidationError{Reason: "material used cannot be negative"}
	}
	if opts.Scrap < 0 {
		return nil, &ValidationError{Reason: "scrap cannot be negative"}
	}

	orders, err := e.Orders.Load()
	if err != nil {
		return nil, err
	}
	idx := findOrder(orders, opts.OrderNumber)
	if idx < 0 {
		return nil, &NotFoundError{OrderNumber: opts.OrderNumber}
	}
	order := &orders[idx]

	stageIdx := order.StageIndex()
	if stageIdx < 0 {
		return nil, &InconsistentStateError{OrderNumber: order.OrderNumber, CurrentStage: order.CurrentStage}
	}
	if stageIdx == len(order.StageSequence)-1 {
		return nil, &TerminalStageError{OrderNumber: order.OrderNumber, Stage: order.CurrentStage}
	}

	now := e.clock()
	before := order.CurrentStage
	next := order.StageSequence[stageIdx+1]
	output := opts.MaterialUsed - opts.Scrap

	if open := order.OpenTransition(); open != nil {
		open.LeftAt = &now
		open.Observation = opts.Observation
		open.EvidencePhotoReference = opts.EvidencePhoto
	}
	order.CurrentStage = next
	order.Quantity = output
	order.AlertSeverity = ""
	order.TransitionHistory = append(order.TransitionHistory, models.TransitionRecord{
		Stage:     next,
		EnteredAt: now,
	})

	if err := e.Orders.Save(orders); err != nil {
		return nil, err
	}

	metrics := map[string]float64{
		models.MetricMaterialUsed:  opts.MaterialUsed,
		models.MetricScrap:         opts.Scrap,
		models.MetricFinalQuantity: output,
	}
	for k, v := range opts.ExtraMetrics {
		if _, fixed := metrics[k]; !fixed {
			metrics[k] = v
		}
	}
	if err := e.Trace.Append(models.TraceabilityEntry{
		OrderNumber:            order.OrderNumber,
		Timestamp:              now,
		ActingUser:             actor.User,
		StageBefore:            before,
		StageAfter:             next,
		Comment:                opts.Observation,
		EvidencePhotoReference: opts.EvidencePhoto,
		StageMetrics:           metrics,
	}); err != nil {
		return nil, err
	}

	result := *order
	return &result, nil
}

// splitSuffixes are the child order suffixes, assigned in creation order.
const splitSuffixes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// SplitOpts holds parameters for dividing an order into sub-orders.
type SplitOpts struct {
	OrderNumber string
	Quantities  []float64 // one non-negative quantity per child
}

// Split atomically replaces one order with len(Quantities) children, each a
// copy of the parent at the same stage with its share of the quantity. The
// quantities must sum exactly to the parent's quantity. One traceability
// entry is appended per child with stage_before == stage_after.
//
// The parent's order number disappears from the store; pending alerts keyed
// by it stay orphaned. Known gap, kept from the historical behavior.
func (e *Engine) Split(actor Actor, opts SplitOpts) ([]models.ProductionOrder, error) {
	n := len(opts.Quantities)
	if n < 2 {
		return nil, &ValidationError{Reason: "split needs at least 2 parts"}
	}
	if n > len(splitSuffixes) {
		return nil, &CapacityError{OrderNumber: opts.OrderNumber, Requested: n, Max: len(splitSuffixes)}
	}

	orders, err := e.Orders.Load()
	if err != nil {
		return nil, err
	}
	idx := findOrder(orders, opts.OrderNumber)
	if idx < 0 {
		return nil, &NotFoundError{OrderNumber: opts.OrderNumber}
	}
	parent := orders[idx]

	if parent.StageIndex() < 0 {
		return nil, &InconsistentStateError{OrderNumber: parent.OrderNumber, CurrentStage: parent.CurrentStage}
	}

	var sum float64
	for _, q := range opts.Quantities {
		if q < 0 {
			return nil, &ValidationError{Reason: "sub-quantities cannot be negative"}
		}
		sum += q
	}
	if sum != parent.Quantity {
		return nil, &QuantityMismatchError{OrderNumber: parent.OrderNumber, Remainder: parent.Quantity - sum}
	}

	children := make([]models.ProductionOrder, n)
	for i := 0; i < n; i++ {
		child := cloneOrder(parent)
		child.OrderNumber = parent.OrderNumber + "-" + string(splitSuffixes[i])
		child.Quantity = opts.Quantities[i]
		if findOrder(orders, child.OrderNumber) >= 0 {
			return nil, &ValidationError{Reason: "order number already exists: " + child.OrderNumber}
		}
		children[i] = child
	}

	// Remove the parent and add all children in the same store rewrite.
	next := append(orders[:idx:idx], orders[idx+1:]...)
	next = append(next, children...)
	if err := e.Orders.Save(next); err != nil {
		return nil, err
	}

	now := e.clock()
	for _, child := range children {
		if err := e.Trace.Append(models.TraceabilityEntry{
			OrderNumber: child.OrderNumber,
			Timestamp:   now,
			ActingUser:  actor.User,
			StageBefore: parent.CurrentStage,
			StageAfter:  parent.CurrentStage,
			AlertType:   models.AlertSplit,
			Comment:     "Creada como parte de subdivisión de " + parent.OrderNumber,
		}); err != nil {
			return nil, err
		}
	}
	return children, nil
}

// cloneOrder deep-copies the slices and maps a child must not share with
// its siblings.
func cloneOrder(o models.ProductionOrder) models.ProductionOrder {
	c := o
	c.StageSequence = append([]string(nil), o.StageSequence...)
	c.TransitionHistory = append([]models.TransitionRecord(nil), o.TransitionHistory...)
	if o.Planning != nil {
		c.Planning = make(map[string]interface{}, len(o.Planning))
		for k, v := range o.Planning {
			c.Planning[k] = v
		}
	}
	return c
}

func findOrder(orders []models.ProductionOrder, number string) int {
	for i := range orders {
		if orders[i].OrderNumber == number {
			return i
		}
	}
	return -1
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
