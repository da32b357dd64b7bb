package alert

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/omlean/opboard/internal/board"
	"github.com/omlean/opboard/internal/catalog"
	"github.com/omlean/opboard/internal/models"
	"github.com/omlean/opboard/internal/store"
	"github.com/omlean/opboard/internal/trace"
)

var worker = board.Actor{User: "jlopez", Role: models.RoleWorker, AssignedStage: "Corte"}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		conditions   Conditions
		wantType     string
		wantSeverity string
		wantOK       bool
	}{
		{
			"machine down",
			Conditions{MachineDown: true},
			models.AlertMachineDown, models.SeverityRed, true,
		},
		{
			"machine down wins over material",
			Conditions{MachineDown: true, MaterialShortage: true, MissingPaperwork: true},
			models.AlertMachineDown, models.SeverityRed, true,
		},
		{
			"material shortage",
			Conditions{MaterialShortage: true},
			models.AlertMaterialOrPaperwork, models.SeverityOrange, true,
		},
		{
			"missing paperwork",
			Conditions{MissingPaperwork: true},
			models.AlertMaterialOrPaperwork, models.SeverityOrange, true,
		},
		{
			"both orange flags",
			Conditions{MaterialShortage: true, MissingPaperwork: true},
			models.AlertMaterialOrPaperwork, models.SeverityOrange, true,
		},
		{
			"no flags",
			Conditions{},
			"", "", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alertType, severity, ok := Classify(tt.conditions)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if alertType != tt.wantType {
				t.Errorf("type = %q, want %q", alertType, tt.wantType)
			}
			if severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", severity, tt.wantSeverity)
			}
		})
	}
}

// newTestService wires a Service and an Engine over the same order store so
// tests can create orders to alert on.
func newTestService(t *testing.T) (*Service, *board.Engine) {
	t.Helper()
	dir := t.TempDir()

	cat := catalog.New(store.NewFileStore[models.Stage](filepath.Join(dir, "etapas.json")))
	for i, name := range []string{"Corte", "Soldadura"} {
		if err := cat.Add(models.Stage{Name: name, OrderIndex: i + 1}); err != nil {
			t.Fatal(err)
		}
	}

	orders := store.NewFileStore[models.ProductionOrder](filepath.Join(dir, "ordenes_produccion.json"))
	log := trace.NewLog(store.NewFileStore[models.TraceabilityEntry](filepath.Join(dir, "trazabilidad.json")))

	engine := board.New(orders, cat, log)
	engine.Now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }

	svc := NewService(
		store.NewFileStore[models.Alert](filepath.Join(dir, "alertas_pendientes.json")),
		store.NewFileStore[models.ResolvedAlert](filepath.Join(dir, "alertas_atendidas.json")),
		orders,
		log,
	)
	svc.Now = func() time.Time { return time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC) }

	if _, err := engine.Create(board.Actor{User: "mgarcia", Role: models.RolePlanner}, board.CreateOpts{
		OrderNumber: "OP-1",
		Client:      "Acme",
		Product:     "Widget",
		Quantity:    10,
		Stages:      []string{"Corte", "Soldadura"},
	}); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return svc, engine
}

func TestRaise_MachineDown(t *testing.T) {
	svc, engine := newTestService(t)

	a, err := svc.Raise(worker, RaiseOpts{
		OrderNumber: "OP-1",
		Conditions:  Conditions{MachineDown: true},
		Comment:     "prensa parada",
	})
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if a.AlertType != models.AlertMachineDown || a.SeverityColor != models.SeverityRed {
		t.Errorf("alert = %q/%q", a.AlertType, a.SeverityColor)
	}
	if a.StageAtTime != "Corte" {
		t.Errorf("StageAtTime = %q, want the order's current stage", a.StageAtTime)
	}
	if a.RaisedByUser != "jlopez" {
		t.Errorf("RaisedByUser = %q", a.RaisedByUser)
	}

	pending, err := svc.PendingAlerts()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}

	o, err := engine.Get("OP-1")
	if err != nil {
		t.Fatal(err)
	}
	if o.AlertSeverity != models.SeverityRed {
		t.Errorf("order marker = %q, want red", o.AlertSeverity)
	}

	entries, err := engine.Trace.ByOrder("OP-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(trace) = %d, want exactly 1", len(entries))
	}
	entry := entries[0]
	if entry.StageBefore != entry.StageAfter {
		t.Errorf("alert trace changed stage: %q -> %q", entry.StageBefore, entry.StageAfter)
	}
	if entry.AlertType != models.AlertMachineDown {
		t.Errorf("trace AlertType = %q", entry.AlertType)
	}
}

func TestRaise_OrangeOverwritesRedMarker(t *testing.T) {
	svc, engine := newTestService(t)

	if _, err := svc.Raise(worker, RaiseOpts{OrderNumber: "OP-1", Conditions: Conditions{MachineDown: true}}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Raise(worker, RaiseOpts{OrderNumber: "OP-1", Conditions: Conditions{MaterialShortage: true}}); err != nil {
		t.Fatal(err)
	}

	o, err := engine.Get("OP-1")
	if err != nil {
		t.Fatal(err)
	}
	if o.AlertSeverity != models.SeverityOrange {
		t.Errorf("marker = %q, want the latest alert's severity", o.AlertSeverity)
	}

	pending, _ := svc.PendingAlerts()
	if len(pending) != 2 {
		t.Errorf("len(pending) = %d, want both alerts kept", len(pending))
	}
}

func TestRaise_NoFlagsIsSilentNoOp(t *testing.T) {
	svc, engine := newTestService(t)

	a, err := svc.Raise(worker, RaiseOpts{OrderNumber: "OP-1", Comment: "todo bien"})
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if a != nil {
		t.Errorf("alert = %+v, want nil", a)
	}

	pending, _ := svc.PendingAlerts()
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d, want 0", len(pending))
	}
	o, _ := engine.Get("OP-1")
	if o.AlertSeverity != "" {
		t.Errorf("marker = %q, want untouched", o.AlertSeverity)
	}
	entries, _ := engine.Trace.ByOrder("OP-1")
	if len(entries) != 0 {
		t.Errorf("len(trace) = %d, want 0", len(entries))
	}
}

func TestRaise_UnknownOrder(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Raise(worker, RaiseOpts{OrderNumber: "OP-404", Conditions: Conditions{MachineDown: true}})
	var nf *board.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Raise = %v, want NotFoundError", err)
	}
}

func TestResolve(t *testing.T) {
	svc, _ := newTestService(t)
	resolver := board.Actor{User: "mgarcia", Role: models.RolePlanner}

	if _, err := svc.Raise(worker, RaiseOpts{OrderNumber: "OP-1", Conditions: Conditions{MachineDown: true}}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Raise(worker, RaiseOpts{OrderNumber: "OP-1", Conditions: Conditions{MaterialShortage: true}}); err != nil {
		t.Fatal(err)
	}

	r, err := svc.Resolve(resolver, 0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.ResolvedBy != "mgarcia" {
		t.Errorf("ResolvedBy = %q", r.ResolvedBy)
	}
	if r.AlertType != models.AlertMachineDown {
		t.Errorf("resolved the wrong alert: %q", r.AlertType)
	}

	pending, _ := svc.PendingAlerts()
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	if pending[0].AlertType != models.AlertMaterialOrPaperwork {
		t.Errorf("remaining pending = %q", pending[0].AlertType)
	}

	history, _ := svc.ResolvedHistory()
	if len(history) != 1 {
		t.Fatalf("len(resolved) = %d, want 1", len(history))
	}
}

// Resolving an alert leaves the order's severity marker in place; only the
// next alert or stage transition changes it.
func TestResolveKeepsSeverityMarker(t *testing.T) {
	svc, engine := newTestService(t)

	if _, err := svc.Raise(worker, RaiseOpts{OrderNumber: "OP-1", Conditions: Conditions{MachineDown: true}}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Resolve(board.Actor{User: "mgarcia"}, 0); err != nil {
		t.Fatal(err)
	}

	o, err := engine.Get("OP-1")
	if err != nil {
		t.Fatal(err)
	}
	if o.AlertSeverity != models.SeverityRed {
		t.Errorf("marker = %q after resolve, want red kept", o.AlertSeverity)
	}
}

func TestResolve_IndexOutOfRange(t *testing.T) {
	svc, _ := newTestService(t)

	for _, idx := range []int{-1, 0, 5} {
		if _, err := svc.Resolve(board.Actor{User: "mgarcia"}, idx); err == nil {
			t.Errorf("Resolve(%d) on empty set succeeded", idx)
		}
	}
}
