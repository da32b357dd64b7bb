// Package dashboard serves the web board: login, the kanban view, order
// actions, alerts, history and traceability reports. It is a thin layer
// over the core packages; every mutation goes through them with the
// session's actor.
package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omlean/opboard/internal/alert"
	"github.com/omlean/opboard/internal/board"
	"github.com/omlean/opboard/internal/catalog"
	"github.com/omlean/opboard/internal/config"
	"github.com/omlean/opboard/internal/models"
	"github.com/omlean/opboard/internal/store"
	"github.com/omlean/opboard/internal/trace"
	"github.com/omlean/opboard/internal/users"
)

// StartOpts holds configuration for the board server.
type StartOpts struct {
	Cfg   *config.Config
	Users *users.Store
	Port  int
	Out   io.Writer
}

// Start launches the board HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Cfg == nil {
		return fmt.Errorf("dashboard: config is required")
	}
	if opts.Users == nil {
		return fmt.Errorf("dashboard: user store is required")
	}
	if opts.Port <= 0 {
		opts.Port = opts.Cfg.Server.Port
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	tmpl, err := parseTemplates()
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	registerRoutes(router, newDeps(opts.Cfg, opts.Users))

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Opboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// deps bundles everything the handlers need.
type deps struct {
	cfg      *config.Config
	engine   *board.Engine
	alerts   *alert.Service
	catalog  *catalog.Catalog
	users    *users.Store
	trace    *trace.Log
	sessions *sessionManager
}

// newDeps wires the core packages over the configured data files.
func newDeps(cfg *config.Config, userStore *users.Store) *deps {
	orders := store.NewFileStore[models.ProductionOrder](cfg.OrdersPath())
	stages := store.NewFileStore[models.Stage](cfg.StagesPath())
	pending := store.NewFileStore[models.Alert](cfg.PendingAlertsPath())
	resolved := store.NewFileStore[models.ResolvedAlert](cfg.ResolvedAlertsPath())
	log := trace.NewLog(store.NewFileStore[models.TraceabilityEntry](cfg.TracePath()))
	cat := catalog.New(stages)

	return &deps{
		cfg:      cfg,
		engine:   board.New(orders, cat, log),
		alerts:   alert.NewService(pending, resolved, orders, log),
		catalog:  cat,
		users:    userStore,
		trace:    log,
		sessions: newSessionManager(),
	}
}

// parseTemplates loads the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
