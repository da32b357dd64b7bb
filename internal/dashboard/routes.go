package dashboard

import (
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/omlean/opboard/internal/alert"
	"github.com/omlean/opboard/internal/board"
	"github.com/omlean/opboard/internal/catalog"
	"github.com/omlean/opboard/internal/evidence"
	"github.com/omlean/opboard/internal/models"
	"github.com/omlean/opboard/internal/trace"
)

// registerRoutes sets up all board routes on the Gin router.
func registerRoutes(router *gin.Engine, d *deps) {
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))
	router.Static("/evidencias", d.cfg.EvidenceDir)
	router.Static("/imagenes", d.cfg.ImageDir)

	router.GET("/login", d.handleLoginPage)
	router.POST("/login", d.handleLogin)
	router.POST("/logout", d.handleLogout)

	authed := router.Group("/", d.requireLogin)
	authed.GET("/alerts", d.handleAlerts)
	authed.POST("/alerts/:index/resolve", d.handleResolve)

	planner := router.Group("/", d.requireRole(models.RoleAdministrator, models.RolePlanner))
	planner.GET("/", d.handleBoard)
	planner.GET("/orders/new", d.handleOrderForm)
	planner.POST("/orders", d.handleOrderCreate)
	planner.POST("/orders/:number/advance", d.handleAdvance)
	planner.POST("/orders/:number/split", d.handleSplit)
	planner.POST("/orders/:number/alerts", d.handleRaiseAlert)
	planner.GET("/history", d.handleHistory)
	planner.GET("/history.csv", d.handleHistoryCSV)
	planner.GET("/trace", d.handleTrace)
	planner.GET("/catalog", d.handleCatalog)
	planner.POST("/catalog", d.handleCatalogSave)
	planner.POST("/catalog/:name/delete", d.handleCatalogDelete)

	admin := router.Group("/", d.requireRole(models.RoleAdministrator))
	admin.GET("/users", d.handleUsers)
	admin.POST("/users", d.handleUserCreate)
	admin.POST("/users/:id/update", d.handleUserUpdate)
	admin.POST("/users/:id/delete", d.handleUserDelete)
}

// requireLogin redirects anonymous requests to the login page and stores the
// session actor in the request context.
func (d *deps) requireLogin(c *gin.Context) {
	actor, ok := d.sessions.actor(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
		return
	}
	c.Set("actor", actor)
	c.Next()
}

// requireRole is requireLogin plus a role gate.
func (d *deps) requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := d.sessions.actor(c)
		if !ok {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Set("actor", actor)
				c.Next()
				return
			}
		}
		c.String(http.StatusForbidden, "no permission for this section")
		c.Abort()
	}
}

func currentActor(c *gin.Context) board.Actor {
	if v, ok := c.Get("actor"); ok {
		if a, ok := v.(board.Actor); ok {
			return a
		}
	}
	return board.Actor{}
}

// redirectErr sends the user back to a page with the error as a flash
// message in the query string.
func redirectErr(c *gin.Context, page string, err error) {
	c.Redirect(http.StatusSeeOther, page+"?error="+url.QueryEscape(err.Error()))
}

func (d *deps) handleLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login", gin.H{"Error": c.Query("error")})
}

func (d *deps) handleLogin(c *gin.Context) {
	account, err := d.users.Verify(c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		redirectErr(c, "/login", err)
		return
	}
	d.sessions.issue(c, board.Actor{
		User:          account.Username,
		Role:          account.Role,
		AssignedStage: account.Stage,
	})
	c.Redirect(http.StatusSeeOther, "/")
}

func (d *deps) handleLogout(c *gin.Context) {
	d.sessions.clear(c)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (d *deps) handleBoard(c *gin.Context) {
	columns, err := boardColumns(d.catalog, d.engine)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	pending, err := d.alerts.PendingAlerts()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.HTML(http.StatusOK, "board", gin.H{
		"Actor":        currentActor(c),
		"Columns":      columns,
		"PendingCount": len(pending),
		"Error":        c.Query("error"),
	})
}

func (d *deps) handleOrderForm(c *gin.Context) {
	stages, err := d.catalog.List()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.HTML(http.StatusOK, "create", gin.H{
		"Actor":  currentActor(c),
		"Stages": stages,
		"Error":  c.Query("error"),
	})
}

func (d *deps) handleOrderCreate(c *gin.Context) {
	quantity, _ := strconv.ParseFloat(c.PostForm("quantity"), 64)
	opts := board.CreateOpts{
		OrderNumber:  c.PostForm("order_number"),
		Client:       c.PostForm("client"),
		Product:      c.PostForm("product"),
		Quantity:     quantity,
		DeliveryDate: c.PostForm("delivery_date"),
		Stages:       c.PostFormArray("stages"),
	}

	// Optional converted order document image (PNG).
	if file, err := c.FormFile("document"); err == nil {
		data, err := readUpload(file)
		if err != nil {
			redirectErr(c, "/orders/new", err)
			return
		}
		name, err := evidence.SaveImage(d.cfg.ImageDir, opts.OrderNumber, opts.Product, data)
		if err != nil {
			redirectErr(c, "/orders/new", err)
			return
		}
		opts.ImagePath = name
	}

	if _, err := d.engine.Create(currentActor(c), opts); err != nil {
		redirectErr(c, "/orders/new", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (d *deps) handleAdvance(c *gin.Context) {
	number := c.Param("number")
	materialUsed, _ := strconv.ParseFloat(c.PostForm("material_used"), 64)
	scrap, _ := strconv.ParseFloat(c.PostForm("scrap"), 64)

	extra := map[string]float64{}
	for _, metric := range []string{
		models.MetricSetupTime, models.MetricCycleTime, models.MetricIdleTime,
		models.MetricTotalTime, models.MetricPeople,
	} {
		if raw := c.PostForm(metric); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				extra[metric] = v
			}
		}
	}

	opts := board.AdvanceOpts{
		OrderNumber:  number,
		MaterialUsed: materialUsed,
		Scrap:        scrap,
		Observation:  c.PostForm("observation"),
		ExtraMetrics: extra,
	}

	if file, err := c.FormFile("evidence"); err == nil {
		name, err := d.saveEvidence(c, file, number)
		if err != nil {
			redirectErr(c, "/", err)
			return
		}
		opts.EvidencePhoto = name
	}

	if _, err := d.engine.Advance(currentActor(c), opts); err != nil {
		redirectErr(c, "/", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (d *deps) handleSplit(c *gin.Context) {
	number := c.Param("number")
	var quantities []float64
	for _, part := range strings.Split(c.PostForm("quantities"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		q, err := strconv.ParseFloat(part, 64)
		if err != nil {
			redirectErr(c, "/", &board.ValidationError{Reason: "bad quantity: " + part})
			return
		}
		quantities = append(quantities, q)
	}

	if _, err := d.engine.Split(currentActor(c), board.SplitOpts{
		OrderNumber: number,
		Quantities:  quantities,
	}); err != nil {
		redirectErr(c, "/", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (d *deps) handleRaiseAlert(c *gin.Context) {
	number := c.Param("number")
	opts := alert.RaiseOpts{
		OrderNumber: number,
		Conditions: alert.Conditions{
			MachineDown:      c.PostForm("machine_down") != "",
			MaterialShortage: c.PostForm("material_shortage") != "",
			MissingPaperwork: c.PostForm("missing_paperwork") != "",
		},
		Comment: c.PostForm("comment"),
	}

	if file, err := c.FormFile("evidence"); err == nil {
		name, err := d.saveEvidence(c, file, number)
		if err != nil {
			redirectErr(c, "/", err)
			return
		}
		opts.EvidencePhoto = name
	}

	if _, err := d.alerts.Raise(currentActor(c), opts); err != nil {
		redirectErr(c, "/", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (d *deps) handleAlerts(c *gin.Context) {
	pending, err := d.alerts.PendingAlerts()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	resolved, err := d.alerts.ResolvedHistory()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.HTML(http.StatusOK, "alerts", gin.H{
		"Actor":    currentActor(c),
		"Pending":  pending,
		"Resolved": resolved,
		"Error":    c.Query("error"),
	})
}

func (d *deps) handleResolve(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		redirectErr(c, "/alerts", err)
		return
	}
	if _, err := d.alerts.Resolve(currentActor(c), index); err != nil {
		redirectErr(c, "/alerts", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/alerts")
}

func (d *deps) handleHistory(c *gin.Context) {
	orders, err := d.engine.List()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	filter := c.Query("date")
	if filter != "" {
		day, err := time.Parse("2006-01-02", filter)
		if err != nil {
			redirectErr(c, "/history", err)
			return
		}
		orders = trace.OrdersCreatedOn(orders, day)
	}
	c.HTML(http.StatusOK, "history", gin.H{
		"Actor": currentActor(c),
		"Rows":  trace.HistoryRows(orders),
		"Date":  filter,
		"Error": c.Query("error"),
	})
}

func (d *deps) handleHistoryCSV(c *gin.Context) {
	orders, err := d.engine.List()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="historial_op.csv"`)
	if err := writeHistoryCSV(c.Writer, trace.HistoryRows(orders)); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
	}
}

func (d *deps) handleTrace(c *gin.Context) {
	entries, err := d.trace.All()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	metric := c.Query("metric")
	if metric == "" {
		metric = models.MetricTotalTime
	}

	// Distinct order numbers for the filter, in first-seen order.
	var orderNumbers []string
	seen := map[string]bool{}
	for _, e := range entries {
		if !seen[e.OrderNumber] {
			seen[e.OrderNumber] = true
			orderNumbers = append(orderNumbers, e.OrderNumber)
		}
	}

	selected := c.Query("order")
	var selectedEntries []models.TraceabilityEntry
	if selected != "" {
		for _, e := range entries {
			if e.OrderNumber == selected {
				selectedEntries = append(selectedEntries, e)
			}
		}
	}

	c.HTML(http.StatusOK, "trace", gin.H{
		"Actor":        currentActor(c),
		"OrderNumbers": orderNumbers,
		"Selected":     selected,
		"Entries":      selectedEntries,
		"Metric":       metric,
		"Averages":     trace.AverageMetricByStage(entries, metric),
	})
}

func (d *deps) handleCatalog(c *gin.Context) {
	stages, err := d.catalog.List()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.HTML(http.StatusOK, "catalog", gin.H{
		"Actor":  currentActor(c),
		"Stages": stages,
		"Error":  c.Query("error"),
	})
}

func (d *deps) handleCatalogSave(c *gin.Context) {
	orderIndex, _ := strconv.Atoi(c.PostForm("order_index"))
	estimated, _ := strconv.ParseFloat(c.PostForm("estimated_time"), 64)
	setup, _ := strconv.ParseFloat(c.PostForm("setup_time"), 64)
	maintenance, _ := strconv.ParseFloat(c.PostForm("maintenance_time"), 64)
	people, _ := strconv.Atoi(c.PostForm("assigned_people"))
	hours, _ := strconv.ParseFloat(c.PostForm("work_hours"), 64)
	efficiency, _ := strconv.Atoi(c.PostForm("expected_efficiency_percent"))

	stage := models.Stage{
		Name:                      c.PostForm("name"),
		Description:               c.PostForm("description"),
		OrderIndex:                orderIndex,
		EstimatedTime:             estimated,
		SetupTime:                 setup,
		MaintenanceTime:           maintenance,
		AssignedPeople:            people,
		WorkHours:                 hours,
		ExpectedEfficiencyPercent: efficiency,
	}

	var err error
	if original := c.PostForm("original_name"); original != "" {
		err = d.catalog.Update(original, stage)
	} else {
		err = d.catalog.Add(stage)
	}
	if err != nil {
		redirectErr(c, "/catalog", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/catalog")
}

func (d *deps) handleCatalogDelete(c *gin.Context) {
	name := c.Param("name")

	// Warn-and-refuse when the stage is still referenced, instead of
	// leaving dangling references behind.
	orders, err := d.engine.List()
	if err != nil {
		redirectErr(c, "/catalog", err)
		return
	}
	assignments, err := d.users.StageAssignments()
	if err != nil {
		redirectErr(c, "/catalog", err)
		return
	}
	if refs := catalog.FindReferences(name, orders, assignments); !refs.Empty() {
		redirectErr(c, "/catalog", &board.ValidationError{
			Reason: "stage " + name + " is still referenced by orders or users",
		})
		return
	}

	if err := d.catalog.Delete(name); err != nil {
		redirectErr(c, "/catalog", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/catalog")
}

func (d *deps) handleUsers(c *gin.Context) {
	accounts, err := d.users.List()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.HTML(http.StatusOK, "users", gin.H{
		"Actor": currentActor(c),
		"Users": accounts,
		"Error": c.Query("error"),
	})
}

func (d *deps) handleUserCreate(c *gin.Context) {
	err := d.users.Create(
		c.PostForm("username"),
		c.PostForm("password"),
		c.PostForm("role"),
		c.PostForm("stage"),
	)
	if err != nil {
		redirectErr(c, "/users", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/users")
}

func (d *deps) handleUserUpdate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		redirectErr(c, "/users", err)
		return
	}
	if err := d.users.Update(uint(id), c.PostForm("password"), c.PostForm("role"), c.PostForm("stage")); err != nil {
		redirectErr(c, "/users", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/users")
}

func (d *deps) handleUserDelete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		redirectErr(c, "/users", err)
		return
	}
	if err := d.users.Delete(uint(id)); err != nil {
		redirectErr(c, "/users", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/users")
}

// saveEvidence stores an uploaded evidence photo against the order's
// current stage and returns the stored filename.
func (d *deps) saveEvidence(c *gin.Context, file *multipart.FileHeader, orderNumber string) (string, error) {
	order, err := d.engine.Get(orderNumber)
	if err != nil {
		return "", err
	}
	data, err := readUpload(file)
	if err != nil {
		return "", err
	}
	return evidence.SavePhoto(d.cfg.EvidenceDir, orderNumber, order.CurrentStage, file.Filename, data)
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
