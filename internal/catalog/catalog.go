// Package catalog manages the ordered list of production stages.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/omlean/opboard/internal/models"
	"github.com/omlean/opboard/internal/store"
)

// Sentinel errors reported by catalog operations.
var (
	ErrDuplicateName = errors.New("catalog: stage name already exists")
	ErrNotFound      = errors.New("catalog: stage not found")
	ErrEmptyName     = errors.New("catalog: stage name is required")
)

// Catalog wraps the stage collection with validated management operations.
type Catalog struct {
	stages store.Store[models.Stage]
}

// New returns a Catalog backed by the given stage store.
func New(stages store.Store[models.Stage]) *Catalog {
	return &Catalog{stages: stages}
}

// List returns all stages sorted by their catalog display order.
func (c *Catalog) List() ([]models.Stage, error) {
	stages, err := c.stages.Load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].OrderIndex < stages[j].OrderIndex
	})
	return stages, nil
}

// Names returns the stage names in catalog display order.
func (c *Catalog) Names() ([]string, error) {
	stages, err := c.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	return names, nil
}

// Get returns the stage with the given name.
func (c *Catalog) Get(name string) (*models.Stage, error) {
	stages, err := c.stages.Load()
	if err != nil {
		return nil, err
	}
	for i := range stages {
		if sameName(stages[i].Name, name) {
			return &stages[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Add appends a new stage. Names are unique, compared trimmed and
// case-insensitively.
func (c *Catalog) Add(stage models.Stage) error {
	stage.Name = strings.TrimSpace(stage.Name)
	if stage.Name == "" {
		return ErrEmptyName
	}
	stages, err := c.stages.Load()
	if err != nil {
		return err
	}
	for _, s := range stages {
		if sameName(s.Name, stage.Name) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, stage.Name)
		}
	}
	stages = append(stages, stage)
	sortByIndex(stages)
	return c.stages.Save(stages)
}

// Update replaces the stage currently named name. Renames are allowed as
// long as the new name stays unique.
func (c *Catalog) Update(name string, stage models.Stage) error {
	stage.Name = strings.TrimSpace(stage.Name)
	if stage.Name == "" {
		return ErrEmptyName
	}
	stages, err := c.stages.Load()
	if err != nil {
		return err
	}
	idx := -1
	for i, s := range stages {
		if sameName(s.Name, name) {
			idx = i
			continue
		}
		if sameName(s.Name, stage.Name) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, stage.Name)
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	stages[idx] = stage
	sortByIndex(stages)
	return c.stages.Save(stages)
}

// Delete removes the named stage from the catalog. References held by
// orders or user assignments are not touched; use FindReferences first to
// warn about them.
func (c *Catalog) Delete(name string) error {
	stages, err := c.stages.Load()
	if err != nil {
		return err
	}
	kept := stages[:0]
	found := false
	for _, s := range stages {
		if sameName(s.Name, name) {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return c.stages.Save(kept)
}

// References lists the entities that still point at a stage name.
type References struct {
	Orders []string // order numbers with the stage in their sequence
	Users  []string // usernames assigned to the stage
}

// Empty reports whether nothing references the stage.
func (r References) Empty() bool {
	return len(r.Orders) == 0 && len(r.Users) == 0
}

// FindReferences scans orders and user stage assignments for references to
// the stage name. Deleting or renaming a referenced stage leaves those
// references dangling.
func FindReferences(name string, orders []models.ProductionOrder, userStages map[string]string) References {
	var refs References
	for _, o := range orders {
		for _, s := range o.StageSequence {
			if sameName(s, name) {
				refs.Orders = append(refs.Orders, o.OrderNumber)
				break
			}
		}
	}
	for user, stage := range userStages {
		if sameName(stage, name) {
			refs.Users = append(refs.Users, user)
		}
	}
	sort.Strings(refs.Orders)
	sort.Strings(refs.Users)
	return refs
}

func sortByIndex(stages []models.Stage) {
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].OrderIndex < stages[j].OrderIndex
	})
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
