package scenario

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"SingularityDashboard/internal/techtree"
)

//go:embed data/*.yaml
var builtin embed.FS

// builtinOrder fixes the order in which bundled scenarios are offered.
var builtinOrder = []string{"singularity.yaml", "no_singularity.yaml"}

// Summary describes a catalog entry for listings.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TechCount   int    `json:"techCount"`
}

// Catalog holds validated scenarios by id, in the order they were added.
// A scenario added under an existing id replaces the earlier one in place.
type Catalog struct {
	mu        sync.RWMutex
	byID      map[string]*techtree.Scenario
	order     []string
	validator *Validator
	logger    *log.Logger
}

// NewCatalog creates an empty catalog that validates through v.
func NewCatalog(v *Validator, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default()
	}
	return &Catalog{
		byID:      make(map[string]*techtree.Scenario),
		validator: v,
		logger:    logger.WithPrefix("catalog"),
	}
}

// Add registers an already validated scenario.
func (c *Catalog) Add(s *techtree.Scenario) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byID[s.ID]; exists {
		c.logger.Warn("Replacing scenario", "id", s.ID)
	} else {
		c.order = append(c.order, s.ID)
	}
	c.byID[s.ID] = s
}

// LoadBuiltin adds the bundled scenarios.
func (c *Catalog) LoadBuiltin() error {
	for _, name := range builtinOrder {
		if _, err := c.loadFile(builtin, path.Join("data", name)); err != nil {
			return err
		}
	}
	return nil
}

// LoadDir adds every scenario file in dir. Files with unknown extensions
// are skipped. Loading stops at the first invalid scenario.
func (c *Catalog) LoadDir(dir string) (int, error) {
	fsys := os.DirFS(dir)
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return 0, fmt.Errorf("reading scenario dir %s: %w", dir, err)
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := FormatFromPath(e.Name()); err != nil {
			c.logger.Debug("Skipping file", "dir", dir, "file", e.Name())
			continue
		}
		if _, err := c.loadFile(fsys, e.Name()); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

func (c *Catalog) loadFile(fsys fs.FS, name string) (*techtree.Scenario, error) {
	f, err := FormatFromPath(name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	s, err := c.validator.Load(name, data, f)
	if err != nil {
		return nil, err
	}
	c.Add(s)
	c.logger.Info("Loaded scenario", "id", s.ID, "techs", len(s.Technologies), "source", name)
	return s, nil
}

// Get returns a scenario by id.
func (c *Catalog) Get(id string) (*techtree.Scenario, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	return s, nil
}

// Default returns the first scenario added, or nil if the catalog is empty.
func (c *Catalog) Default() *techtree.Scenario {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.order) == 0 {
		return nil
	}
	return c.byID[c.order[0]]
}

// IDs returns scenario ids in catalog order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// List summarizes every scenario in catalog order.
func (c *Catalog) List() []Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Summary, 0, len(c.order))
	for _, id := range c.order {
		s := c.byID[id]
		out = append(out, Summary{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			TechCount:   len(s.Technologies),
		})
	}
	return out
}

// Next returns the id after current in catalog order, wrapping around.
func (c *Catalog) Next(current string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.order) == 0 {
		return ""
	}
	i := slices.Index(c.order, current)
	return c.order[(i+1)%len(c.order)]
}
