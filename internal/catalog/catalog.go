package catalog

import (
	"fmt"
	"os"

	"sunolegal/internal/models"

	"gopkg.in/yaml.v2"
)

// Catalog is the reference data served read-only for the process lifetime.
type Catalog struct {
	Laws    []models.LawScheme `yaml:"laws"`
	Lawyers []models.Lawyer    `yaml:"lawyers"`
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks id uniqueness and enum values across the whole catalog.
func (c *Catalog) Validate() error {
	lawIDs := make(map[string]bool, len(c.Laws))
	for i := range c.Laws {
		l := &c.Laws[i]
		if l.ID == "" {
			return fmt.Errorf("law #%d: empty id", i)
		}
		if lawIDs[l.ID] {
			return fmt.Errorf("law %s: duplicate id", l.ID)
		}
		lawIDs[l.ID] = true
		if l.Type != models.TypeLaw && l.Type != models.TypeScheme {
			return fmt.Errorf("law %s: unknown type %q", l.ID, l.Type)
		}
		if !models.IsValidCategory(l.Category) {
			return fmt.Errorf("law %s: unknown category %q", l.ID, l.Category)
		}
		if l.Title == "" {
			return fmt.Errorf("law %s: empty title", l.ID)
		}
	}

	lawyerIDs := make(map[string]bool, len(c.Lawyers))
	for i := range c.Lawyers {
		lw := &c.Lawyers[i]
		if lw.ID == "" {
			return fmt.Errorf("lawyer #%d: empty id", i)
		}
		if lawyerIDs[lw.ID] {
			return fmt.Errorf("lawyer %s: duplicate id", lw.ID)
		}
		lawyerIDs[lw.ID] = true
		if err := validatePackages(lw); err != nil {
			return err
		}
	}
	return nil
}

func validatePackages(lw *models.Lawyer) error {
	if len(lw.Packages) == 0 {
		return fmt.Errorf("lawyer %s: no packages", lw.ID)
	}
	seen := make(map[string]bool, len(lw.Packages))
	for _, p := range lw.Packages {
		switch {
		case p.ID == "":
			return fmt.Errorf("lawyer %s: package with empty id", lw.ID)
		case seen[p.ID]:
			return fmt.Errorf("lawyer %s: duplicate package %s", lw.ID, p.ID)
		case !models.IsValidPackageType(p.Type):
			return fmt.Errorf("lawyer %s package %s: unknown type %q", lw.ID, p.ID, p.Type)
		case p.Price < 0:
			return fmt.Errorf("lawyer %s package %s: negative price", lw.ID, p.ID)
		case p.Duration <= 0:
			return fmt.Errorf("lawyer %s package %s: duration must be positive", lw.ID, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
