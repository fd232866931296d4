package service

import (
	"strings"
	"sync"

	"sunolegal/internal/catalog"
	"sunolegal/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService answers read-only queries over the law and lawyer catalog.
// Results are copies; callers cannot mutate the loaded catalog.
type CatalogService struct {
	logger      *zerolog.Logger
	laws        []models.LawScheme
	lawsByID    map[string]int
	lawyers     []models.Lawyer
	lawyersByID map[string]int
	mu          sync.RWMutex
}

func NewCatalogService(c *catalog.Catalog, logger *zerolog.Logger) *CatalogService {
	s := &CatalogService{logger: logger}
	s.Replace(c)
	return s
}

// Replace swaps the whole catalog atomically.
func (s *CatalogService) Replace(c *catalog.Catalog) {
	if c == nil {
		c = &catalog.Catalog{}
	}
	laws := append([]models.LawScheme(nil), c.Laws...)
	lawsByID := make(map[string]int, len(laws))
	for i := range laws {
		lawsByID[laws[i].ID] = i
	}
	lawyers := make([]models.Lawyer, len(c.Lawyers))
	lawyersByID := make(map[string]int, len(lawyers))
	for i := range c.Lawyers {
		lawyers[i] = c.Lawyers[i].Clone()
		lawyersByID[lawyers[i].ID] = i
	}

	s.mu.Lock()
	s.laws, s.lawsByID = laws, lawsByID
	s.lawyers, s.lawyersByID = lawyers, lawyersByID
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info().Int("laws", len(laws)).Int("lawyers", len(lawyers)).Msg("catalog loaded")
	}
}

// ListLawSchemes filters by category ("" or "all" match everything) and by a
// case-insensitive substring of title or short summary. Overview text is not
// searched, so every hit shows the term in what the list renders.
func (s *CatalogService) ListLawSchemes(category, search string) []models.LawScheme {
	category = strings.TrimSpace(category)
	needle := strings.ToLower(strings.TrimSpace(search))

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.LawScheme, 0)
	for i := range s.laws {
		l := &s.laws[i]
		if category != "" && category != models.CategoryAll && l.Category != category {
			continue
		}
		if needle != "" && !lawContains(l, needle) {
			continue
		}
		out = append(out, *l)
	}
	return out
}

func lawContains(l *models.LawScheme, needle string) bool {
	return strings.Contains(strings.ToLower(l.Title), needle) ||
		strings.Contains(strings.ToLower(l.ShortSummary), needle)
}

func (s *CatalogService) GetLawSchemeByID(id string) (*models.LawScheme, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.lawsByID[id]
	if !ok {
		return nil, false
	}
	item := s.laws[i]
	return &item, true
}

// GetRelatedLawSchemes returns up to limit other items sharing item's category,
// in catalog order. There is no backfill from other categories.
func (s *CatalogService) GetRelatedLawSchemes(item *models.LawScheme, limit int) []models.LawScheme {
	out := make([]models.LawScheme, 0)
	if item == nil || limit <= 0 {
		return out
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.laws {
		if len(out) == limit {
			break
		}
		l := &s.laws[i]
		if l.ID == item.ID || l.Category != item.Category {
			continue
		}
		out = append(out, *l)
	}
	return out
}

// Categories returns every known category with its item count, empty ones included.
func (s *CatalogService) Categories() []models.CategoryCount {
	s.mu.RLock()
	counts := make(map[string]int, len(models.Categories))
	for i := range s.laws {
		counts[s.laws[i].Category]++
	}
	s.mu.RUnlock()

	out := make([]models.CategoryCount, 0, len(models.Categories))
	for _, c := range models.Categories {
		out = append(out, models.CategoryCount{Category: c, Count: counts[c]})
	}
	return out
}

func (s *CatalogService) GetLawyerByID(id string) (*models.Lawyer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.lawyersByID[id]
	if !ok {
		return nil, false
	}
	l := s.lawyers[i].Clone()
	return &l, true
}

func (s *CatalogService) GetLawyerPackage(lawyerID, packageID string) (*models.Lawyer, *models.LawyerPackage, bool) {
	lawyer, ok := s.GetLawyerByID(lawyerID)
	if !ok {
		return nil, nil, false
	}
	pkg, ok := lawyer.Package(packageID)
	if !ok {
		return nil, nil, false
	}
	return lawyer, &pkg, true
}

func (s *CatalogService) ListLawyers(filter models.LawyerFilter) []models.Lawyer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Lawyer, 0)
	for i := range s.lawyers {
		if filter.Matches(&s.lawyers[i]) {
			out = append(out, s.lawyers[i].Clone())
		}
	}
	return out
}
