package models

import (
	"strconv"
	"strings"
)

// LawyerFilter narrows ListLawyers. Zero value matches every lawyer.
type LawyerFilter struct {
	PracticeArea  string
	MinPrice      *int64
	MaxPrice      *int64
	PackageType   string
	AvailableOnly bool
	Language      string
	City          string
	Search        string
}

// ParseLawyerFilter builds a filter from loosely typed options such as
// query parameters. Unknown keys and unparsable values are ignored.
func ParseLawyerFilter(opts map[string]string) LawyerFilter {
	var f LawyerFilter
	for key, raw := range opts {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		switch strings.ToLower(key) {
		case "practice_area", "practicearea":
			f.PracticeArea = val
		case "min_price":
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				f.MinPrice = &n
			}
		case "max_price":
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				f.MaxPrice = &n
			}
		case "package_type":
			f.PackageType = strings.ToLower(val)
		case "available":
			if b, err := strconv.ParseBool(val); err == nil {
				f.AvailableOnly = b
			}
		case "language":
			f.Language = val
		case "city":
			f.City = val
		case "q", "search":
			f.Search = val
		}
	}
	return f
}

func (f LawyerFilter) Matches(l *Lawyer) bool {
	if f.PracticeArea != "" && !strings.EqualFold(l.PracticeArea, f.PracticeArea) {
		return false
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		min, max := int64(-1), int64(-1)
		if f.MinPrice != nil {
			min = *f.MinPrice
		}
		if f.MaxPrice != nil {
			max = *f.MaxPrice
		}
		if !l.HasPriceBetween(min, max) {
			return false
		}
	}
	if f.PackageType != "" && !l.HasPackageType(f.PackageType) {
		return false
	}
	if f.AvailableOnly && !l.Available {
		return false
	}
	if f.Language != "" && !containsFold(l.Languages, f.Language) {
		return false
	}
	if f.City != "" && !strings.EqualFold(l.City, f.City) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(l.Name), q) && !strings.Contains(strings.ToLower(l.PracticeArea), q) {
			return false
		}
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
