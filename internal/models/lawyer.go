package models

type LawyerPackage struct {
	ID       string `yaml:"id" json:"id"`
	Type     string `yaml:"type" json:"type"`
	Name     string `yaml:"name" json:"name"`
	Price    int64  `yaml:"price" json:"price"`
	Duration int    `yaml:"duration" json:"duration"` // minutes
}

type Lawyer struct {
	ID              string          `yaml:"id" json:"id"`
	Name            string          `yaml:"name" json:"name"`
	PracticeArea    string          `yaml:"practice_area" json:"practice_area"`
	Image           string          `yaml:"image" json:"image"`
	City            string          `yaml:"city" json:"city,omitempty"`
	Languages       []string        `yaml:"languages" json:"languages,omitempty"`
	ExperienceYears int             `yaml:"experience_years" json:"experience_years,omitempty"`
	Rating          float64         `yaml:"rating" json:"rating,omitempty"`
	Available       bool            `yaml:"available" json:"available"`
	Packages        []LawyerPackage `yaml:"packages" json:"packages"`
}

// Package returns the package with the given id.
func (l *Lawyer) Package(id string) (LawyerPackage, bool) {
	for _, p := range l.Packages {
		if p.ID == id {
			return p, true
		}
	}
	return LawyerPackage{}, false
}

// HasPriceBetween reports whether any package price lies in [min, max].
// A negative bound is treated as unset.
func (l *Lawyer) HasPriceBetween(min, max int64) bool {
	for _, p := range l.Packages {
		if min >= 0 && p.Price < min {
			continue
		}
		if max >= 0 && p.Price > max {
			continue
		}
		return true
	}
	return false
}

func (l *Lawyer) HasPackageType(t string) bool {
	for _, p := range l.Packages {
		if p.Type == t {
			return true
		}
	}
	return false
}

// Clone returns a copy that does not share slices with l.
func (l Lawyer) Clone() Lawyer {
	out := l
	out.Languages = append([]string(nil), l.Languages...)
	out.Packages = append([]LawyerPackage(nil), l.Packages...)
	return out
}
