package models

// LawScheme is a law or government scheme from the reference catalog.
type LawScheme struct {
	ID           string `yaml:"id" json:"id"`
	Title        string `yaml:"title" json:"title"`
	Type         string `yaml:"type" json:"type"`
	Category     string `yaml:"category" json:"category"`
	TagLabel     string `yaml:"tag_label" json:"tag_label"`
	TagColor     string `yaml:"tag_color" json:"tag_color"`
	ShortSummary string `yaml:"short_summary" json:"short_summary"`
	OverviewText string `yaml:"overview_text" json:"overview_text"`
	OfficialLink string `yaml:"official_link" json:"official_link"`
}

// CategoryCount is a category with the number of catalog items in it.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
