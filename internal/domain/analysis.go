package domain

// Dimension is one labelled measurement estimated by the analysis step.
type Dimension struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Estimate    string `json:"estimate"`
}

// Materials describes what the product is made of.
type Materials struct {
	Primary     string `json:"primary"`
	Secondary   string `json:"secondary,omitempty"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// ProductAnalysis is the structural part of an analysis.
type ProductAnalysis struct {
	Sketch     string               `json:"sketch"`
	Dimensions map[string]Dimension `json:"dimensions"`
	Materials  Materials            `json:"materials"`
}

// SEOContent holds listing titles and tag sets, both ordered.
type SEOContent struct {
	Titles []string   `json:"titles"`
	Tags   [][]string `json:"tags"`
}

// AnalysisResult is produced once per task and never mutated afterwards.
type AnalysisResult struct {
	Analysis ProductAnalysis `json:"analysis"`
	SEO      SEOContent      `json:"seo"`
}
