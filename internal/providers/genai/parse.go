package genai

import (
	"encoding/json"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"productstudio/internal/domain"
)

var (
	objectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
	fencePattern  = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
)

// partialResult mirrors domain.AnalysisResult with optional sections so that
// a response missing one of them can still be recognised.
type partialResult struct {
	Analysis *rawAnalysis `json:"analysis"`
	SEO      *rawSEO      `json:"seo"`
}

type rawAnalysis struct {
	Sketch     string                      `json:"sketch"`
	Dimensions map[string]domain.Dimension `json:"dimensions"`
	Materials  *domain.Materials           `json:"materials"`
}

type rawSEO struct {
	Titles []string            `json:"titles"`
	Tags   [][]json.RawMessage `json:"tags"`
}

// ParseAnalysis extracts an AnalysisResult from model output. It tries, in
// order: the outermost JSON object when it carries both sections, a fenced
// json block, and finally any JSON object with at least one section, filling
// the missing parts with placeholders.
func ParseAnalysis(text string) (domain.AnalysisResult, error) {
	obj := objectPattern.FindString(text)
	if obj != "" {
		if p, ok := decodePartial(obj); ok && p.Analysis != nil && p.SEO != nil {
			return p.result(), nil
		}
	}

	if m := fencePattern.FindStringSubmatch(text); m != nil {
		if p, ok := decodePartial(m[1]); ok && (p.Analysis != nil || p.SEO != nil) {
			return p.result(), nil
		}
	}

	if obj != "" {
		if p, ok := decodePartial(obj); ok && (p.Analysis != nil || p.SEO != nil) {
			return p.result(), nil
		}
	}

	return domain.AnalysisResult{}, domain.ErrParse
}

func decodePartial(raw string) (partialResult, bool) {
	var p partialResult
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return partialResult{}, false
	}
	return p, true
}

func (p partialResult) result() domain.AnalysisResult {
	out := domain.AnalysisResult{
		Analysis: domain.ProductAnalysis{
			Sketch:     "Unable to extract",
			Dimensions: map[string]domain.Dimension{},
			Materials:  domain.Materials{Primary: "Unknown"},
		},
		SEO: domain.SEOContent{Titles: []string{}, Tags: [][]string{}},
	}
	if a := p.Analysis; a != nil {
		if strings.TrimSpace(a.Sketch) != "" {
			out.Analysis.Sketch = a.Sketch
		}
		if a.Dimensions != nil {
			out.Analysis.Dimensions = a.Dimensions
		}
		if a.Materials != nil {
			out.Analysis.Materials = *a.Materials
			if strings.TrimSpace(out.Analysis.Materials.Primary) == "" {
				out.Analysis.Materials.Primary = "Unknown"
			}
		}
	}
	if s := p.SEO; s != nil {
		out.SEO = normalizeSEO(s)
	}
	return out
}

// normalizeSEO trims titles, drops empty ones and flattens tag groups to
// lowercase strings. Models occasionally emit numbers inside tag arrays.
func normalizeSEO(s *rawSEO) domain.SEOContent {
	out := domain.SEOContent{Titles: []string{}, Tags: [][]string{}}
	for _, t := range s.Titles {
		if t = strings.TrimSpace(t); t != "" {
			out.Titles = append(out.Titles, t)
		}
	}
	lower := cases.Lower(language.English)
	for _, group := range s.Tags {
		tags := make([]string, 0, len(group))
		for _, raw := range group {
			tag := rawString(raw)
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, lower.String(tag))
			}
		}
		out.Tags = append(out.Tags, tags)
	}
	return out
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}

func titleCaser() cases.Caser {
	return cases.Title(language.English)
}
