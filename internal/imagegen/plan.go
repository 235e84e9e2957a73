package imagegen

import "productstudio/internal/domain"

const (
	// DefaultImageCount is used when a request does not ask for a count.
	DefaultImageCount = 4
	// MaxImageCount is the size of the catalogue.
	MaxImageCount = 6
)

var catalogue = [MaxImageCount]domain.ImagePlan{
	{
		Angle:       "straight-on front view",
		Background:  "clean white studio background",
		Description: "Professional front-facing product shot",
	},
	{
		Angle:       "side profile view",
		Background:  "minimalist gray gradient",
		Description: "Side view showcasing product depth",
	},
	{
		Angle:       "45-degree perspective",
		Background:  "lifestyle setting with natural elements",
		Description: "Dynamic angled view",
	},
	{
		Angle:       "top-down overhead view",
		Background:  "marble surface with soft shadows",
		Description: "Flat lay composition",
	},
	{
		Angle:       "close-up detail view",
		Background:  "dramatic lighting",
		Description: "Highlight texture and material details",
	},
	{
		Angle:       "three-quarter view",
		Background:  "soft focus background",
		Description: "Showcasing product from multiple angles",
	},
}

// Catalogue returns a copy of every plan entry in order.
func Catalogue() []domain.ImagePlan {
	out := make([]domain.ImagePlan, len(catalogue))
	copy(out, catalogue[:])
	return out
}

// BuildPlan returns the first count catalogue entries. Zero or negative
// counts mean DefaultImageCount; counts above the catalogue are clamped.
func BuildPlan(count int) []domain.ImagePlan {
	return Catalogue()[:ClampCount(count)]
}

// ClampCount normalizes a requested image count.
func ClampCount(count int) int {
	if count <= 0 {
		return DefaultImageCount
	}
	return min(count, MaxImageCount)
}
