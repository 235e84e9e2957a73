package imagegen

import (
	"encoding/json"
	"fmt"
	"strings"

	"productstudio/internal/domain"
)

// DefaultVibe is applied when a request leaves the vibe empty.
const DefaultVibe = "professional"

// BuildAnalysisInstruction asks the model for a product analysis and Etsy SEO
// content in a fixed JSON shape.
func BuildAnalysisInstruction(productName, description string) string {
	parts := []string{
		"Analyze the product in the provided images and generate Etsy SEO content.",
		"",
		"Product information:",
	}
	if name := strings.TrimSpace(productName); name != "" {
		parts = append(parts, "- Name: "+name)
	}
	parts = append(parts,
		"- Description: "+strings.TrimSpace(description),
		"",
		"Part 1: Product Analysis",
		"Geometric Sketch: Synthesize information from all provided images to create a simple geometric sketch text description. Focus on basic shapes, proportions, and key structural elements.",
		"Dimensions: Identify key dimensions. Label them (a, b, c...), describe their purpose, and estimate in 'cm'.",
		"Materials: Identify primary materials, their location on the product, and detailed description (texture, finish, color).",
		"",
		"Part 2: Etsy SEO Generation",
		"Create 2 SEO-optimized Etsy titles (Capitalize First Letter of Each Word).",
		"Create 2 sets of 13 tags (lowercase).",
		"",
		"Output Format: Strict JSON schema:",
		analysisSchema,
	)
	return strings.Join(parts, "\n")
}

const analysisSchema = `{
  "analysis": {
    "sketch": "...",
    "dimensions": {"a": {"label": "...", "description": "...", "estimate": "..."}},
    "materials": {"primary": "...", "location": "...", "description": "..."}
  },
  "seo": {
    "titles": ["...", "..."],
    "tags": [["...", "..."], ["...", "..."]]
  }
}`

// ReferenceInstruction tells the model how to weigh the reference images.
func ReferenceInstruction(referenceCount int) string {
	switch {
	case referenceCount == 1:
		return "The first image is the primary reference. Use it as the main source for product details, structure, and appearance."
	case referenceCount > 1:
		return fmt.Sprintf("IMPORTANT: The FIRST image is the PRIMARY/MAIN reference image. Use it as the dominant source for product structure, main features, and core appearance. "+
			"The additional %d image(s) should be merged/blended into the primary image to add supplementary details, alternative angles, or complementary features. "+
			"Prioritize the primary image while incorporating relevant elements from the additional images.", referenceCount-1)
	default:
		return ""
	}
}

// PhotoRequest carries everything one photo prompt is derived from.
type PhotoRequest struct {
	Plan           domain.ImagePlan
	Analysis       domain.AnalysisResult
	Vibe           string
	Description    string
	ReferenceCount int
}

// BuildPhotoInstruction renders the studio prompt for one plan entry.
func BuildPhotoInstruction(req PhotoRequest) string {
	vibe := strings.TrimSpace(req.Vibe)
	if vibe == "" {
		vibe = DefaultVibe
	}
	materials, err := json.Marshal(req.Analysis.Analysis.Materials)
	if err != nil {
		materials = []byte(req.Analysis.Analysis.Materials.Primary)
	}

	parts := []string{
		"Task: Create a professional marketing photo.",
		"Product Description: " + strings.TrimSpace(req.Description),
		"Input: Use provided images as reference.",
	}
	if ref := ReferenceInstruction(req.ReferenceCount); ref != "" {
		parts = append(parts, ref)
	}
	parts = append(parts,
		"Core Requirement: RECREATE the product in a completely new photograph that reflects the product description.",
		"Angle: "+req.Plan.Angle,
		"Background: "+req.Plan.Background,
		"Shot intent: "+req.Plan.Description,
		"!!! CRITICALLY IMPORTANT REQUIREMENTS !!!",
		"DO NOT EDIT: Do not cut/paste. Create 100% new image.",
		"MAINTAIN INTEGRITY: Preserve logos, colors and details perfectly.",
		fmt.Sprintf("VIBE & MOOD: The overall mood and atmosphere must be %q. It should be clearly visible in the color palette, the lighting style, the background elements and textures, and the overall composition.", vibe),
		"Product Details (from Analysis):",
		"- Basic Shape: "+req.Analysis.Analysis.Sketch,
		"- Key Materials: "+string(materials),
		fmt.Sprintf("Lighting: Professional studio lighting with natural shadows that matches the %q vibe.", vibe),
		fmt.Sprintf("Composition: Follow rule of thirds, ensure product is the focal point. The composition should enhance the %q mood.", vibe),
		fmt.Sprintf("Style: The image style must clearly convey %q and stay consistent throughout.", vibe),
	)
	return strings.Join(parts, "\n")
}

// BuildPhotoInstructions renders one prompt per plan entry, index-aligned.
func BuildPhotoInstructions(plan []domain.ImagePlan, analysis domain.AnalysisResult, vibe, description string, referenceCount int) []string {
	out := make([]string, len(plan))
	for i, p := range plan {
		out[i] = BuildPhotoInstruction(PhotoRequest{
			Plan:           p,
			Analysis:       analysis,
			Vibe:           vibe,
			Description:    description,
			ReferenceCount: referenceCount,
		})
	}
	return out
}
