package genai

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"productstudio/internal/domain"
)

const syntheticSize = 512

func syntheticAnalysis(req AnalysisRequest) domain.AnalysisResult {
	name := strings.TrimSpace(req.ProductName)
	if name == "" {
		name = "Product"
	}
	title := titleCaser().String(name)
	words := keywords(name + " " + req.Description)

	titles := []string{
		title,
		fmt.Sprintf("%s | Handcrafted Quality", title),
		fmt.Sprintf("Premium %s for Everyday Use", title),
		fmt.Sprintf("%s Gift Idea", title),
		fmt.Sprintf("Shop the %s Collection", title),
	}
	tags := make([][]string, len(titles))
	for i := range tags {
		tags[i] = rotate(words, i)
	}

	return domain.AnalysisResult{
		Analysis: domain.ProductAnalysis{
			Sketch: fmt.Sprintf("Technical sketch of %s with front and side views.", name),
			Dimensions: map[string]domain.Dimension{
				"height": {Label: "Height", Description: "Overall height", Estimate: "Approx. 20 cm"},
				"width":  {Label: "Width", Description: "Overall width", Estimate: "Approx. 15 cm"},
			},
			Materials: domain.Materials{
				Primary:     "Unknown",
				Location:    "Main body",
				Description: strings.TrimSpace(req.Description),
			},
		},
		SEO: domain.SEOContent{Titles: titles, Tags: tags},
	}
}

func (c *Client) syntheticImage(req ImageRequest) domain.Image {
	seed := deterministicSeed(c.imageModel, req.Prompt, len(req.References))
	data := renderSyntheticImage(syntheticSize, syntheticSize, seed)
	c.logger.Debug().Str("seed", seed).Msg("genai: generated synthetic image")
	return domain.Image{MimeType: "image/png", Data: base64.StdEncoding.EncodeToString(data)}
}

func keywords(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) < 3 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
		if len(out) == 8 {
			break
		}
	}
	if len(out) == 0 {
		out = []string{"product"}
	}
	return out
}

func rotate(words []string, n int) []string {
	out := make([]string, len(words))
	for i := range words {
		out[i] = words[(i+n)%len(words)]
	}
	return out
}

func renderSyntheticImage(width, height int, seed string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := max(32, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, min(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	diagonal := colorFromSeed(seed, 2)
	for x := 0; x < max(width, height); x += max(16, width/32) {
		for y := 0; y < height && x+y < width; y++ {
			img.Set(x+y, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if seed == "" {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{R: hexByte(segment[0:2]), G: hexByte(segment[2:4]), B: hexByte(segment[4:6]), A: 255}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil))[:16]
}
