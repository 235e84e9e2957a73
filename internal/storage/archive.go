package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"productstudio/internal/domain"
	"productstudio/pkg/zip"
)

type archiveManifest struct {
	ID          string                `json:"id"`
	ProductName string                `json:"productName"`
	Vibe        string                `json:"vibe"`
	Analysis    domain.AnalysisResult `json:"analysis"`
	Images      []archiveImage        `json:"images"`
}

type archiveImage struct {
	File string           `json:"file"`
	Plan domain.ImagePlan `json:"plan"`
}

// ArchiveEntries lays out a task for download: one file per generated image,
// named by index and angle, plus a task.json manifest with the analysis.
func ArchiveEntries(task *domain.Task) ([]zip.Entry, error) {
	manifest := archiveManifest{
		ID:          task.ID,
		ProductName: task.ProductName,
		Vibe:        task.Vibe,
		Analysis:    task.Analysis,
	}
	entries := make([]zip.Entry, 0, len(task.GeneratedImages)+1)
	for i, img := range task.GeneratedImages {
		raw, err := img.Bytes()
		if err != nil {
			return nil, fmt.Errorf("archive task %s image %d: %w", task.ID, i, err)
		}
		var plan domain.ImagePlan
		if i < len(task.Plan) {
			plan = task.Plan[i]
		}
		name := fmt.Sprintf("%02d", i+1)
		if slug := slugify(plan.Angle); slug != "" {
			name += "-" + slug
		}
		name += img.Extension()
		entries = append(entries, zip.Entry{Name: name, Modified: task.CreatedAt, Store: true, Data: raw})
		manifest.Images = append(manifest.Images, archiveImage{File: name, Plan: plan})
	}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	entries = append(entries, zip.Entry{Name: "task.json", Modified: task.CreatedAt, Data: raw})
	return entries, nil
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
