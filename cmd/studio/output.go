package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"productstudio/internal/domain"
	"productstudio/internal/generation"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTaskTable(w io.Writer, page domain.TaskPage) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Product", "Vibe", "Images", "Created"})
	for _, t := range page.Tasks {
		tw.AppendRow(table.Row{t.ID, t.ProductName, t.Vibe, len(t.GeneratedImages), t.CreatedAt.Local().Format(time.DateTime)})
	}
	if page.HasMore {
		tw.AppendFooter(table.Row{"", "", "", "", "more on next page"})
	}
	tw.Render()
}

func renderResult(w io.Writer, res *generation.Result) {
	task := res.Task
	fmt.Fprintf(w, "task %s: %d image(s) generated", task.ID, len(task.GeneratedImages))
	if res.CacheHit {
		fmt.Fprint(w, " (analysis from cache)")
	}
	fmt.Fprintln(w)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"#", "Angle", "Background", "Size"})
	for i, img := range task.GeneratedImages {
		plan := domain.ImagePlan{}
		if i < len(task.Plan) {
			plan = task.Plan[i]
		}
		tw.AppendRow(table.Row{i, plan.Angle, plan.Background, fmt.Sprintf("%d KB", img.DecodedLen()/1024)})
	}
	tw.Render()

	if len(res.Failures) > 0 {
		ft := table.NewWriter()
		ft.SetOutputMirror(w)
		ft.SetTitle("Failed plan entries")
		ft.AppendHeader(table.Row{"Plan #", "Kind", "Error"})
		for _, f := range res.Failures {
			ft.AppendRow(table.Row{f.PlanIndex, f.Kind, f.Message})
		}
		ft.Render()
	}
}

func renderTask(w io.Writer, task *domain.Task) {
	fmt.Fprintf(w, "%s  %s\n", task.ID, task.ProductName)
	fmt.Fprintf(w, "vibe: %s  created: %s\n", task.Vibe, task.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "sketch: %s\n", task.Analysis.Analysis.Sketch)
	m := task.Analysis.Analysis.Materials
	fmt.Fprintf(w, "materials: %s", m.Primary)
	if m.Secondary != "" {
		fmt.Fprintf(w, ", %s", m.Secondary)
	}
	fmt.Fprintln(w)

	if len(task.Analysis.Analysis.Dimensions) > 0 {
		dt := table.NewWriter()
		dt.SetOutputMirror(w)
		dt.AppendHeader(table.Row{"Dimension", "Estimate", "Description"})
		keys := make([]string, 0, len(task.Analysis.Analysis.Dimensions))
		for k := range task.Analysis.Analysis.Dimensions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			d := task.Analysis.Analysis.Dimensions[k]
			dt.AppendRow(table.Row{d.Label, d.Estimate, d.Description})
		}
		dt.Render()
	}

	st := table.NewWriter()
	st.SetOutputMirror(w)
	st.AppendHeader(table.Row{"SEO title", "Tags"})
	for i, title := range task.Analysis.SEO.Titles {
		var tags []string
		if i < len(task.Analysis.SEO.Tags) {
			tags = task.Analysis.SEO.Tags[i]
		}
		st.AppendRow(table.Row{title, strings.Join(tags, ", ")})
	}
	st.Render()
}
