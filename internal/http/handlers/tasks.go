package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"productstudio/internal/domain"
	"productstudio/internal/generation"
	"productstudio/internal/imagegen"
	"productstudio/internal/storage"
	"productstudio/pkg/zip"
)

type imageInput struct {
	MimeType string `json:"mimeType"`
	// Data is base64 or a data URL.
	Data string `json:"data"`
}

type createTaskRequest struct {
	ProductName string       `json:"productName"`
	Description string       `json:"description"`
	Vibe        string       `json:"vibe"`
	Images      []imageInput `json:"images"`
	ImageCount  int          `json:"imageCount"`
	Parallel    *bool        `json:"parallel"`
	UseCache    *bool        `json:"useCache"`
	Model       string       `json:"model"`
}

// CreateTask runs a generation synchronously and returns the saved task.
func (a *App) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	images := make([]domain.Image, 0, len(req.Images))
	for _, in := range req.Images {
		images = append(images, imagegen.StripDataURL(in.Data, in.MimeType))
	}
	genReq := generation.Request{
		UserID:      a.currentUserID(r),
		ProductName: req.ProductName,
		Description: req.Description,
		Vibe:        req.Vibe,
		Images:      images,
		ImageCount:  req.ImageCount,
		Parallel:    boolOr(req.Parallel, a.Defaults.Parallel),
		UseCache:    boolOr(req.UseCache, true),
		Model:       a.Defaults.Model,
	}
	if req.ImageCount == 0 {
		genReq.ImageCount = a.Defaults.ImageCount
	}
	if req.Model != "" {
		genReq.Model = domain.ParseModelTier(req.Model)
	}

	res, err := a.Orchestrator.Run(r.Context(), genReq)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, res)
}

// ListTasks pages through the caller's tasks.
func (a *App) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 0)
	if err != nil || page < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "page must be a non-negative integer")
		return
	}
	size, err := intParam(q.Get("page_size"), storage.DefaultPageSize)
	if err != nil || size <= 0 || size > storage.MaxPageSize {
		a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("page_size must be between 1 and %d", storage.MaxPageSize))
		return
	}
	sort := domain.TaskSort(strings.ToLower(q.Get("sort")))
	switch sort {
	case "", domain.SortNewest, domain.SortOldest, domain.SortNameAsc, domain.SortNameDesc:
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported sort")
		return
	}

	result, err := a.Store.ListTasks(r.Context(), storage.ListQuery{
		UserID:   a.currentUserID(r),
		Search:   q.Get("q"),
		Sort:     sort,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

func (a *App) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.Store.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, task)
}

func (a *App) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegenerateImage replaces one generated image of a task.
func (a *App) RegenerateImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "index must be an integer")
		return
	}
	task, err := a.Orchestrator.Regenerate(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, task)
}

func intParam(v string, fallback int) (int, error) {
	if strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// ExportTask streams the generated images and analysis as a zip archive.
func (a *App) ExportTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.Store.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	entries, err := storage.ArchiveEntries(task)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, task.ID))
	if err := zip.Write(w, entries); err != nil {
		// headers are already sent
		log := a.requestLogger(r)
		log.Error().Err(err).Str("task_id", task.ID).Msg("http: export task")
	}
}
