package generation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"productstudio/internal/cache"
	"productstudio/internal/domain"
	"productstudio/internal/imagegen"
	"productstudio/internal/infra"
	"productstudio/internal/metrics"
	"productstudio/internal/providers/genai"
	"productstudio/internal/resilience"
	"productstudio/internal/storage"
)

// DefaultUserID owns tasks created without an explicit user.
const DefaultUserID = "user-1"

// parallelThreshold is the smallest plan that is worth fanning out.
const parallelThreshold = 3

// Analyzer produces the product analysis for a run.
type Analyzer interface {
	AnalyzeProduct(ctx context.Context, req genai.AnalysisRequest) (domain.AnalysisResult, error)
}

// ImageGenerator produces one image per call.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req genai.ImageRequest) (domain.Image, error)
}

// Options wires an Orchestrator. Analyzer, Generator and Store are required.
type Options struct {
	Analyzer  Analyzer
	Generator ImageGenerator
	Store     *storage.TaskStore
	// Cache is optional; without it every run analyses.
	Cache           *cache.AnalysisCache
	AnalysisBreaker *resilience.CircuitBreaker
	ImageBreaker    *resilience.CircuitBreaker
	Retry           resilience.Policy
	Logger          *infra.Logger
	Now             func() time.Time
	NewID           func() string
	// StorageQuality is the JPEG quality used before persisting; 0 keeps
	// the generated payloads unchanged.
	StorageQuality    int
	DefaultImageCount int
}

// Orchestrator runs generation requests end to end.
type Orchestrator struct {
	analyzer        Analyzer
	generator       ImageGenerator
	store           *storage.TaskStore
	cache           *cache.AnalysisCache
	analysisBreaker *resilience.CircuitBreaker
	imageBreaker    *resilience.CircuitBreaker
	retry           resilience.Policy
	logger          *infra.Logger
	now             func() time.Time
	newID           func() string
	quality         int
	defaultCount    int
}

// New validates the options and returns an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Analyzer == nil || opts.Generator == nil {
		return nil, errors.New("generation: analyzer and generator are required")
	}
	if opts.Store == nil {
		return nil, errors.New("generation: task store is required")
	}
	o := &Orchestrator{
		analyzer:        opts.Analyzer,
		generator:       opts.Generator,
		store:           opts.Store,
		cache:           opts.Cache,
		analysisBreaker: opts.AnalysisBreaker,
		imageBreaker:    opts.ImageBreaker,
		retry:           opts.Retry,
		logger:          opts.Logger,
		now:             opts.Now,
		newID:           opts.NewID,
		quality:         opts.StorageQuality,
		defaultCount:    opts.DefaultImageCount,
	}
	if o.analysisBreaker == nil {
		o.analysisBreaker = resilience.NewCircuitBreaker(resilience.BreakerOptions{Name: "analysis"})
	}
	if o.imageBreaker == nil {
		o.imageBreaker = resilience.NewCircuitBreaker(resilience.BreakerOptions{Name: "image"})
	}
	if o.logger == nil {
		o.logger = infra.NopLogger()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = NewTaskID
	}
	if o.defaultCount <= 0 {
		o.defaultCount = imagegen.DefaultImageCount
	}
	if o.retry.OnRetry == nil {
		o.retry.OnRetry = o.logRetry
	}
	return o, nil
}

// NewTaskID returns a time-sortable unique id.
func NewTaskID() string {
	return strings.ToLower(ulid.Make().String())
}

// Breakers exposes the guarded endpoints for observability.
func (o *Orchestrator) Breakers() []*resilience.CircuitBreaker {
	return []*resilience.CircuitBreaker{o.analysisBreaker, o.imageBreaker}
}

// Request is one generation run.
type Request struct {
	UserID      string
	ProductName string
	Description string
	Vibe        string
	Images      []domain.Image
	// ImageCount is clamped to the catalogue; zero means the default.
	ImageCount int
	Parallel   bool
	UseCache   bool
	Model      domain.ModelTier
	Hooks      Hooks
}

// Hooks observe a run. Both are optional and may be called from several
// goroutines, though never concurrently.
type Hooks struct {
	OnStage    func(Stage)
	OnProgress func(current, total int)
}

// Failure records one plan entry that produced no image.
type Failure struct {
	PlanIndex int              `json:"planIndex"`
	Kind      domain.ErrorKind `json:"kind"`
	Message   string           `json:"message"`
}

// Result is a persisted run.
type Result struct {
	Task     *domain.Task `json:"task"`
	Failures []Failure    `json:"failures,omitempty"`
	CacheHit bool         `json:"cacheHit"`
}

// Run analyses the product, generates the planned images and persists the
// task. Individual image failures are tolerated as long as one succeeds.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}
	vibe := strings.TrimSpace(req.Vibe)
	if vibe == "" {
		vibe = imagegen.DefaultVibe
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = DefaultUserID
	}
	tracker := newStageTracker(req.Hooks.OnStage)
	logger := o.logger.With().Str("product", req.ProductName).Logger()

	tracker.set(StageAnalyzing)
	analysis, hit, err := o.analyze(ctx, req)
	if err != nil {
		tracker.set(StageFailed)
		logger.Warn().Err(err).Str("kind", string(resilience.Classify(err))).Msg("generation: analysis failed")
		return nil, err
	}

	tracker.set(StagePlanning)
	count := req.ImageCount
	if count <= 0 {
		count = o.defaultCount
	}
	plan := imagegen.BuildPlan(count)
	prompts := imagegen.BuildPhotoInstructions(plan, analysis, vibe, req.Description, len(req.Images))

	tracker.set(StageGenerating)
	parallel := req.Parallel && len(plan) >= parallelThreshold
	logger.Info().Int("images", len(plan)).Bool("parallel", parallel).Bool("cache_hit", hit).Msg("generation: generating images")

	progress := newProgress(len(plan), req.Hooks.OnProgress)
	var outcomes []outcome
	if parallel {
		outcomes = o.generateParallel(ctx, plan, prompts, req.Images, progress)
	} else {
		outcomes = o.generateSequential(ctx, plan, prompts, req.Images, progress)
	}

	images, failures, errs := split(outcomes)
	if len(images) == 0 {
		tracker.set(StageFailed)
		return nil, errors.Join(append([]error{domain.ErrNoImagesGenerated}, errs...)...)
	}

	tracker.set(StagePersisting)
	task := &domain.Task{
		ID:                 o.newID(),
		UserID:             userID,
		ProductName:        strings.TrimSpace(req.ProductName),
		ProductDescription: strings.TrimSpace(req.Description),
		InputImages:        req.Images,
		Analysis:           analysis,
		CreatedAt:          o.now(),
		Vibe:               vibe,
	}
	for _, g := range images {
		task.GeneratedImages = append(task.GeneratedImages, o.compress(g.Image))
		task.Plan = append(task.Plan, g.Plan)
	}
	if err := o.store.SaveTask(ctx, task); err != nil {
		tracker.set(StageFailed)
		logger.Error().Err(err).Str("task_id", task.ID).Msg("generation: persist task failed")
		return nil, err
	}

	tracker.set(StageDone)
	logger.Info().Str("task_id", task.ID).Int("generated", len(images)).Int("failed", len(failures)).Msg("generation: task saved")
	return &Result{Task: task, Failures: failures, CacheHit: hit}, nil
}

func (o *Orchestrator) validate(req Request) error {
	if strings.TrimSpace(req.ProductName) == "" {
		return fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("%w: product description is required", domain.ErrInvalidInput)
	}
	if req.ImageCount < 0 || req.ImageCount > imagegen.MaxImageCount {
		return fmt.Errorf("%w: image count must be between 1 and %d", domain.ErrInvalidInput, imagegen.MaxImageCount)
	}
	return imagegen.ValidateReferences(req.Images)
}

// analyze consults the cache only for the auto model tier, since a forced
// tier asks for a fresh answer from that specific model.
func (o *Orchestrator) analyze(ctx context.Context, req Request) (domain.AnalysisResult, bool, error) {
	useCache := o.cache != nil && req.UseCache && (req.Model == "" || req.Model == domain.ModelAuto)
	if useCache {
		if res, ok := o.cache.Get(req.Images, req.ProductName, req.Description); ok {
			o.logger.Debug().Str("product", req.ProductName).Msg("generation: analysis cache hit")
			return res, true, nil
		}
	}

	res, err := resilience.ExecuteValue(ctx, o.analysisBreaker, func(ctx context.Context) (domain.AnalysisResult, error) {
		return o.analyzer.AnalyzeProduct(ctx, genai.AnalysisRequest{
			Images:      req.Images,
			ProductName: req.ProductName,
			Description: req.Description,
			Prompt:      imagegen.BuildAnalysisInstruction(req.ProductName, req.Description),
			Model:       req.Model,
		})
	})
	if err != nil {
		return domain.AnalysisResult{}, false, err
	}

	if useCache {
		if err := o.cache.Set(ctx, req.Images, req.ProductName, req.Description, res); err != nil {
			o.logger.Warn().Err(err).Msg("generation: analysis cache write failed")
		}
	}
	return res, false, nil
}

// generateOne runs a single prompt through the retry policy, each attempt
// passing the image breaker.
func (o *Orchestrator) generateOne(ctx context.Context, prompt string, refs []domain.Image) (domain.Image, error) {
	return resilience.Do(ctx, o.retry, func(ctx context.Context) (domain.Image, error) {
		return resilience.ExecuteValue(ctx, o.imageBreaker, func(ctx context.Context) (domain.Image, error) {
			return o.generator.GenerateImage(ctx, genai.ImageRequest{Prompt: prompt, References: refs})
		})
	})
}

func (o *Orchestrator) generateSequential(ctx context.Context, plan []domain.ImagePlan, prompts []string, refs []domain.Image, p *progress) []outcome {
	out := make([]outcome, 0, len(plan))
	for i := range plan {
		img, err := o.generateOne(ctx, prompts[i], refs)
		out = append(out, o.record(i, plan[i], img, err))
		p.step()
	}
	return out
}

func (o *Orchestrator) generateParallel(ctx context.Context, plan []domain.ImagePlan, prompts []string, refs []domain.Image, p *progress) []outcome {
	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make([]outcome, 0, len(plan))
	)
	for i := range plan {
		g.Go(func() error {
			img, err := o.generateOne(ctx, prompts[i], refs)
			res := o.record(i, plan[i], img, err)
			mu.Lock()
			out = append(out, res)
			mu.Unlock()
			p.step()
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(out, func(a, b int) bool { return out[a].PlanIndex < out[b].PlanIndex })
	return out
}

func (o *Orchestrator) record(index int, plan domain.ImagePlan, img domain.Image, err error) outcome {
	if err != nil {
		kind := resilience.Classify(err)
		metrics.GenerationImages.WithLabelValues("failed").Inc()
		o.logger.Warn().Err(err).Int("plan_index", index).Str("kind", string(kind)).Msg("generation: image failed")
		return outcome{GeneratedImage: domain.GeneratedImage{PlanIndex: index, Plan: plan}, err: err, kind: kind}
	}
	metrics.GenerationImages.WithLabelValues("succeeded").Inc()
	return outcome{GeneratedImage: domain.GeneratedImage{PlanIndex: index, Plan: plan, Image: img}}
}

func (o *Orchestrator) compress(img domain.Image) domain.Image {
	if o.quality <= 0 {
		return img
	}
	out, err := imagegen.CompressForStorage(img, o.quality)
	if err != nil {
		o.logger.Debug().Err(err).Msg("generation: storing image uncompressed")
		return img
	}
	return out
}

func (o *Orchestrator) logRetry(attempt int, kind domain.ErrorKind, delay time.Duration, err error) {
	metrics.RetryAttempts.WithLabelValues(string(kind)).Inc()
	o.logger.Warn().Err(err).Int("attempt", attempt).Str("kind", string(kind)).Dur("delay", delay).Msg("generation: retrying image call")
}

type outcome struct {
	domain.GeneratedImage
	err  error
	kind domain.ErrorKind
}

func split(outcomes []outcome) ([]domain.GeneratedImage, []Failure, []error) {
	var (
		images   []domain.GeneratedImage
		failures []Failure
		errs     []error
	)
	for _, oc := range outcomes {
		if oc.err != nil {
			failures = append(failures, Failure{PlanIndex: oc.PlanIndex, Kind: oc.kind, Message: oc.err.Error()})
			errs = append(errs, fmt.Errorf("image %d: %w", oc.PlanIndex+1, oc.err))
			continue
		}
		images = append(images, oc.GeneratedImage)
	}
	return images, failures, errs
}
