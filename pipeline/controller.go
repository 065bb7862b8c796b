package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"shorts-bot/delivery"
	"shorts-bot/imagegen"
	"shorts-bot/metrics"
	"shorts-bot/render"
	"shorts-bot/script"
	"shorts-bot/types"
)

// Generator produces validated structured content from an idea
type Generator interface {
	Generate(ctx context.Context, req script.Request) (*types.StructuredContent, error)
}

// Fetcher downloads an image URL into dir
type Fetcher interface {
	Fetch(ctx context.Context, url, dir string) (string, error)
}

// Assembler turns an image and narration into a video
type Assembler interface {
	Assemble(ctx context.Context, in render.Input) (*types.MediaArtifact, error)
}

// Deliverer talks back to the originating chat
type Deliverer interface {
	Notify(ctx context.Context, chatID int64, text string) error
	Deliver(ctx context.Context, chatID int64, c delivery.Content) error
}

// User-facing failure messages
const (
	msgConfigError   = "❌ ERROR: generation API key is missing or invalid."
	msgEmptyResponse = "❌ The model returned an empty response. Please rephrase your idea and try again."
	msgServiceError  = "❌ API error (%s): %v"
	msgProcessError  = "❌ Processing error: %v"
)

// Soft failure causes raised by the controller itself
const (
	CauseService = "service"
	CausePanic   = "panic"
)

// Options are the per-run stage toggles and limits
type Options struct {
	ImageStageEnabled    bool
	AssemblyStageEnabled bool
	VideoDuration        float64 // seconds
	ImageModel           string
	ImageTimeout         time.Duration
	WorkDir              string
}

// Deps are the stage collaborators. Generator is nil when no credentials are configured;
// Images, Fetcher and Assembler may be nil when their stage is disabled.
type Deps struct {
	Generator Generator
	Images    imagegen.Generator
	Fetcher   Fetcher
	Assembler Assembler
	Deliverer Deliverer
}

// Controller runs one request through text → image → assembly → delivery
type Controller struct {
	variant *Variant
	opts    Options
	deps    Deps
	logger  *zap.Logger
}

// NewController creates a new Controller
func NewController(variant *Variant, opts Options, deps Deps, logger *zap.Logger) *Controller {
	return &Controller{
		variant: variant,
		opts:    opts,
		deps:    deps,
		logger:  logger.Named("pipeline"),
	}
}

// run is the mutable state of one pipeline run
type run struct {
	req    types.GenerationRequest
	result *types.RunResult
	ws     *Workspace
	log    *zap.Logger
	stage  types.Stage
}

// Run executes one request to a terminal state. It never panics and always
// removes every temporary file of the run before returning.
func (c *Controller) Run(ctx context.Context, req types.GenerationRequest) (result *types.RunResult) {
	r := &run{
		req: req,
		result: &types.RunResult{
			RunID:     req.RunID,
			State:     types.StateIdle,
			StartedAt: time.Now().UTC().Format(time.RFC3339),
		},
		log:   c.logger.With(zap.String("run_id", req.RunID), zap.Int64("chat_id", req.ChatID)),
		stage: types.StageConfig,
	}
	result = r.result
	defer c.finish(r)

	if c.deps.Generator == nil {
		c.fail(ctx, r, types.StageConfig, types.KindConfig, types.ErrMissingCredentials)
		return result
	}

	ws, err := NewWorkspace(c.opts.WorkDir, req.RunID)
	if err != nil {
		c.fail(ctx, r, types.StageConfig, types.KindInternal, err)
		return result
	}
	r.ws = ws
	defer func() {
		if err := ws.Cleanup(); err != nil {
			r.log.Warn("Workspace cleanup incomplete", zap.Error(err))
		}
	}()

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Stage panicked", zap.String("stage", string(r.stage)), zap.Any("panic", p), zap.Stack("stack"))
			c.fail(ctx, r, r.stage, types.KindInternal, fmt.Errorf("panic: %v", p))
		}
	}()

	c.execute(ctx, r)
	return result
}

func (c *Controller) execute(ctx context.Context, r *run) {
	c.notify(ctx, r, fmt.Sprintf(c.variant.Started, r.req.RawIdea))

	// ─────────────────────────────────────────────
	// Text
	// ─────────────────────────────────────────────
	c.enter(ctx, r, types.StateTextGenerating, types.StageText)
	started := time.Now()
	content, err := c.deps.Generator.Generate(ctx, script.Request{
		System: c.variant.System,
		Prompt: c.variant.Prompt(r.req.RawIdea),
		Schema: c.variant.Schema,
	})
	observe(types.StageText, started)
	if err != nil {
		c.fail(ctx, r, types.StageText, classify(err), err)
		return
	}

	// ─────────────────────────────────────────────
	// Image (optional, soft)
	// ─────────────────────────────────────────────
	var imageURL, imagePath string
	if c.opts.ImageStageEnabled && c.deps.Images != nil {
		c.enter(ctx, r, types.StateImageGenerating, types.StageImage)
		started = time.Now()
		imageURL, imagePath = c.imageStage(ctx, r, content)
		observe(types.StageImage, started)
	}

	// ─────────────────────────────────────────────
	// Assembly (optional, soft)
	// ─────────────────────────────────────────────
	var video *types.MediaArtifact
	assembled := false
	if c.opts.AssemblyStageEnabled && c.variant.Assembles && c.deps.Assembler != nil {
		c.enter(ctx, r, types.StateAssembling, types.StageAssembly)
		started = time.Now()
		video, assembled = c.assemblyStage(ctx, r, content, imagePath)
		observe(types.StageAssembly, started)
	}

	// ─────────────────────────────────────────────
	// Delivery
	// ─────────────────────────────────────────────
	c.enter(ctx, r, types.StateDelivering, types.StageDelivery)
	out := c.variant.Content(r.req.RawIdea, content)
	switch {
	case video.Usable():
		out.VideoPath = video.LocalPath
	case assembled:
		// placeholder assembly stands in for the video: nothing to attach
	case imagePath != "":
		out.ImagePath = imagePath
	}
	if !c.variant.DownloadImage && imageURL != "" {
		out.LinkURL = imageURL
	}

	started = time.Now()
	err = c.deps.Deliverer.Deliver(ctx, r.req.ChatID, out)
	observe(types.StageDelivery, started)
	if err != nil {
		c.fail(ctx, r, types.StageDelivery, types.KindDelivery, err)
		return
	}

	// Done has no progress message of its own: the delivered result is the signal
	r.result.State = types.StateDone
	r.result.Delivered = out.Kind()
	r.log.Info("✅ Run done", zap.String("delivered", out.Kind()))
}

// imageStage resolves one image URL and, when the variant sends the image itself,
// downloads it into the workspace. Failures, panics included, only make the image absent.
func (c *Controller) imageStage(ctx context.Context, r *run, content *types.StructuredContent) (url, path string) {
	defer func() {
		if c.absorbPanic(r, types.StageImage, recover()) {
			path = ""
		}
	}()

	prompt := content.ImagePrompt
	if prompt == "" {
		prompt = r.req.RawIdea
	}

	imgCtx := ctx
	if c.opts.ImageTimeout > 0 {
		var cancel context.CancelFunc
		imgCtx, cancel = context.WithTimeout(ctx, c.opts.ImageTimeout)
		defer cancel()
	}

	images, err := c.deps.Images.Generate(imgCtx, imagegen.Request{
		Model:       c.opts.ImageModel,
		Prompt:      prompt,
		Count:       1,
		AspectRatio: c.variant.AspectRatio,
	})
	if err == nil && (len(images) == 0 || images[0].URL == "") {
		err = imagegen.ErrNoImages
	}
	if err != nil {
		c.soft(r, types.NewSoftFailure(types.StageImage, CauseService, err))
		return "", ""
	}

	url = images[0].URL
	if !c.variant.DownloadImage || c.deps.Fetcher == nil {
		return url, ""
	}

	fetched, err := c.deps.Fetcher.Fetch(ctx, url, r.ws.Dir())
	if err != nil {
		c.soft(r, err)
		return url, ""
	}
	r.ws.Track(fetched)
	return url, fetched
}

// assemblyStage reports the artifact and whether assembly succeeded at all.
// A panicking assembler counts as a failed assembly.
func (c *Controller) assemblyStage(ctx context.Context, r *run, content *types.StructuredContent, imagePath string) (artifact *types.MediaArtifact, ok bool) {
	defer func() {
		if c.absorbPanic(r, types.StageAssembly, recover()) {
			artifact, ok = nil, false
		}
	}()

	artifact, err := c.deps.Assembler.Assemble(ctx, render.Input{
		ImagePath: imagePath,
		Narration: content.Narration,
		Title:     content.Title,
		Duration:  c.opts.VideoDuration,
		Dir:       r.ws.Dir(),
	})
	if err != nil {
		c.soft(r, err)
		return nil, false
	}
	if artifact.Usable() {
		r.ws.Track(artifact.LocalPath)
	}
	return artifact, true
}

// absorbPanic turns a recovered panic of an optional stage into a soft failure
func (c *Controller) absorbPanic(r *run, stage types.Stage, p any) bool {
	if p == nil {
		return false
	}
	r.log.Error("Optional stage panicked", zap.String("stage", string(stage)), zap.Any("panic", p), zap.Stack("stack"))
	c.soft(r, types.NewSoftFailure(stage, CausePanic, fmt.Errorf("panic: %v", p)))
	return true
}

// enter moves to a working state and announces it
func (c *Controller) enter(ctx context.Context, r *run, state types.State, stage types.Stage) {
	r.result.State = state
	r.stage = stage
	r.log.Info("Stage started", zap.String("state", string(state)))
	if msg, ok := c.variant.Progress[state]; ok {
		c.notify(ctx, r, msg)
	}
}

// notify is best effort: a failed progress message never aborts the run
func (c *Controller) notify(ctx context.Context, r *run, text string) {
	if err := c.deps.Deliverer.Notify(ctx, r.req.ChatID, text); err != nil {
		r.log.Warn("Progress notification failed", zap.Error(err))
	}
}

func (c *Controller) soft(r *run, err error) {
	stage, cause := r.stage, "unknown"
	var sf *types.SoftFailure
	if errors.As(err, &sf) {
		stage, cause = sf.Stage, sf.Cause
	}
	metrics.SoftFailuresTotal.WithLabelValues(string(stage), cause).Inc()
	r.log.Warn("Optional stage failed, continuing without its artifact",
		zap.String("stage", string(stage)),
		zap.String("kind", string(types.KindSoftAsset)),
		zap.String("cause", cause),
		zap.Error(err))
}

// fail moves the run to Failed and tells the user why
func (c *Controller) fail(ctx context.Context, r *run, stage types.Stage, kind types.FailureKind, err error) {
	r.result.State = types.StateFailed
	r.result.Failure = &types.Failure{Stage: stage, Kind: kind, Detail: err.Error(), Err: err}
	metrics.StageFailuresTotal.WithLabelValues(string(stage), string(kind)).Inc()
	r.log.Error("Run failed", zap.String("stage", string(stage)), zap.String("kind", string(kind)), zap.Error(err))

	c.notify(ctx, r, userMessage(kind, err))
}

func (c *Controller) finish(r *run) {
	r.result.EndedAt = time.Now().UTC().Format(time.RFC3339)
	outcome := "done"
	if r.result.State == types.StateFailed {
		outcome = "failed"
	}
	metrics.RunsTotal.WithLabelValues(c.variant.Name, outcome).Inc()
}

// classify maps a text-stage error onto the failure taxonomy
func classify(err error) types.FailureKind {
	var svcErr *script.ServiceError
	switch {
	case errors.Is(err, types.ErrMissingCredentials):
		return types.KindConfig
	case errors.Is(err, script.ErrEmptyResponse):
		return types.KindEmptyResponse
	case errors.Is(err, script.ErrMalformedResponse):
		return types.KindMalformedResponse
	case errors.As(err, &svcErr):
		return types.KindServiceError
	default:
		return types.KindInternal
	}
}

func userMessage(kind types.FailureKind, err error) string {
	switch kind {
	case types.KindConfig:
		return msgConfigError
	case types.KindEmptyResponse:
		return msgEmptyResponse
	case types.KindServiceError:
		var svcErr *script.ServiceError
		if errors.As(err, &svcErr) {
			return fmt.Sprintf(msgServiceError, providerName(svcErr.Provider), svcErr.Err)
		}
		return fmt.Sprintf(msgServiceError, "generation service", err)
	default:
		return fmt.Sprintf(msgProcessError, err)
	}
}

func providerName(p string) string {
	switch p {
	case "gemini":
		return "Gemini"
	case "openai":
		return "OpenAI"
	case "":
		return "generation service"
	default:
		return strings.ToUpper(p[:1]) + p[1:]
	}
}

func observe(stage types.Stage, started time.Time) {
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(started).Seconds())
}
