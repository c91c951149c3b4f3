package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/idg10/rxrewrite/catalog"
	"github.com/idg10/rxrewrite/engine"
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/loader"
	"github.com/idg10/rxrewrite/logger"
	"github.com/idg10/rxrewrite/resilience"
	"github.com/idg10/rxrewrite/version"
)

const healthPath = "/healthz"

// Lister is implemented by definition loaders that can enumerate names.
type Lister interface {
	List() ([]string, error)
}

// Handler serves the pipeline routes.
type Handler struct {
	engine     *engine.Engine
	defs       loader.Loader
	funcs      loader.Funcs
	mode       engine.Mode
	runTimeout time.Duration
	runs       *resilience.Bulkhead
	log        *logger.Logger

	stored sync.Map // definition name -> *built
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithDefinitions resolves pipelines requested by name through l.
func WithDefinitions(l loader.Loader) HandlerOption {
	return func(h *Handler) { h.defs = l }
}

// WithFuncs sets the function table used to build definitions.
func WithFuncs(f loader.Funcs) HandlerOption {
	return func(h *Handler) { h.funcs = f }
}

// WithMode sets the mode used when a request does not name one.
func WithMode(m engine.Mode) HandlerOption {
	return func(h *Handler) { h.mode = m }
}

// WithRunTimeout bounds each run. Zero means no bound beyond the request.
func WithRunTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) { h.runTimeout = d }
}

// WithBulkhead limits concurrent runs and streams. A nil bulkhead admits
// everything.
func WithBulkhead(b *resilience.Bulkhead) HandlerOption {
	return func(h *Handler) { h.runs = b }
}

// WithLogger sets the handler's logger.
func WithLogger(l *logger.Logger) HandlerOption {
	return func(h *Handler) { h.log = l }
}

// NewHandler creates a Handler backed by e.
func NewHandler(e *engine.Engine, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine: e,
		funcs:  catalog.DefaultFuncs(),
		mode:   engine.ModeRewrite,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithComponent("httpapi")
	return h
}

// Register adds the routes to r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET(healthPath, h.health)
	r.GET("/version", h.versionInfo)

	v1 := r.Group("/v1")
	v1.GET("/operators", h.operators)
	v1.GET("/pipelines", h.listPipelines)
	v1.POST("/pipelines/inspect", h.inspect)
	v1.POST("/pipelines/run", h.run)
	v1.POST("/pipelines/stream", h.stream)
}

// PipelineRequest selects a pipeline and how to execute it.
type PipelineRequest struct {
	// Name loads a stored definition. Exclusive with Definition.
	Name       string             `json:"name,omitempty"`
	Definition *loader.Definition `json:"definition,omitempty"`
	// Mode is rewrite or direct; empty uses the server default.
	Mode string `json:"mode,omitempty"`
	// Values are the input elements, parsed as the input type.
	Values []string `json:"values,omitempty"`
}

// InspectResponse describes a prepared pipeline.
type InspectResponse struct {
	Name string `json:"name"`
	engine.Description
}

// RunResponse carries the values a pipeline produced.
type RunResponse struct {
	Name   string `json:"name"`
	Mode   string `json:"mode"`
	Values []any  `json:"values"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": version.Name})
}

func (h *Handler) versionInfo(c *gin.Context) {
	RespondOK(c, version.Get())
}

type signatureLister interface {
	Signatures() []string
}

func (h *Handler) operators(c *gin.Context) {
	out := gin.H{}
	if s, ok := h.engine.Source().(signatureLister); ok {
		out[expr.Push.String()] = s.Signatures()
	}
	if s, ok := h.engine.Target().(signatureLister); ok {
		out[expr.AsyncPush.String()] = s.Signatures()
	}
	if f, ok := h.funcs.(interface{ Names() []string }); ok {
		out["funcs"] = f.Names()
	}
	RespondOK(c, out)
}

func (h *Handler) listPipelines(c *gin.Context) {
	l, ok := h.defs.(Lister)
	if !ok {
		RespondOK(c, []string{})
		return
	}
	names, err := l.List()
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, names)
}

func (h *Handler) inspect(c *gin.Context) {
	p, err := h.prepare(c)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, InspectResponse{Name: p.def.Name, Description: p.plan.Describe()})
}

func (h *Handler) run(c *gin.Context) {
	p, err := h.prepare(c)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	ctx, cancel := h.runContext(c)
	defer cancel()

	values, err := resilience.ExecuteWithResult(ctx, h.runs, func(ctx context.Context) ([]any, error) {
		return p.plan.Run(ctx, p.req.Values)
	})
	if err != nil {
		h.log.WithContext(logger.ContextWithPipeline(ctx, p.def.Name)).
			Warn("Pipeline run failed", logger.MergeWithError(nil, err))
		RespondWithError(c, err)
		return
	}
	if values == nil {
		values = []any{}
	}
	RespondOK(c, RunResponse{Name: p.def.Name, Mode: p.plan.Mode().String(), Values: values})
}

// runContext bounds a run by the configured run timeout.
func (h *Handler) runContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.runTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.runTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

type prepared struct {
	req  PipelineRequest
	def  *loader.Definition
	plan *engine.Plan
}

// built is a stored definition together with its expression. Stored
// definitions are built once per name so their plans are found in the
// engine's plan cache.
type built struct {
	def    *loader.Definition
	lambda *expr.Lambda
}

// prepare decodes the request, resolves its definition and prepares a plan.
// Inline definitions are prepared without the plan cache since every
// request builds a new expression for them.
func (h *Handler) prepare(c *gin.Context) (*prepared, error) {
	p := &prepared{}
	if err := bindJSON(c, &p.req); err != nil {
		return nil, apperrors.InvalidInput("body", err.Error()).WithCause(err)
	}

	b, inline, err := h.build(&p.req)
	if err != nil {
		return nil, err
	}
	p.def = b.def

	mode := h.mode
	if p.req.Mode != "" {
		if mode, err = engine.ParseMode(p.req.Mode); err != nil {
			return nil, err
		}
	}

	ctx := logger.ContextWithPipeline(c.Request.Context(), b.def.Name)
	if inline {
		p.plan, err = h.engine.PrepareUncached(ctx, b.lambda, mode)
	} else {
		p.plan, err = h.engine.Prepare(ctx, b.lambda, mode)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// bindJSON decodes the request body into v. Numbers stay json.Number so
// untyped definition values keep the integer or float type they were
// written with.
func bindJSON(c *gin.Context, v any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

// build resolves and builds the requested definition. inline reports
// whether it came with the request rather than from the stored definitions.
func (h *Handler) build(req *PipelineRequest) (b *built, inline bool, err error) {
	inline = req.Definition != nil
	if !inline && req.Name != "" {
		if v, ok := h.stored.Load(req.Name); ok {
			return v.(*built), false, nil
		}
	}

	def, err := h.definition(req)
	if err != nil {
		return nil, inline, err
	}
	l, err := loader.Build(def, h.engine.Source(), h.funcs)
	if err != nil {
		return nil, inline, err
	}
	b = &built{def: def, lambda: l}
	if !inline {
		v, _ := h.stored.LoadOrStore(req.Name, b)
		b = v.(*built)
	}
	return b, inline, nil
}

func (h *Handler) definition(req *PipelineRequest) (*loader.Definition, error) {
	switch {
	case req.Definition != nil && req.Name != "":
		return nil, apperrors.InvalidInput("name", "give a name or a definition, not both")
	case req.Definition != nil:
		return req.Definition, nil
	case req.Name == "":
		return nil, apperrors.InvalidInput("name", "a name or a definition is required")
	case h.defs == nil:
		return nil, apperrors.NotFound("pipeline", req.Name)
	}
	return h.defs.Load(req.Name)
}
