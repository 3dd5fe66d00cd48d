package optimizer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/optimd/internal/store"
	"github.com/fyrsmithlabs/optimd/internal/template"
)

const tracerName = "github.com/fyrsmithlabs/optimd/internal/optimizer"
const meterName = "optimizer"

// Stats reports the optimizer's shared state for observability endpoints.
type Stats struct {
	TemplatesAvailable int   `json:"templates_available"`
	FilesReferenced    int   `json:"files_referenced"`
	CacheSize          int   `json:"cache_size"`
	TotalBytesCached   int64 `json:"total_bytes_cached"`
}

// Service owns the content store and template registry and exposes the four
// optimization operations. Construct it once at process startup and pass it
// to whatever handler needs it; it holds no global state.
type Service struct {
	store     *store.Store
	templates *template.Registry
	matcher   *template.Matcher
	logger    *zap.Logger

	tracer trace.Tracer
	meter  metric.Meter

	opCounter   metric.Int64Counter
	tokensSaved metric.Int64Counter
	savingsPct  metric.Float64Histogram
	opDuration  metric.Float64Histogram
}

// NewService creates the optimizer service.
func NewService(st *store.Store, registry *template.Registry, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if registry == nil {
		registry = template.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:     st,
		templates: registry,
		matcher:   template.NewMatcher(registry),
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		meter:     otel.Meter(meterName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return s, nil
}

func (s *Service) initMetrics() error {
	var err error

	s.opCounter, err = s.meter.Int64Counter(
		"optimd.optimizer.operations_total",
		metric.WithDescription("Optimization operations, labeled by operation and strategy."),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return err
	}

	s.tokensSaved, err = s.meter.Int64Counter(
		"optimd.optimizer.tokens_saved_total",
		metric.WithDescription("Estimated tokens saved across all operations."),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return err
	}

	s.savingsPct, err = s.meter.Float64Histogram(
		"optimd.optimizer.savings_percent",
		metric.WithDescription("Savings percentage per operation."),
		metric.WithUnit("%"),
	)
	if err != nil {
		return err
	}

	s.opDuration, err = s.meter.Float64Histogram(
		"optimd.optimizer.operation_duration_seconds",
		metric.WithDescription("Optimization operation duration in seconds."),
		metric.WithUnit("s"),
	)
	return err
}

// OptimizePrompt classifies the prompt into a template and instantiates it.
// The assistant template is a catch-all, so every non-empty prompt is
// compressed; empty input degrades to a zero-savings pass-through.
func (s *Service) OptimizePrompt(ctx context.Context, prompt string) Result {
	ctx, span := s.tracer.Start(ctx, "optimizer.optimize_prompt",
		trace.WithAttributes(attribute.Int("prompt_length", len(prompt))))
	defer span.End()
	start := time.Now()

	if prompt == "" {
		return s.finish(ctx, "prompt", newResult("", "", StrategyNone), start)
	}

	match := s.matcher.Match(prompt)
	if match.Template == nil {
		return s.finish(ctx, "prompt", newResult(prompt, prompt, StrategyNone), start)
	}

	optimized := match.Template.Instantiate(match.Vars)
	result := newResult(prompt, optimized, "template:"+match.Template.ID)

	s.logger.Debug("prompt optimized",
		zap.String("template", match.Template.ID),
		zap.Int("original_tokens", result.OriginalTokens),
		zap.Int("optimized_tokens", result.OptimizedTokens))

	return s.finish(ctx, "prompt", result, start)
}

// OptimizeMessage extracts oversized code and JSON blocks into the store,
// then compacts the remaining text. Stages run in sequence against the
// progressively modified string.
func (s *Service) OptimizeMessage(ctx context.Context, message string) Result {
	ctx, span := s.tracer.Start(ctx, "optimizer.optimize_message",
		trace.WithAttributes(attribute.Int("message_length", len(message))))
	defer span.End()
	start := time.Now()

	if message == "" {
		return s.finish(ctx, "message", newResult("", "", StrategyNone), start)
	}

	working := message
	var stages []string

	working, codeBlocks := s.extractCodeBlocks(working)
	if codeBlocks > 0 {
		stages = append(stages, stageCodeExtraction)
	}

	working, jsonBlocks := s.extractJSONBlocks(working)
	if jsonBlocks > 0 {
		stages = append(stages, stageJSONExtraction)
	}

	compacted := compact(working)
	if compacted != working {
		stages = append(stages, stageTextCompaction)
	}

	strategy := StrategyNone
	if len(stages) > 0 {
		strategy = joinStages(stages)
	}
	result := newResult(message, compacted, strategy)

	s.logger.Debug("message optimized",
		zap.String("strategy", strategy),
		zap.Int("code_blocks", codeBlocks),
		zap.Int("json_blocks", jsonBlocks),
		zap.Int("savings", result.Savings))

	return s.finish(ctx, "message", result, start)
}

// OptimizeFile stores a file attachment and returns a short inline
// reference in place of the content. Oversized uploads are rejected before
// any store mutation.
func (s *Service) OptimizeFile(ctx context.Context, content, filename, mimeType string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "optimizer.optimize_file",
		trace.WithAttributes(
			attribute.String("filename", filename),
			attribute.Int("content_length", len(content))))
	defer span.End()
	start := time.Now()

	put, err := s.store.Put(content, filename, mimeType)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("store file attachment: %w", err)
	}

	result := newResult(content, put.Reference, StrategyFileReference)

	s.logger.Debug("file attachment optimized",
		zap.String("id", put.ID),
		zap.String("filename", filename),
		zap.Int("savings", result.Savings))

	return s.finish(ctx, "file", result, start), nil
}

// Content returns stored raw content by id. A miss (never stored, evicted,
// or expired) returns false, not an error.
func (s *Service) Content(id string) (string, bool) {
	return s.store.Get(id)
}

// Stats combines template and store occupancy.
func (s *Service) Stats() Stats {
	st := s.store.Stats()
	return Stats{
		TemplatesAvailable: s.templates.Len(),
		FilesReferenced:    st.FilesStored,
		CacheSize:          st.Entries,
		TotalBytesCached:   st.TotalBytes,
	}
}

// ClearExpired removes stored entries older than maxAge on demand.
func (s *Service) ClearExpired(maxAge time.Duration) int {
	return s.store.ClearExpired(maxAge)
}

// RegisterTemplate adds a template to the registry at runtime.
func (s *Service) RegisterTemplate(t *template.Template) error {
	return s.templates.Register(t)
}

// finish records metrics for a completed operation and returns the result.
func (s *Service) finish(ctx context.Context, operation string, result Result, start time.Time) Result {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("strategy", result.Strategy),
	)
	s.opCounter.Add(ctx, 1, attrs)
	s.tokensSaved.Add(ctx, int64(result.Savings),
		metric.WithAttributes(attribute.String("operation", operation)))
	s.savingsPct.Record(ctx, result.SavingsPercent, attrs)
	s.opDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("operation", operation)))
	return result
}

func joinStages(stages []string) string {
	out := stages[0]
	for _, st := range stages[1:] {
		out += "+" + st
	}
	return out
}
