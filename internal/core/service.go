package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bomgraft/internal/artifact"
	"bomgraft/internal/blob"
	"bomgraft/pkg/domain"
)

// Operation names reported to metrics, traces and logs.
const (
	OpValidate    = "validate"
	OpMerge       = "merge"
	OpSeal        = "seal"
	OpOpen        = "open"
	OpLatestPrior = "latest_prior"
	OpHistory     = "history"
	OpFlatten     = "flatten"
	OpCompare     = "compare"
)

// Service runs the BOM pipeline: validate the current export, graft it onto
// the prior sealed revision, seal the result into blob storage and record it
// in the revision ledger.
type Service struct {
	engine         *RulesEngine
	ledger         Ledger
	blobs          blob.Store
	unitMultiplier int

	clock   Clock
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// ServiceOption customizes a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	engine         *RulesEngine
	unitMultiplier int
	clock          Clock
	logger         *zap.Logger
	metrics        MetricsRecorder
	tracer         Tracer
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		engine:         NewDefaultRulesEngine(),
		unitMultiplier: 1,
		clock:          ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:         zap.NewNop(),
		metrics:        noopMetricsRecorder{},
		tracer:         noopTracer{},
	}
}

// WithRulesEngine replaces the default rule set.
func WithRulesEngine(engine *RulesEngine) ServiceOption {
	return func(o *serviceOptions) {
		if engine != nil {
			o.engine = engine
		}
	}
}

// WithUnitMultiplier scales flattened quantities. Values below 1 are ignored.
func WithUnitMultiplier(n int) ServiceOption {
	return func(o *serviceOptions) {
		if n >= 1 {
			o.unitMultiplier = n
		}
	}
}

// WithClock overrides the time source used for artifact dates and durations.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the operation tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// NewService wires a pipeline over the given ledger and artifact store.
func NewService(ledger Ledger, blobs blob.Store, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		engine:         o.engine,
		ledger:         ledger,
		blobs:          blobs,
		unitMultiplier: o.unitMultiplier,
		clock:          o.clock,
		logger:         o.logger,
		metrics:        o.metrics,
		tracer:         o.tracer,
	}
}

// Ledger returns the revision ledger.
func (s *Service) Ledger() Ledger { return s.ledger }

// Blobs returns the artifact store.
func (s *Service) Blobs() blob.Store { return s.blobs }

// observe starts a span and returns the function that finishes it.
func (s *Service) observe(ctx context.Context, op string) (context.Context, func(error)) {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	return ctx, func(err error) {
		elapsed := s.clock.Now().Sub(start)
		s.metrics.Observe(ctx, op, err == nil, elapsed)
		span.End(err)
		if err != nil {
			s.logger.Warn("operation failed", zap.String("operation", op), zap.Duration("duration", elapsed), zap.Error(err))
			return
		}
		s.logger.Debug("operation complete", zap.String("operation", op), zap.Duration("duration", elapsed))
	}
}

// Validate runs the configured rules against root. A rule that fails to
// evaluate is reported as a blocking violation.
func (s *Service) Validate(ctx context.Context, root *domain.Node) Result {
	ctx, done := s.observe(ctx, OpValidate)
	res, err := s.engine.Evaluate(ctx, root)
	if err != nil {
		res.Violations = append(res.Violations, Violation{Rule: "engine", Severity: blockingRuleSeverity, Message: err.Error()})
	}
	if res.HasBlocking() {
		done(domain.ValidationError{Result: res})
	} else {
		done(nil)
	}
	for _, v := range res.Violations {
		s.logger.Info("violation",
			zap.String("rule", v.Rule),
			zap.String("severity", string(v.Severity)),
			zap.String("path", v.Path),
			zap.String("message", v.Message))
	}
	return res
}

// Merge validates source and grafts it onto prior. prior is nil for a first
// revision; otherwise it must pass integrity checks. A blocking violation
// returns domain.ValidationError and no result.
func (s *Service) Merge(ctx context.Context, source domain.Tree, prior *artifact.Artifact) (result MergeResult, err error) {
	ctx, done := s.observe(ctx, OpMerge)
	defer func() { done(err) }()

	if source.Root == nil {
		return MergeResult{}, &domain.StructureError{Reason: "no root"}
	}
	res := s.Validate(ctx, source.Root)
	if res.HasBlocking() {
		return MergeResult{}, domain.ValidationError{Result: res}
	}

	var priorRoot *domain.Node
	if prior != nil {
		rep := artifact.Validate(prior, artifact.Expectations{ExpectedGA: source.Info.PartNumber})
		if rep.Err() != nil {
			return MergeResult{}, fmt.Errorf("prior artifact: %w", rep.Err())
		}
		for _, w := range rep.Warnings {
			s.logger.Warn("prior artifact", zap.String("warning", w))
		}
		priorRoot = prior.BOM
	}

	result = Merge(source.Root, priorRoot)
	for _, w := range result.Warnings {
		s.logger.Warn("merge warning", zap.String("part", source.Info.PartNumber), zap.String("warning", w))
	}
	for _, pn := range result.DuplicatePriorAssemblies {
		s.logger.Warn("duplicate prior assembly; first occurrence grafted", zap.String("part", pn))
	}
	s.logger.Info("merged",
		zap.String("part", source.Info.PartNumber),
		zap.Int("passedThrough", result.Summary.PassedThrough),
		zap.Int("grafted", result.Summary.Grafted),
		zap.Int("placeholders", result.Summary.Placeholders))
	return result, nil
}

// SealRequest describes a merged tree to publish. Revision and JobNumber are
// derived from Prior when unset; Date defaults to the service clock.
type SealRequest struct {
	Merge       MergeResult
	RootInfo    domain.RootInfo
	Revision    *int
	JobNumber   string
	SourceFiles artifact.SourceFiles
	Prior       *artifact.Artifact
	Date        time.Time
}

// Export seals the merged tree into an artifact without storing it.
func (s *Service) Export(req SealRequest) (*artifact.Artifact, error) {
	if req.Merge.Tree == nil {
		return nil, &artifact.FormatError{Field: "bom", Reason: "missing"}
	}
	revision := artifact.SuggestRevision(req.Prior)
	if req.Revision != nil {
		revision = *req.Revision
	}
	root := req.RootInfo.PartNumber
	if root == "" {
		root = req.Merge.Tree.PartNumber
	}
	job := req.JobNumber
	if job == "" {
		job = artifact.SuggestJobNumber(req.Prior, root)
	}
	date := req.Date
	if date.IsZero() {
		date = s.clock.Now()
	}
	return artifact.Export(artifact.ExportRequest{
		Tree:        req.Merge.Tree,
		Summary:     req.Merge.Summary,
		Revision:    revision,
		JobNumber:   job,
		SourceFiles: req.SourceFiles,
		Date:        date,
	})
}

// Seal exports the merged tree, stores the artifact under
// <job>/<filename> and records it in the ledger. If the ledger rejects the
// record the stored object is removed again.
func (s *Service) Seal(ctx context.Context, req SealRequest) (art *artifact.Artifact, rev domain.Revision, err error) {
	ctx, done := s.observe(ctx, OpSeal)
	defer func() { done(err) }()

	art, err = s.Export(req)
	if err != nil {
		return nil, domain.Revision{}, err
	}
	data, err := artifact.Marshal(art)
	if err != nil {
		return nil, domain.Revision{}, err
	}

	job, revision := art.Metadata.JobNumber, art.Metadata.Revision
	key := blob.Key(job, artifact.Filename(job, revision, art.Metadata.GeneratedDate))
	if _, err := blob.PutBytes(ctx, s.blobs, key, data, blob.PutOptions{
		ContentType: artifact.ContentType,
		Metadata: map[string]string{
			blob.MetaHash:      art.Metadata.Hash,
			blob.MetaRevision:  strconv.Itoa(revision),
			blob.MetaJobNumber: job,
		},
	}); err != nil {
		return nil, domain.Revision{}, fmt.Errorf("store artifact: %w", err)
	}

	rev = domain.Revision{
		ID:             uuid.NewString(),
		JobNumber:      job,
		Revision:       revision,
		Hash:           art.Metadata.Hash,
		BlobKey:        key,
		RootPartNumber: art.RootPartNumber(),
		GeneratedDate:  art.Metadata.GeneratedDate,
		Summary:        art.Metadata.Summary,
		Warnings:       req.Merge.Warnings,
	}
	if err := s.ledger.Record(ctx, rev); err != nil {
		if _, delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Error("remove orphaned artifact", zap.String("key", key), zap.Error(delErr))
		}
		return nil, domain.Revision{}, fmt.Errorf("record revision: %w", err)
	}
	s.logger.Info("sealed",
		zap.String("job", job),
		zap.Int("revision", revision),
		zap.String("hash", art.Metadata.Hash),
		zap.String("key", key))
	return art, rev, nil
}

// Open loads an artifact from blob storage and verifies it. An artifact that
// fails integrity is never returned; the report explains why.
func (s *Service) Open(ctx context.Context, key string, exp artifact.Expectations) (art *artifact.Artifact, rep artifact.Report, err error) {
	ctx, done := s.observe(ctx, OpOpen)
	defer func() { done(err) }()

	_, data, err := blob.ReadAll(ctx, s.blobs, key)
	if err != nil {
		return nil, artifact.Report{}, err
	}
	art, err = artifact.Import(data)
	if err != nil {
		return nil, artifact.Report{}, err
	}
	rep = artifact.Validate(art, exp)
	if rep.Err() != nil {
		return nil, rep, rep.Err()
	}
	for _, w := range rep.Warnings {
		s.logger.Warn("artifact warning", zap.String("key", key), zap.String("warning", w))
	}
	return art, rep, nil
}

// LatestPrior opens the newest sealed revision of job. It returns nil
// without error when the job has never been sealed. The stored artifact must
// carry the hash the ledger recorded for it.
func (s *Service) LatestPrior(ctx context.Context, job string) (art *artifact.Artifact, err error) {
	ctx, done := s.observe(ctx, OpLatestPrior)
	defer func() { done(err) }()

	rev, ok, err := s.ledger.Latest(ctx, job)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	art, _, err = s.Open(ctx, rev.BlobKey, artifact.Expectations{})
	if err != nil {
		return nil, err
	}
	if art.Metadata.Hash != rev.Hash {
		return nil, &artifact.IntegrityError{Stored: rev.Hash, Computed: art.Metadata.Hash}
	}
	return art, nil
}

// History lists every sealed revision of job in ascending order.
func (s *Service) History(ctx context.Context, job string) (revs []domain.Revision, err error) {
	ctx, done := s.observe(ctx, OpHistory)
	defer func() { done(err) }()
	return s.ledger.List(ctx, job)
}

// Flatten aggregates root into line items using the configured unit
// multiplier. Items keep first-occurrence order unless sorted is set.
func (s *Service) Flatten(ctx context.Context, root *domain.Node, sorted bool) []LineItem {
	_, done := s.observe(ctx, OpFlatten)
	defer done(nil)
	items := Flatten(root, s.unitMultiplier)
	if sorted {
		SortItems(items)
	}
	return items
}

// Compare flattens both trees and reports line-item differences.
func (s *Service) Compare(ctx context.Context, oldRoot, newRoot *domain.Node) []Difference {
	ctx, done := s.observe(ctx, OpCompare)
	defer done(nil)
	diffs := Compare(s.Flatten(ctx, oldRoot, true), s.Flatten(ctx, newRoot, true))
	s.logger.Info("compared", zap.Int("differences", len(diffs)))
	return diffs
}

// IsIntegrityFailure reports whether err came from a hash mismatch.
func IsIntegrityFailure(err error) bool {
	var ierr *artifact.IntegrityError
	return errors.As(err, &ierr)
}
