// Package api binds the variantlib core to the catalog store and the
// RPC surface: it owns request validation, candidate scoring and the
// admission of download jobs.
package api

import (
	"context"
	"fmt"
	"log"

	"github.com/variantdl/variantdl/common"
	"github.com/variantdl/variantdl/internal/store"
	"github.com/variantdl/variantdl/pkg/variantlib"
)

// Service implements the daemon's exposed operations over the core.
type Service struct {
	log      *log.Logger
	store    *store.Store
	jobs     *variantlib.JobStore
	ledger   variantlib.Ledger
	graph    *variantlib.DepGraph
	selector *variantlib.Selector
	resolver *variantlib.Resolver
	sched    *variantlib.Scheduler
}

// Config wires a Service.
type Config struct {
	Log      *log.Logger
	Store    *store.Store
	Jobs     *variantlib.JobStore
	Ledger   variantlib.Ledger
	Graph    *variantlib.DepGraph
	Selector *variantlib.Selector
	Resolver *variantlib.Resolver
	Sched    *variantlib.Scheduler
}

func NewService(cfg Config) *Service {
	return &Service{
		log:      cfg.Log,
		store:    cfg.Store,
		jobs:     cfg.Jobs,
		ledger:   cfg.Ledger,
		graph:    cfg.Graph,
		selector: cfg.Selector,
		resolver: cfg.Resolver,
		sched:    cfg.Sched,
	}
}

// Resolve picks the content variant a device should receive. Without
// FailedContentID it is a first-time selection; with one it resolves a
// fallback after a reported delivery failure. Selection errors are
// terminal for the request: the caller re-requests, there is no
// automatic retry here.
func (s *Service) Resolve(ctx context.Context, p *common.ResolveParams) (*common.ResolveResult, error) {
	if p.RequestedName == "" || p.Device == (variantlib.DeviceInfo{}) {
		return nil, variantlib.ErrInvalidRequest
	}
	variants, err := s.store.VariantsByName(ctx, p.RequestedName)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, variantlib.ErrContentNotFound
	}
	candidates, err := s.scoreCandidates(variants, p.Device, p.ClientID)
	if err != nil {
		return nil, err
	}

	if p.FailedContentID != "" {
		chosen, err := s.resolver.Fallback(candidates, p.FailedContentID, p.ClientID, p.RequestedName)
		if err != nil {
			return nil, err
		}
		return resolveResult(chosen, true), nil
	}

	chosen := s.selector.Select(candidates)
	if chosen == nil {
		return nil, variantlib.ErrNoCompatibleContent
	}
	return resolveResult(chosen, false), nil
}

// scoreCandidates computes the final compatibility score of every
// variant for the device. Candidates scored zero are dropped: a zero
// composite means no dimension fits at all, and offering them would
// only mask a real incompatibility.
func (s *Service) scoreCandidates(variants []*variantlib.ContentVariant, device variantlib.DeviceInfo, clientID string) ([]variantlib.ScoredVariant, error) {
	candidates := make([]variantlib.ScoredVariant, 0, len(variants))
	for _, v := range variants {
		stats, err := s.ledger.Stats(v.ID, clientID)
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", v.ID, err)
		}
		score := variantlib.Score(device, v.Meta, variantlib.ReliabilityFactor(stats))
		if score == 0 {
			continue
		}
		candidates = append(candidates, variantlib.ScoredVariant{Variant: v, Score: score})
	}
	return candidates, nil
}

func resolveResult(v *variantlib.ContentVariant, fallback bool) *common.ResolveResult {
	return &common.ResolveResult{
		Fallback:    fallback,
		ContentID:   v.ID,
		Kind:        v.Kind,
		Version:     v.Version,
		DownloadURL: v.DownloadURL,
	}
}

// RequestDownload admits a transfer job for a (content, client) pair.
// A duplicate request while a job is pending or in_progress returns the
// existing job with Coalesced set; this is a correctness invariant, not
// an optimization, since overlapping jobs would double-count
// concurrency slots and duplicate history.
func (s *Service) RequestDownload(ctx context.Context, p *common.DownloadParams) (*common.DownloadResult, error) {
	if p.ContentID == "" || p.ClientID == "" {
		return nil, variantlib.ErrInvalidRequest
	}
	if _, err := s.store.Variant(ctx, p.ContentID); err != nil {
		return nil, err
	}
	job, created := s.jobs.Create(p.ContentID, p.ClientID, p.Tier.Priority())
	if created {
		s.log.Printf("job %s queued: content=%s client=%s priority=%d",
			job.ID, job.ContentID, job.ClientID, job.Priority)
		s.sched.Kick()
	}
	return &common.DownloadResult{
		JobID:     job.ID,
		Status:    job.Status,
		Coalesced: !created,
	}, nil
}

// JobStatus reports the status and progress of a job, consulting the
// archive for jobs already pruned from the live store.
func (s *Service) JobStatus(p *common.JobParams) (*common.JobStatusResult, error) {
	job, ok := s.jobs.Get(p.JobID)
	if !ok {
		var err error
		job, err = s.store.ArchivedJob(p.JobID)
		if err != nil {
			return nil, variantlib.ErrJobNotFound
		}
	}
	return &common.JobStatusResult{
		JobID:    job.ID,
		Status:   job.Status,
		Percent:  job.Percent,
		Attempts: job.Attempts,
	}, nil
}

// CancelJob requests a job stop. Canceling an already terminal job is a
// no-op.
func (s *Service) CancelJob(p *common.JobParams) error {
	if s.jobs.Cancel(p.JobID) {
		return nil
	}
	if _, ok := s.jobs.Get(p.JobID); ok {
		return nil
	}
	if _, err := s.store.ArchivedJob(p.JobID); err == nil {
		return nil
	}
	return variantlib.ErrJobNotFound
}

// History returns the most recent delivery outcomes for a client.
func (s *Service) History(p *common.HistoryParams) (*common.HistoryResult, error) {
	if p.ClientID == "" {
		return nil, variantlib.ErrInvalidRequest
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	records, err := s.ledger.Recent(p.ClientID, limit)
	if err != nil {
		return nil, err
	}
	return &common.HistoryResult{Records: records}, nil
}

// ListContents lists original assets with their derived variants.
func (s *Service) ListContents(ctx context.Context) (*common.ContentListResult, error) {
	originals, err := s.store.Originals(ctx)
	if err != nil {
		return nil, err
	}
	out := &common.ContentListResult{Contents: make([]*common.ContentEntry, 0, len(originals))}
	for _, orig := range originals {
		variants, err := s.store.VariantsOf(ctx, orig.ID)
		if err != nil {
			return nil, err
		}
		out.Contents = append(out.Contents, &common.ContentEntry{
			ID:              orig.ID,
			Name:            orig.Name,
			Version:         orig.Version,
			ConversionState: orig.ConversionState,
			Variants:        variants,
		})
	}
	return out, nil
}

// AddVariant registers a catalog entry created by the external
// upload/conversion pipeline.
func (s *Service) AddVariant(ctx context.Context, v *variantlib.ContentVariant) error {
	if v.ID == "" || v.Name == "" {
		return variantlib.ErrInvalidRequest
	}
	return s.store.AddVariant(ctx, v)
}

// MarkConversion records a conversion pipeline state transition.
func (s *Service) MarkConversion(ctx context.Context, id string, state variantlib.ConversionState) error {
	return s.store.MarkConversion(ctx, id, state)
}

// AddDependency records a companion-content edge, updating both the
// persisted edges and the live graph the resolver consults.
func (s *Service) AddDependency(ctx context.Context, contentID, requiredID string) error {
	if err := s.store.AddDependency(ctx, contentID, requiredID); err != nil {
		return err
	}
	s.graph.AddEdge(contentID, requiredID)
	return nil
}
