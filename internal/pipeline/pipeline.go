// Package pipeline drives postings through their lifecycle:
// new -> filtered | analyzed -> generated. Every stage commits per record, so
// a crash mid-batch loses at most the record in flight, and rerunning a
// stage picks up exactly the records still eligible for it.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/filtering"
	"github.com/spigell/jobpilot/internal/ingest"
	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/profile"
	"github.com/spigell/jobpilot/internal/render"
	"github.com/spigell/jobpilot/internal/store"
	"github.com/spigell/jobpilot/internal/utils"
)

// Pipeline owns the batch loops. Capabilities (sources, classifier,
// extractor, renderer) are passed per stage so each verb constructs only
// what it needs.
type Pipeline struct {
	store  *store.Store
	logger *zap.Logger

	// delay paces successive external calls within a batch.
	delay time.Duration
}

func New(st *store.Store, delay time.Duration, logger *zap.Logger) *Pipeline {
	return &Pipeline{store: st, delay: delay, logger: logger}
}

// IngestResult counts one ingest batch.
type IngestResult struct {
	Fetched    int
	New        int
	Duplicates int
}

// Ingest pulls postings from every source and inserts them. The store's
// content hash drops duplicates. A failing source is logged and skipped so
// the remaining sources still run.
func (p *Pipeline) Ingest(ctx context.Context, sources ...ingest.Source) (*IngestResult, error) {
	result := &IngestResult{}

	for _, source := range sources {
		postings, err := source.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return result, err
			}
			p.logger.Warn("source failed", zap.String("source", source.Name()), zap.Error(err))
			continue
		}

		for _, posting := range postings {
			result.Fetched++

			inserted, err := p.store.InsertJob(posting)
			if err != nil {
				return result, fmt.Errorf("inserting posting from %s: %w", source.Name(), err)
			}
			if inserted {
				result.New++
			} else {
				result.Duplicates++
			}
		}
	}

	p.logger.Info("ingest finished",
		zap.Int("fetched", result.Fetched),
		zap.Int("new", result.New),
		zap.Int("duplicates", result.Duplicates),
	)

	return result, nil
}

// FilterResult counts one filter batch.
type FilterResult struct {
	Processed  int
	Relevant   int
	Irrelevant int
	Fallback   int
}

// Filter scores every unscored posting. Irrelevant postings move to
// filtered and leave all later stages; relevant ones stay new for analysis.
func (p *Pipeline) Filter(ctx context.Context, fp *filtering.Pipeline) (*FilterResult, error) {
	pending, err := p.store.UnscoredJobs()
	if err != nil {
		return nil, err
	}

	result := &FilterResult{}
	for i, posting := range pending {
		if i > 0 {
			if err := utils.WaitFor(ctx, p.delay); err != nil {
				return result, err
			}
		}

		decision, err := fp.Decide(ctx, posting)
		if err != nil {
			return result, err
		}

		result.Processed++
		if decision.Fallback {
			result.Fallback++
		}

		if decision.Relevance == jobs.RelevanceRelevant {
			if err := p.store.UpdateRelevance(posting.ID, jobs.RelevanceRelevant, ""); err != nil {
				return result, err
			}
			result.Relevant++
			continue
		}

		if err := p.store.UpdateRelevance(posting.ID, jobs.RelevanceIrrelevant, jobs.StatusFiltered); err != nil {
			return result, err
		}
		result.Irrelevant++

		p.logger.Debug("posting filtered out",
			zap.Int64("id", posting.ID),
			zap.String("title", posting.Title),
			zap.String("reason", decision.Reason),
		)
	}

	p.logger.Info("filter finished",
		zap.Int("processed", result.Processed),
		zap.Int("relevant", result.Relevant),
		zap.Int("irrelevant", result.Irrelevant),
		zap.Int("fallback", result.Fallback),
	)

	return result, nil
}

// BackfillResult counts one backfill batch.
type BackfillResult struct {
	Candidates int
	Filled     int
}

// Backfill refetches descriptions for linkedin postings whose aggregator
// payload was truncated. Failures leave the posting as-is for the next run.
func (p *Pipeline) Backfill(ctx context.Context, backfiller *ingest.Backfiller) (*BackfillResult, error) {
	pending, err := p.store.ShortDescriptionJobs("linkedin", ingest.MinDescriptionLength)
	if err != nil {
		return nil, err
	}

	result := &BackfillResult{Candidates: len(pending)}
	for i, posting := range pending {
		if posting.URL == "" {
			continue
		}

		if i > 0 {
			if err := backfiller.Delay(ctx); err != nil {
				return result, err
			}
		}

		description, err := backfiller.FetchDescription(ctx, posting.URL)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return result, err
			}
			p.logger.Debug("backfill fetch failed",
				zap.Int64("id", posting.ID),
				zap.String("url", utils.TruncateForLog(posting.URL, 60)),
				zap.Error(err),
			)
			continue
		}

		if len(description) <= ingest.MinDescriptionLength {
			p.logger.Debug("page yielded no usable description", zap.Int64("id", posting.ID))
			continue
		}

		if err := p.store.UpdateDescription(posting.ID, description); err != nil {
			return result, err
		}
		result.Filled++
	}

	p.logger.Info("backfill finished",
		zap.Int("candidates", result.Candidates),
		zap.Int("filled", result.Filled),
	)

	return result, nil
}

// AnalyzeResult counts one analyze batch.
type AnalyzeResult struct {
	Processed int
	Analyzed  int
	Short     int
	Failed    int
}

// Analyze extracts a structured requirement record for every relevant
// posting still in new. A failed or short-description extraction leaves the
// posting in new, so the next run retries it once the cause (quota, missing
// description) is gone.
func (p *Pipeline) Analyze(ctx context.Context, extractor ai.Extractor, candidateContext string) (*AnalyzeResult, error) {
	pending, err := p.store.RelevantNewJobs()
	if err != nil {
		return nil, err
	}

	result := &AnalyzeResult{}
	for i, posting := range pending {
		if i > 0 {
			if err := utils.WaitFor(ctx, p.delay); err != nil {
				return result, err
			}
		}

		result.Processed++

		p.logger.Info("analyzing posting",
			zap.Int64("id", posting.ID),
			zap.String("title", posting.Title),
			zap.String("company", posting.Company),
		)

		req, err := extractor.Extract(ctx, posting.Description, candidateContext)
		switch {
		case errors.Is(err, ai.ErrShortDescription):
			result.Short++
			p.logger.Warn("description too short, leaving posting for backfill", zap.Int64("id", posting.ID))
			continue
		case errors.Is(err, context.Canceled):
			return result, err
		case err != nil:
			result.Failed++
			p.logger.Warn("extraction failed, posting stays retryable",
				zap.Int64("id", posting.ID),
				zap.Error(err),
			)
			continue
		}

		analysis, err := encodeAnalysis(req)
		if err != nil {
			result.Failed++
			p.logger.Warn("encoding analysis failed", zap.Int64("id", posting.ID), zap.Error(err))
			continue
		}

		if err := p.store.UpdateAnalysis(posting.ID, analysis); err != nil {
			return result, err
		}
		result.Analyzed++

		p.logger.Info("posting analyzed",
			zap.Int64("id", posting.ID),
			zap.Float64("match_score", req.MatchScore),
			zap.String("skills", utils.TruncateForLog(strings.Join(req.HardSkills, ", "), 120)),
		)
	}

	p.logger.Info("analyze finished",
		zap.Int("processed", result.Processed),
		zap.Int("analyzed", result.Analyzed),
		zap.Int("short", result.Short),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

// RenderResult counts one render batch.
type RenderResult struct {
	Processed int
	Generated int
	Failed    int
}

// Render builds a tailored resume for every analyzed posting. A failed
// record stays analyzed and is retried next run.
func (p *Pipeline) Render(ctx context.Context, renderer *render.Renderer, prof *profile.Profile) (*RenderResult, error) {
	pending, err := p.store.JobsByStatus(jobs.StatusAnalyzed)
	if err != nil {
		return nil, err
	}

	result := &RenderResult{}
	for _, posting := range pending {
		result.Processed++

		path, err := renderer.Render(ctx, posting, prof)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return result, err
			}
			result.Failed++
			p.logger.Warn("resume generation failed",
				zap.Int64("id", posting.ID),
				zap.String("company", posting.Company),
				zap.Error(err),
			)
			continue
		}

		if err := p.store.UpdateArtifact(posting.ID, path); err != nil {
			return result, err
		}
		result.Generated++
	}

	p.logger.Info("render finished",
		zap.Int("processed", result.Processed),
		zap.Int("generated", result.Generated),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

// encodeAnalysis persists the requirement's raw model payload when present,
// falling back to the normalized record.
func encodeAnalysis(req *jobs.Requirement) (string, error) {
	var payload any = req
	if len(req.Raw) > 0 {
		payload = req.Raw
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
