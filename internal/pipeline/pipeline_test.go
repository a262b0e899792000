package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/filtering"
	"github.com/spigell/jobpilot/internal/ingest"
	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/match"
	"github.com/spigell/jobpilot/internal/profile"
	"github.com/spigell/jobpilot/internal/render"
	"github.com/spigell/jobpilot/internal/store"
)

type fakeSource struct {
	name     string
	postings []*jobs.Posting
	err      error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context) ([]*jobs.Posting, error) {
	return f.postings, f.err
}

type fakeClassifier struct {
	relevant bool
	err      error
	calls    int
}

func (f *fakeClassifier) Classify(_ context.Context, _, _ string) (*ai.Verdict, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Verdict{Relevant: f.relevant, Reason: "test"}, nil
}

type fakeExtractor struct {
	req   *jobs.Requirement
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _, _ string) (*jobs.Requirement, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.req, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, float64(i), 0}
	}
	return out, nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return New(st, 0, zap.NewNop()), st
}

func newFilterPipeline(t *testing.T, classifier ai.Classifier) *filtering.Pipeline {
	t.Helper()

	fp, err := filtering.New(&filtering.Config{
		MaxAgeDays:      30,
		ExcludeKeywords: []string{"sales", "hr"},
		IncludeKeywords: []string{"intern"},
	}, classifier, zap.NewNop())
	if err != nil {
		t.Fatalf("building filter pipeline: %v", err)
	}
	return fp
}

func posting(title, company string) *jobs.Posting {
	return &jobs.Posting{
		Platform:    "thehub",
		Title:       title,
		Company:     company,
		Description: strings.Repeat("Build and run Go services in production. ", 10),
	}
}

func sampleRequirement() *jobs.Requirement {
	return &jobs.Requirement{
		HardSkills: []string{"Python", "RAG"},
		Domain:     "AI/ML",
		MatchScore: 0.85,
		Raw: map[string]any{
			"hard_skills": []any{"Python", "RAG"},
			"match_score": 0.85,
		},
	}
}

func TestIngestDeduplicates(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t)
	source := &fakeSource{name: "test", postings: []*jobs.Posting{
		posting("Backend Engineer", "Acme"),
		posting("Data Engineer", "Beta"),
	}}

	first, err := p.Ingest(context.Background(), source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.New != 2 || first.Duplicates != 0 {
		t.Fatalf("first run: %+v", first)
	}

	second, err := p.Ingest(context.Background(), source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.New != 0 || second.Duplicates != 2 {
		t.Fatalf("second run must insert nothing: %+v", second)
	}
}

func TestIngestSkipsFailingSource(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t)
	broken := &fakeSource{name: "broken", err: errors.New("network down")}
	healthy := &fakeSource{name: "healthy", postings: []*jobs.Posting{posting("SRE", "Acme")}}

	result, err := p.Ingest(context.Background(), broken, healthy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.New != 1 {
		t.Fatalf("healthy source must still run: %+v", result)
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	t.Parallel()

	p, st := newTestPipeline(t)
	for _, job := range []*jobs.Posting{
		posting("ML Engineer", "Acme"),
		posting("Senior Sales Manager", "Beta"),
	} {
		if _, err := st.InsertJob(job); err != nil {
			t.Fatalf("inserting: %v", err)
		}
	}

	classifier := &fakeClassifier{relevant: true}
	fp := newFilterPipeline(t, classifier)

	first, err := p.Filter(context.Background(), fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Processed != 2 || first.Relevant != 1 || first.Irrelevant != 1 {
		t.Fatalf("first run: %+v", first)
	}

	// Every posting is scored now: the second run has nothing to do.
	second, err := p.Filter(context.Background(), fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Processed != 0 {
		t.Fatalf("second run must be empty: %+v", second)
	}
}

func TestFilteredPostingNeverReachesExtractor(t *testing.T) {
	t.Parallel()

	p, st := newTestPipeline(t)
	if _, err := st.InsertJob(posting("Senior Sales Manager", "Acme")); err != nil {
		t.Fatalf("inserting: %v", err)
	}

	classifier := &fakeClassifier{relevant: true}
	if _, err := p.Filter(context.Background(), newFilterPipeline(t, classifier)); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if classifier.calls != 0 {
		t.Fatalf("rule-excluded posting reached the classifier")
	}

	extractor := &fakeExtractor{req: sampleRequirement()}
	result, err := p.Analyze(context.Background(), extractor, "candidate")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.Processed != 0 || extractor.calls != 0 {
		t.Fatalf("filtered posting reached the extractor: %+v", result)
	}

	counts, err := st.StatusCounts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["filtered"] != 1 {
		t.Fatalf("expected the posting filtered, got %v", counts)
	}
}

func TestAnalyzeFailureLeavesPostingRetryable(t *testing.T) {
	t.Parallel()

	p, st := newTestPipeline(t)
	if _, err := st.InsertJob(posting("ML Engineer", "Acme")); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if _, err := p.Filter(context.Background(), newFilterPipeline(t, &fakeClassifier{relevant: true})); err != nil {
		t.Fatalf("filter: %v", err)
	}

	result, err := p.Analyze(context.Background(), &fakeExtractor{err: errors.New("quota exceeded")}, "candidate")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.Failed != 1 || result.Analyzed != 0 {
		t.Fatalf("first run: %+v", result)
	}

	pending, err := st.RelevantNewJobs()
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("failed posting must stay eligible, got %d pending", len(pending))
	}

	// The next run, with the model back, picks the same posting up.
	retry, err := p.Analyze(context.Background(), &fakeExtractor{req: sampleRequirement()}, "candidate")
	if err != nil {
		t.Fatalf("retry analyze: %v", err)
	}
	if retry.Analyzed != 1 {
		t.Fatalf("retry run: %+v", retry)
	}

	analyzed, err := st.JobsByStatus(jobs.StatusAnalyzed)
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if len(analyzed) != 1 || !strings.Contains(analyzed[0].Analysis, "hard_skills") {
		t.Fatalf("analysis not persisted: %+v", analyzed)
	}
}

func TestAnalyzeShortDescriptionStaysNew(t *testing.T) {
	t.Parallel()

	p, st := newTestPipeline(t)
	short := posting("ML Engineer", "Acme")
	short.Description = "too short"
	if _, err := st.InsertJob(short); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if _, err := p.Filter(context.Background(), newFilterPipeline(t, &fakeClassifier{relevant: true})); err != nil {
		t.Fatalf("filter: %v", err)
	}

	result, err := p.Analyze(context.Background(), &fakeExtractor{err: ai.ErrShortDescription}, "candidate")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.Short != 1 {
		t.Fatalf("expected short counter: %+v", result)
	}

	pending, err := st.RelevantNewJobs()
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("short posting must stay new for backfill, got %d", len(pending))
	}
}

func TestBackfillFillsDescription(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<div class="show-more-less-html__markup">` +
			strings.Repeat("A long recovered job description. ", 10) + `</div>`))
	}))
	defer srv.Close()

	p, st := newTestPipeline(t)
	truncated := &jobs.Posting{
		Platform:    "linkedin",
		Title:       "Backend Engineer",
		Company:     "Acme",
		URL:         srv.URL + "/linkedin.com/jobs/view/1",
		Description: "short",
	}
	if _, err := st.InsertJob(truncated); err != nil {
		t.Fatalf("inserting: %v", err)
	}

	result, err := p.Backfill(context.Background(), ingest.NewBackfiller(zap.NewNop()))
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if result.Candidates != 1 || result.Filled != 1 {
		t.Fatalf("backfill result: %+v", result)
	}

	updated, err := st.JobsByStatus(jobs.StatusNew)
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if len(updated) != 1 || len(updated[0].Description) <= ingest.MinDescriptionLength {
		t.Fatalf("description not refreshed: %+v", updated)
	}

	// Once filled, the posting leaves the backfill queue.
	again, err := p.Backfill(context.Background(), ingest.NewBackfiller(zap.NewNop()))
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if again.Candidates != 0 {
		t.Fatalf("second run must find no candidates: %+v", again)
	}
}

// writeTectonicStub installs a fake tectonic that copies the tex input to the
// expected pdf path.
func writeTectonicStub(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tectonic")
	script := "#!/bin/sh\ncp \"$1\" \"${1%.tex}.pdf\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing stub: %v", err)
	}
	return path
}

func testRenderer(t *testing.T, tectonicCmd string) *render.Renderer {
	t.Helper()

	dir := t.TempDir()
	templatePath := filepath.Join(dir, "template.tex")
	tmpl := "Target: << .Job.Title >>\n<< range .Experiences >><< range .Bullets >>- << . >>\n<< end >><< end >>"
	if err := os.WriteFile(templatePath, []byte(tmpl), 0o600); err != nil {
		t.Fatalf("writing template: %v", err)
	}

	engine := match.New(fakeEmbedder{}, 6, zap.NewNop())
	r, err := render.New(&render.Config{
		TemplatePath: templatePath,
		OutputDir:    filepath.Join(dir, "out"),
		TectonicCmd:  tectonicCmd,
	}, engine, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("building renderer: %v", err)
	}
	return r
}

func renderProfile() *profile.Profile {
	return &profile.Profile{
		Personal: map[string]string{"name": "Jane Doe"},
		Experiences: []profile.Experience{{
			Company: "Acme",
			Role:    "Engineer",
			Bullets: []string{"Built RAG pipelines in Python", "Ran Go services"},
		}},
	}
}

func TestRenderGeneratesArtifact(t *testing.T) {
	t.Parallel()

	p, st := newTestPipeline(t)
	if _, err := st.InsertJob(posting("ML Engineer", "Acme")); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if _, err := p.Filter(context.Background(), newFilterPipeline(t, &fakeClassifier{relevant: true})); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if _, err := p.Analyze(context.Background(), &fakeExtractor{req: sampleRequirement()}, "candidate"); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	result, err := p.Render(context.Background(), testRenderer(t, writeTectonicStub(t)), renderProfile())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.Generated != 1 || result.Failed != 0 {
		t.Fatalf("render result: %+v", result)
	}

	generated, err := st.JobsByStatus(jobs.StatusGenerated)
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if len(generated) != 1 {
		t.Fatalf("expected 1 generated posting, got %d", len(generated))
	}
	if _, err := os.Stat(generated[0].ResumePath); err != nil {
		t.Fatalf("artifact missing at %q: %v", generated[0].ResumePath, err)
	}
}

func TestRenderFailureLeavesPostingAnalyzed(t *testing.T) {
	t.Parallel()

	p, st := newTestPipeline(t)
	if _, err := st.InsertJob(posting("ML Engineer", "Acme")); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if _, err := p.Filter(context.Background(), newFilterPipeline(t, &fakeClassifier{relevant: true})); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if _, err := p.Analyze(context.Background(), &fakeExtractor{req: sampleRequirement()}, "candidate"); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	// A tectonic that exits zero without producing a pdf fails the record.
	result, err := p.Render(context.Background(), testRenderer(t, "/bin/true"), renderProfile())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.Failed != 1 || result.Generated != 0 {
		t.Fatalf("render result: %+v", result)
	}

	analyzed, err := st.JobsByStatus(jobs.StatusAnalyzed)
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if len(analyzed) != 1 {
		t.Fatalf("failed posting must stay analyzed, got %v", analyzed)
	}
}
