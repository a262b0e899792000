package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/utils"
)

const (
	// MinDescriptionLength is the threshold below which a stored linkedin
	// description counts as truncated and worth refetching.
	MinDescriptionLength = 100

	linkedinTimeout = 15 * time.Second

	// linkedinDelay spaces out page fetches so the backfill does not
	// hammer the public job pages.
	linkedinDelay = 3 * time.Second

	maxLinkedinBody = 2 << 20
)

// Public job pages serve the description in one of three shapes depending on
// the rendering path. Tried in order.
var (
	markupDivRe      = regexp.MustCompile(`(?s)<div class="show-more-less-html__markup[^"]*"[^>]*>(.*?)</div>`)
	descriptionDivRe = regexp.MustCompile(`(?s)<div class="description__text[^"]*"[^>]*>(.*?)</div>`)
	jsonLDDescRe     = regexp.MustCompile(`"description"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// Backfiller refetches full descriptions for linkedin postings whose
// aggregator payload only carried the title. Every fetch is best effort: a
// failed page leaves the posting untouched for the next run.
type Backfiller struct {
	client *http.Client
	logger *zap.Logger
}

func NewBackfiller(logger *zap.Logger) *Backfiller {
	return &Backfiller{
		client: &http.Client{Timeout: linkedinTimeout},
		logger: logger,
	}
}

// FetchDescription downloads one public job page and extracts the
// description text. Returns "" when the page yields nothing usable.
func (b *Backfiller) FetchDescription(ctx context.Context, jobURL string) (string, error) {
	if !strings.Contains(jobURL, "linkedin.com") {
		return "", fmt.Errorf("not a linkedin url: %q", utils.TruncateForLog(jobURL, 60))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", theHubUserAgent+" (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLinkedinBody))
	if err != nil {
		return "", err
	}

	return ExtractDescription(string(body)), nil
}

// Delay pauses between page fetches. Exposed so the backfill stage controls
// pacing without the fetcher sleeping on its own.
func (b *Backfiller) Delay(ctx context.Context) error {
	return utils.WaitFor(ctx, linkedinDelay)
}

// ExtractDescription pulls the job description out of a public linkedin job
// page. It probes the expanded markup div, then the collapsed description
// div, then the JSON-LD payload embedded in the page head.
func ExtractDescription(html string) string {
	if m := markupDivRe.FindStringSubmatch(html); m != nil {
		return CleanHTML(m[1])
	}

	if m := descriptionDivRe.FindStringSubmatch(html); m != nil {
		return CleanHTML(m[1])
	}

	if m := jsonLDDescRe.FindStringSubmatch(html); m != nil {
		if unquoted, err := strconv.Unquote(`"` + m[1] + `"`); err == nil {
			return CleanHTML(unquoted)
		}
		return CleanHTML(m[1])
	}

	return ""
}
