package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/utils"
)

const (
	theHubPlatform = "thehub"

	defaultTheHubURL = "https://thehub.io/api/jobs"

	// theHubKeywordDelay spaces out successive keyword queries.
	theHubKeywordDelay = time.Second

	theHubTimeout = 30 * time.Second
)

var theHubUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// TheHub fetches postings from the thehub.io REST API, one request per
// configured keyword. A failed keyword is logged and skipped; the remaining
// keywords still run.
type TheHub struct {
	BaseURL  string
	Keywords []string
	// Params are fixed query parameters sent with every request
	// (country code, position type, ordering).
	Params map[string]string

	client *http.Client
	logger *zap.Logger
}

func NewTheHub(baseURL string, keywords []string, params map[string]string, logger *zap.Logger) *TheHub {
	if baseURL == "" {
		baseURL = defaultTheHubURL
	}

	return &TheHub{
		BaseURL:  baseURL,
		Keywords: keywords,
		Params:   params,
		client:   &http.Client{Timeout: theHubTimeout},
		logger:   logger,
	}
}

func (t *TheHub) Name() string { return theHubPlatform }

func (t *TheHub) Fetch(ctx context.Context) ([]*jobs.Posting, error) {
	var postings []*jobs.Posting

	for i, keyword := range t.Keywords {
		if i > 0 {
			if err := utils.WaitFor(ctx, theHubKeywordDelay); err != nil {
				return postings, err
			}
		}

		t.logger.Info("fetching postings", zap.String("source", t.Name()), zap.String("keyword", keyword))

		batch, err := t.fetchKeyword(ctx, keyword)
		if err != nil {
			t.logger.Warn("keyword fetch failed",
				zap.String("source", t.Name()),
				zap.String("keyword", keyword),
				zap.Error(err),
			)
			continue
		}

		postings = append(postings, batch...)
	}

	return postings, nil
}

// hubJob mirrors one listing in the API response. Company is either an
// object with a name or a bare string depending on the endpoint version.
type hubJob struct {
	ID             json.RawMessage `json:"id"`
	Title          string          `json:"title"`
	Company        json.RawMessage `json:"company"`
	Description    string          `json:"description"`
	AbsoluteJobURL string          `json:"absoluteJobUrl"`
	PublishedAt    string          `json:"publishedAt"`
	ApprovedAt     string          `json:"approvedAt"`
	CreatedAt      string          `json:"createdAt"`
}

func (t *TheHub) fetchKeyword(ctx context.Context, keyword string) ([]*jobs.Posting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.BaseURL, nil)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	for key, value := range t.Params {
		q.Set(key, value)
	}
	q.Set("search", keyword)
	req.URL.RawQuery = q.Encode()

	req.Header.Set("User-Agent", theHubUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	listings, err := decodeHubResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	postings := make([]*jobs.Posting, 0, len(listings))
	for _, listing := range listings {
		title := listing.Title
		company := decodeHubCompany(listing.Company)
		if title == "" || company == "" {
			continue
		}

		postings = append(postings, &jobs.Posting{
			Platform:    theHubPlatform,
			PlatformID:  decodeHubID(listing.ID),
			Title:       title,
			Company:     company,
			URL:         listing.AbsoluteJobURL,
			Description: CleanHTML(listing.Description),
			PostedAt:    firstNonEmpty(listing.PublishedAt, listing.ApprovedAt, listing.CreatedAt),
		})
	}

	return postings, nil
}

// decodeHubResponse accepts the known response envelopes: {"docs": [...]},
// {"results": [...]} or a bare array.
func decodeHubResponse(r io.Reader) ([]hubJob, error) {
	var envelope struct {
		Docs    []hubJob `json:"docs"`
		Results []hubJob `json:"results"`
	}

	dec := json.NewDecoder(r)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if err := json.Unmarshal(raw, &envelope); err == nil {
		if len(envelope.Docs) > 0 {
			return envelope.Docs, nil
		}
		if len(envelope.Results) > 0 {
			return envelope.Results, nil
		}
	}

	var list []hubJob
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	return nil, nil
}

func decodeHubCompany(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
		return obj.Name
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}

	return ""
}

func decodeHubID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
