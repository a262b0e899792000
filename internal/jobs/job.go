package jobs

// Status tracks pipeline progress of a posting. It only moves forward
// (new -> analyzed -> generated) or sideways into a terminal state
// (filtered, skipped), never backward.
type Status string

const (
	StatusNew       Status = "new"
	StatusFiltered  Status = "filtered"
	StatusAnalyzed  Status = "analyzed"
	StatusGenerated Status = "generated"
	StatusSkipped   Status = "skipped"
)

// Relevance is the filter verdict for a posting.
type Relevance string

const (
	RelevanceUnscored   Relevance = "unscored"
	RelevanceRelevant   Relevance = "relevant"
	RelevanceIrrelevant Relevance = "irrelevant"
)

// Posting is one job listing tracked through the pipeline.
type Posting struct {
	ID          int64  `json:"id"`
	Platform    string `json:"platform"`
	PlatformID  string `json:"platform_id,omitempty"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	// PostedAt is the publication timestamp as reported by the platform.
	// Empty when the platform does not expose it; unknown age never
	// disqualifies a posting.
	PostedAt   string    `json:"posted_at,omitempty"`
	Relevance  Relevance `json:"relevance,omitempty"`
	Status     Status    `json:"status,omitempty"`
	Analysis   string    `json:"analysis,omitempty"`
	ResumePath string    `json:"resume_path,omitempty"`
	CreatedAt  string    `json:"created_at,omitempty"`
}
