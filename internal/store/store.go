// Package store is the persistent record store for job postings. It is the
// single source of truth: every pipeline stage reads and advances postings
// through it. Execution is single-threaded, so the only discipline is that
// each write commits a record's status together with its payload.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/jobpilot/internal/jobs"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    platform TEXT NOT NULL,
    platform_id TEXT,
    title TEXT NOT NULL,
    company TEXT NOT NULL,
    url TEXT,
    content_hash TEXT UNIQUE,
    jd_text TEXT,
    posted_at TEXT,
    relevance TEXT DEFAULT 'unscored',
    analysis TEXT,
    resume_path TEXT,
    status TEXT DEFAULT 'new',
    created_at TEXT DEFAULT (datetime('now'))
);`

// migrations add columns to databases created by older versions. Applied
// defensively: a duplicate-column error means the column is already there.
var migrations = []string{
	"ALTER TABLE jobs ADD COLUMN posted_at TEXT",
	"ALTER TABLE jobs ADD COLUMN relevance TEXT DEFAULT 'unscored'",
}

const selectColumns = `id, platform, COALESCE(platform_id, ''), title, company,
	COALESCE(url, ''), COALESCE(jd_text, ''), COALESCE(posted_at, ''),
	COALESCE(relevance, 'unscored'), COALESCE(status, 'new'),
	COALESCE(analysis, ''), COALESCE(resume_path, ''), COALESCE(created_at, '')`

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the SQLite database at path and applies
// schema migrations in place.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("create jobs table: %w", err)
	}

	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migrate jobs table: %w", err)
		}
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertJob stores a posting, computing its dedup hash from company and
// title. A posting whose hash already exists is silently skipped; the
// returned bool reports whether a new row was written.
func (s *Store) InsertJob(p *jobs.Posting) (bool, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO jobs
		    (platform, platform_id, title, company, url, content_hash, jd_text, posted_at, relevance, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Platform, p.PlatformID, p.Title, p.Company, p.URL,
		jobs.Hash(p.Company, p.Title), p.Description, nullable(p.PostedAt),
		string(jobs.RelevanceUnscored), string(jobs.StatusNew),
	)
	if err != nil {
		return false, fmt.Errorf("insert job %q @ %q: %w", p.Title, p.Company, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		s.logger.Debug("skipping duplicate posting",
			zap.String("title", p.Title),
			zap.String("company", p.Company),
		)
	}

	return n > 0, nil
}

// JobsByStatus returns all postings in the given status, newest first.
func (s *Store) JobsByStatus(status jobs.Status) ([]*jobs.Posting, error) {
	return s.query(
		`SELECT `+selectColumns+` FROM jobs WHERE status = ? ORDER BY created_at DESC, id DESC`,
		string(status),
	)
}

// UnscoredJobs returns postings the relevance filter has not decided yet.
func (s *Store) UnscoredJobs() ([]*jobs.Posting, error) {
	return s.query(
		`SELECT ` + selectColumns + ` FROM jobs
		 WHERE relevance IS NULL OR relevance = 'unscored' ORDER BY id`,
	)
}

// RelevantNewJobs returns postings eligible for analysis: still new and
// already judged relevant.
func (s *Store) RelevantNewJobs() ([]*jobs.Posting, error) {
	return s.query(
		`SELECT ` + selectColumns + ` FROM jobs
		 WHERE status = 'new' AND relevance = 'relevant' ORDER BY id`,
	)
}

// ShortDescriptionJobs returns non-filtered postings from the platform whose
// description is missing or shorter than minLen, for the backfill stage.
func (s *Store) ShortDescriptionJobs(platform string, minLen int) ([]*jobs.Posting, error) {
	return s.query(
		`SELECT `+selectColumns+` FROM jobs
		 WHERE platform = ? AND (jd_text IS NULL OR length(jd_text) < ?) AND status != 'filtered'
		 ORDER BY id`,
		platform, minLen,
	)
}

// RelevantJobs returns all postings tagged relevant, newest first.
func (s *Store) RelevantJobs() ([]*jobs.Posting, error) {
	return s.query(
		`SELECT ` + selectColumns + ` FROM jobs
		 WHERE relevance = 'relevant' ORDER BY posted_at DESC, id DESC`,
	)
}

// AnalyzedJobs returns up to limit analyzed postings, newest first. Used by
// the report digest.
func (s *Store) AnalyzedJobs(limit int) ([]*jobs.Posting, error) {
	return s.query(
		`SELECT `+selectColumns+` FROM jobs WHERE status = 'analyzed' ORDER BY id DESC LIMIT ?`,
		limit,
	)
}

// UpdateRelevance tags a posting's relevance and, when status is non-empty,
// advances its status in the same write.
func (s *Store) UpdateRelevance(id int64, relevance jobs.Relevance, status jobs.Status) error {
	var err error
	if status != "" {
		_, err = s.db.Exec(
			`UPDATE jobs SET relevance = ?, status = ? WHERE id = ?`,
			string(relevance), string(status), id,
		)
	} else {
		_, err = s.db.Exec(`UPDATE jobs SET relevance = ? WHERE id = ?`, string(relevance), id)
	}
	if err != nil {
		return fmt.Errorf("update relevance for job %d: %w", id, err)
	}
	return nil
}

// UpdateAnalysis stores the requirement blob and advances the posting to
// analyzed in one statement, so a posting can never be analyzed without its
// payload.
func (s *Store) UpdateAnalysis(id int64, analysis string) error {
	if _, err := s.db.Exec(
		`UPDATE jobs SET analysis = ?, status = 'analyzed' WHERE id = ?`, analysis, id,
	); err != nil {
		return fmt.Errorf("update analysis for job %d: %w", id, err)
	}
	return nil
}

// UpdateDescription fills in a backfilled description text.
func (s *Store) UpdateDescription(id int64, description string) error {
	if _, err := s.db.Exec(`UPDATE jobs SET jd_text = ? WHERE id = ?`, description, id); err != nil {
		return fmt.Errorf("update description for job %d: %w", id, err)
	}
	return nil
}

// UpdateArtifact stores the rendered resume path and advances the posting to
// generated in one statement.
func (s *Store) UpdateArtifact(id int64, path string) error {
	if _, err := s.db.Exec(
		`UPDATE jobs SET resume_path = ?, status = 'generated' WHERE id = ?`, path, id,
	); err != nil {
		return fmt.Errorf("update artifact for job %d: %w", id, err)
	}
	return nil
}

func (s *Store) UpdateStatus(id int64, status jobs.Status) error {
	if _, err := s.db.Exec(`UPDATE jobs SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("update status for job %d: %w", id, err)
	}
	return nil
}

// StatusCounts returns the number of postings per status.
func (s *Store) StatusCounts() (map[string]int, error) {
	return s.counts(`SELECT COALESCE(status, 'new'), COUNT(*) FROM jobs GROUP BY status`)
}

// RelevanceCounts returns the number of postings per relevance tag.
func (s *Store) RelevanceCounts() (map[string]int, error) {
	return s.counts(`SELECT COALESCE(relevance, 'unscored'), COUNT(*) FROM jobs GROUP BY relevance`)
}

func (s *Store) counts(query string) (map[string]int, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out[key] = count
	}

	return out, rows.Err()
}

func (s *Store) query(query string, args ...any) ([]*jobs.Posting, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var postings []*jobs.Posting
	for rows.Next() {
		p := &jobs.Posting{}
		var relevance, status string
		if err := rows.Scan(
			&p.ID, &p.Platform, &p.PlatformID, &p.Title, &p.Company,
			&p.URL, &p.Description, &p.PostedAt, &relevance, &status,
			&p.Analysis, &p.ResumePath, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.Relevance = jobs.Relevance(relevance)
		p.Status = jobs.Status(status)
		postings = append(postings, p)
	}

	return postings, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
