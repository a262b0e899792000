package profile

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleProfile = `
personal:
  name: Jane Doe
  email: jane@example.com
education:
  - school: DTU
    degree: MSc Computer Science
    dates: 2024-2026
experiences:
  - company: Acme
    role: Backend Intern
    bullets:
      - Built a FastAPI service handling 1k rps
      - Migrated batch jobs to async workers
projects:
  - name: RAGHelper
    role: Author
    bullets:
      - Implemented retrieval pipeline with vector search
skills:
  languages:
    - Python
    - Go
  data:
    - SQL
`

func writeProfile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(sampleProfile), 0o644); err != nil {
		t.Fatalf("writing profile: %v", err)
	}

	return path
}

func TestLoadAndFlattenBullets(t *testing.T) {
	t.Parallel()

	p, err := Load(writeProfile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bullets := p.Bullets()
	if len(bullets) != 3 {
		t.Fatalf("expected 3 bullets, got %d", len(bullets))
	}

	// Experience bullets come first, in document order.
	if bullets[0].Source != "Acme" || bullets[0].Category != CategoryExperience {
		t.Fatalf("unexpected first bullet: %+v", bullets[0])
	}
	if bullets[2].Source != "RAGHelper" || bullets[2].Category != CategoryProject {
		t.Fatalf("unexpected project bullet: %+v", bullets[2])
	}
	for _, b := range bullets {
		if b.Scored {
			t.Fatalf("freshly loaded bullet must be unscored: %+v", b)
		}
	}
}

func TestSkillSummaryIsDeterministic(t *testing.T) {
	t.Parallel()

	p, err := Load(writeProfile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "data: SQL; languages: Python, Go"
	for i := 0; i < 5; i++ {
		if got := p.SkillSummary(); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing profile")
	}
}
