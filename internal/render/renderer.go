// Package render turns an analyzed posting plus the candidate profile into a
// compiled PDF resume. Template delimiters are << >> so LaTeX braces never
// collide with the template syntax.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/match"
	"github.com/spigell/jobpilot/internal/profile"
	"github.com/spigell/jobpilot/internal/utils"
)

const (
	DefaultTectonicCmd = "tectonic"

	tectonicTimeout = 60 * time.Second

	maxCompanyRunes = 20
	maxTitleRunes   = 30
	uuidShortLen    = 8
)

type Config struct {
	TemplatePath string
	OutputDir    string
	TectonicCmd  string
}

// Renderer builds tailored resumes for analyzed postings. The rewriter is
// optional; without it the matched bullets are used verbatim.
type Renderer struct {
	cfg      *Config
	tmpl     *template.Template
	engine   *match.Engine
	rewriter ai.Rewriter
	logger   *zap.Logger
}

func New(cfg *Config, engine *match.Engine, rewriter ai.Rewriter, logger *zap.Logger) (*Renderer, error) {
	if cfg.TectonicCmd == "" {
		cfg.TectonicCmd = DefaultTectonicCmd
	}

	raw, err := os.ReadFile(cfg.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("reading template %q: %w", cfg.TemplatePath, err)
	}

	tmpl, err := template.New("resume").Delims("<<", ">>").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing template %q: %w", cfg.TemplatePath, err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	return &Renderer{
		cfg:      cfg,
		tmpl:     tmpl,
		engine:   engine,
		rewriter: rewriter,
		logger:   logger,
	}, nil
}

// Render produces the PDF for one analyzed posting and returns the artifact
// path. Any failure leaves the posting untouched for the next run.
func (r *Renderer) Render(ctx context.Context, posting *jobs.Posting, prof *profile.Profile) (string, error) {
	req, err := jobs.ParseRequirement(posting.Analysis)
	if err != nil {
		r.logger.Warn("stored analysis unparseable, rendering without requirement signal",
			zap.Int64("id", posting.ID),
			zap.Error(err),
		)
		req = &jobs.Requirement{}
	}

	matched, err := r.engine.Match(ctx, prof.Bullets(), req)
	if err != nil {
		return "", err
	}

	matched = r.rewriteBullets(ctx, matched, req.HardSkills)

	tex, err := r.RenderTeX(posting, prof, req, matched)
	if err != nil {
		return "", err
	}

	output := filepath.Join(r.cfg.OutputDir, ArtifactName(posting.ID, posting.Company, posting.Title))
	if err := r.compile(ctx, tex, output); err != nil {
		return "", err
	}

	r.logger.Info("resume generated",
		zap.Int64("id", posting.ID),
		zap.String("company", posting.Company),
		zap.String("path", output),
	)

	return output, nil
}

// RenderTeX executes the template over the assembled document. Split out so
// the template path is testable without tectonic installed.
func (r *Renderer) RenderTeX(posting *jobs.Posting, prof *profile.Profile, req *jobs.Requirement, matched []profile.Bullet) (string, error) {
	doc := BuildDocument(prof, posting, req, matched)

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

func (r *Renderer) rewriteBullets(ctx context.Context, matched []profile.Bullet, skills []string) []profile.Bullet {
	if r.rewriter == nil || len(skills) == 0 {
		return matched
	}

	out := make([]profile.Bullet, len(matched))
	for i, b := range matched {
		rewritten, err := r.rewriter.Rewrite(ctx, b.Text, skills)
		if err != nil {
			r.logger.Warn("bullet rewrite failed, keeping original",
				zap.String("bullet", utils.TruncateForLog(b.Text, 60)),
				zap.Error(err),
			)
			rewritten = b.Text
		}
		b.Text = rewritten
		out[i] = b
	}
	return out
}

// compile runs tectonic over the document in a temp dir and moves the PDF to
// outputPath.
func (r *Renderer) compile(ctx context.Context, tex, outputPath string) error {
	tmpDir, err := os.MkdirTemp("", "resume-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	texPath := filepath.Join(tmpDir, "resume.tex")
	if err := os.WriteFile(texPath, []byte(tex), 0o600); err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, tectonicTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, r.cfg.TectonicCmd, texPath)
	cmd.Dir = tmpDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tectonic: %w: %s", err, utils.TruncateForLog(stderr.String(), 500))
	}

	pdfPath := strings.TrimSuffix(texPath, ".tex") + ".pdf"
	if _, err := os.Stat(pdfPath); err != nil {
		return fmt.Errorf("tectonic succeeded but produced no pdf")
	}

	return moveFile(pdfPath, outputPath)
}

// ArtifactName builds a filesystem-safe name for the generated PDF. The
// short uuid keeps regenerated resumes for the same posting from clobbering
// each other.
func ArtifactName(id int64, company, title string) string {
	return fmt.Sprintf("%d_%s_%s_%s.pdf",
		id,
		sanitize(company, maxCompanyRunes),
		sanitize(title, maxTitleRunes),
		uuid.NewString()[:uuidShortLen],
	)
}

func sanitize(s string, maxRunes int) string {
	if runes := []rune(s); len(runes) > maxRunes {
		s = string(runes[:maxRunes])
	}
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "/", "-")
}

// moveFile renames, falling back to copy for cross-device temp dirs.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}
