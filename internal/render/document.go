package render

import (
	"sort"
	"strings"

	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/profile"
)

// Document is the fully escaped data handed to the LaTeX template. Dates are
// passed through as-is: they are author-controlled and may contain markup.
type Document struct {
	Personal    map[string]string
	Education   []Education
	SkillGroups []SkillGroup
	Experiences []Section
	Projects    []Section
	Job         TargetJob
}

type Education struct {
	School   string
	Degree   string
	Dates    string
	Location string
}

type SkillGroup struct {
	Name  string
	Items string
}

// Section is one experience or project block with its final bullet list.
type Section struct {
	Title   string
	Role    string
	Detail  string
	Dates   string
	Bullets []string
}

type TargetJob struct {
	Title   string
	Company string
	Domain  string
}

// BuildDocument groups the matched bullets back under their owning
// experience or project. A section none of the matched bullets came from
// keeps its full original bullet list, so the resume never renders an empty
// block.
func BuildDocument(prof *profile.Profile, posting *jobs.Posting, req *jobs.Requirement, matched []profile.Bullet) *Document {
	doc := &Document{
		Personal: make(map[string]string, len(prof.Personal)),
		Job: TargetJob{
			Title:   Escape(posting.Title),
			Company: Escape(posting.Company),
		},
	}
	if req != nil {
		doc.Job.Domain = Escape(req.Domain)
	}

	for key, value := range prof.Personal {
		doc.Personal[key] = Escape(value)
	}

	for _, edu := range prof.Education {
		doc.Education = append(doc.Education, Education{
			School:   Escape(edu.School),
			Degree:   Escape(edu.Degree),
			Dates:    edu.Dates,
			Location: Escape(edu.Location),
		})
	}

	groups := make([]string, 0, len(prof.Skills))
	for group := range prof.Skills {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	for _, group := range groups {
		doc.SkillGroups = append(doc.SkillGroups, SkillGroup{
			Name:  Escape(group),
			Items: Escape(strings.Join(prof.Skills[group], ", ")),
		})
	}

	for _, exp := range prof.Experiences {
		bullets := bulletsFor(matched, exp.Company, profile.CategoryExperience)
		if len(bullets) == 0 {
			bullets = escapeAll(exp.Bullets)
		}
		doc.Experiences = append(doc.Experiences, Section{
			Title:   Escape(exp.Company),
			Role:    Escape(exp.Role),
			Detail:  Escape(exp.Location),
			Dates:   exp.Dates,
			Bullets: bullets,
		})
	}

	for _, proj := range prof.Projects {
		bullets := bulletsFor(matched, proj.Name, profile.CategoryProject)
		if len(bullets) == 0 {
			bullets = escapeAll(proj.Bullets)
		}
		doc.Projects = append(doc.Projects, Section{
			Title:   Escape(proj.Name),
			Role:    Escape(proj.Role),
			Detail:  Escape(proj.Type),
			Dates:   proj.Dates,
			Bullets: bullets,
		})
	}

	return doc
}

// bulletsFor returns the escaped matched bullets owned by one section, in
// ranking order.
func bulletsFor(matched []profile.Bullet, source, category string) []string {
	var out []string
	for _, b := range matched {
		if b.Source == source && b.Category == category {
			out = append(out, Escape(b.Text))
		}
	}
	return out
}

func escapeAll(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		out = append(out, Escape(t))
	}
	return out
}
