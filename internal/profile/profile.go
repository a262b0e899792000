// Package profile loads the candidate's static biography. The profile is
// read-only input: every pipeline run reloads it from disk.
package profile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CategoryExperience = "experience"
	CategoryProject    = "project"
)

type Profile struct {
	Personal    map[string]string   `yaml:"personal"`
	Education   []Education         `yaml:"education"`
	Experiences []Experience        `yaml:"experiences"`
	Projects    []Project           `yaml:"projects"`
	Skills      map[string][]string `yaml:"skills"`
}

type Education struct {
	School   string `yaml:"school"`
	Degree   string `yaml:"degree"`
	Dates    string `yaml:"dates"`
	Location string `yaml:"location"`
}

type Experience struct {
	Company  string   `yaml:"company"`
	Role     string   `yaml:"role"`
	Dates    string   `yaml:"dates"`
	Location string   `yaml:"location"`
	Bullets  []string `yaml:"bullets"`
}

type Project struct {
	Name    string   `yaml:"name"`
	Role    string   `yaml:"role"`
	Type    string   `yaml:"type"`
	Dates   string   `yaml:"dates"`
	Bullets []string `yaml:"bullets"`
}

// Bullet is one atomic claim about the candidate, owned by exactly one
// experience or project. Similarity is filled in by the matching engine;
// Scored reports whether it was.
type Bullet struct {
	Text       string
	Source     string
	Role       string
	Category   string
	Similarity float64
	Scored     bool
}

// Load reads and parses the profile YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %q: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %q: %w", path, err)
	}

	return &p, nil
}

// Bullets flattens all experience and project bullets into the ordered list
// the matching engine ranks.
func (p *Profile) Bullets() []Bullet {
	var bullets []Bullet

	for _, exp := range p.Experiences {
		for _, text := range exp.Bullets {
			bullets = append(bullets, Bullet{
				Text:     text,
				Source:   exp.Company,
				Role:     exp.Role,
				Category: CategoryExperience,
			})
		}
	}

	for _, proj := range p.Projects {
		for _, text := range proj.Bullets {
			bullets = append(bullets, Bullet{
				Text:     text,
				Source:   proj.Name,
				Role:     proj.Role,
				Category: CategoryProject,
			})
		}
	}

	return bullets
}

// SkillSummary renders the skills taxonomy as a short context string for
// extraction prompts.
func (p *Profile) SkillSummary() string {
	if len(p.Skills) == 0 {
		return ""
	}

	groups := make([]string, 0, len(p.Skills))
	for group := range p.Skills {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	parts := make([]string, 0, len(groups))
	for _, group := range groups {
		parts = append(parts, group+": "+strings.Join(p.Skills[group], ", "))
	}

	return strings.Join(parts, "; ")
}
