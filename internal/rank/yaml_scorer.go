package rank

import (
	"strings"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/util"
)

type YAMLScorer struct {
	Cfg config.Config
}

// Score matches title rules against the title only; keyword rules and penalties also
// see the description and qualification sections, tags stripped.
func (s YAMLScorer) Score(job domain.Job) (int, []string) {
	title := " " + strings.ToLower(job.Title) + " "
	parts := []string{job.Title}
	for _, f := range []string{job.Description, job.BasicQualifications, job.PreferredQualifications, job.Responsibilities} {
		parts = append(parts, util.HTMLToText(f))
	}
	text := " " + strings.ToLower(strings.Join(strings.Fields(strings.Join(parts, " ")), " ")) + " "

	score := 0
	var tags []string

	applyRules := func(haystack string, rules []config.Rule) {
		for _, r := range rules {
			for _, needle := range r.Any {
				n := strings.ToLower(needle)
				if n != "" && strings.Contains(haystack, n) {
					score += r.Weight
					tags = append(tags, r.Tag)
					break
				}
			}
		}
	}

	applyRules(title, s.Cfg.Scoring.TitleRules)
	applyRules(text, s.Cfg.Scoring.KeywordRules)

	for _, p := range s.Cfg.Scoring.Penalties {
		for _, needle := range p.Any {
			n := strings.ToLower(needle)
			if n != "" && strings.Contains(text, n) {
				score += p.Weight
				break
			}
		}
	}

	return score, uniq(tags)
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
