package rank

import (
	"reflect"
	"testing"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/domain"
)

func testScorer() YAMLScorer {
	var cfg config.Config
	cfg.Scoring.TitleRules = []config.Rule{
		{Tag: "Backend", Weight: 20, Any: []string{"backend", "platform"}},
	}
	cfg.Scoring.KeywordRules = []config.Rule{
		{Tag: "Go", Weight: 10, Any: []string{"golang", " go "}},
		{Tag: "Kubernetes", Weight: 8, Any: []string{"kubernetes", "k8s"}},
	}
	cfg.Scoring.Penalties = []config.Penalty{
		{Reason: "senior-only", Weight: -15, Any: []string{"principal"}},
	}
	return YAMLScorer{Cfg: cfg}
}

func TestScore(t *testing.T) {
	s := testScorer()

	tests := []struct {
		name  string
		job   domain.Job
		score int
		tags  []string
	}{
		{
			name:  "title and keywords",
			job:   domain.Job{Title: "Backend Engineer", Description: "We write Go and run k8s."},
			score: 38,
			tags:  []string{"Backend", "Go", "Kubernetes"},
		},
		{
			name:  "title rule ignores description",
			job:   domain.Job{Title: "Data Analyst", Description: "Work with the platform team"},
			score: 0,
			tags:  []string{},
		},
		{
			name:  "html description",
			job:   domain.Job{Title: "Engineer", Description: "<ul><li>Go</li><li>Kubernetes</li></ul>"},
			score: 18,
			tags:  []string{"Go", "Kubernetes"},
		},
		{
			name:  "penalty",
			job:   domain.Job{Title: "Principal Platform Engineer", BasicQualifications: "golang"},
			score: 15,
			tags:  []string{"Backend", "Go"},
		},
	}
	for _, tc := range tests {
		score, tags := s.Score(tc.job)
		if score != tc.score || !reflect.DeepEqual(tags, tc.tags) {
			t.Errorf("%s: got (%d, %v), want (%d, %v)", tc.name, score, tags, tc.score, tc.tags)
		}
	}
}

func TestApply(t *testing.T) {
	jobs := []domain.Job{{Title: "Backend Engineer"}, {Title: "Chef"}}
	Apply(testScorer(), jobs)
	if jobs[0].Score != 20 || len(jobs[0].Tags) != 1 || jobs[1].Score != 0 {
		t.Fatalf("Apply: %+v", jobs)
	}
}
