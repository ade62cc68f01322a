package rank

import "joblawn-engine/internal/domain"

type Scorer interface {
	Score(job domain.Job) (score int, tags []string)
}

// Apply scores and tags jobs in place.
func Apply(s Scorer, jobs []domain.Job) {
	for i := range jobs {
		jobs[i].Score, jobs[i].Tags = s.Score(jobs[i])
	}
}
