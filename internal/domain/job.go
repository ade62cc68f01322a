package domain

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Job is one listing as returned by an employer API, mapped into the shared shape.
type Job struct {
	Company                 string     `json:"company"`
	ID                      string     `json:"id"`
	Title                   string     `json:"title"`
	PostedDate              string     `json:"postedDate,omitempty"`
	PostedAt                *time.Time `json:"postedAt,omitempty"`
	Location                string     `json:"location"`
	SecondaryLocations      []string   `json:"secondaryLocations,omitempty"`
	Department              string     `json:"department,omitempty"`
	Description             string     `json:"description,omitempty"`
	BasicQualifications     string     `json:"basicQualifications,omitempty"`
	PreferredQualifications string     `json:"preferredQualifications,omitempty"`
	Responsibilities        string     `json:"responsibilities,omitempty"`
	SalaryRange             string     `json:"salaryRange,omitempty"`
	URL                     string     `json:"url"`
	Score                   int        `json:"score"`
	Tags                    []string   `json:"tags,omitempty"`
}

const notAvailable = "N/A"

// Card is what a listing page renders for a Job.
type Card struct {
	ID                      string   `json:"id"`
	Company                 string   `json:"company"`
	Title                   string   `json:"title"`
	Location                string   `json:"location"`
	FullLocation            string   `json:"fullLocation"`
	Posted                  string   `json:"posted"`
	PostedAgo               string   `json:"postedAgo,omitempty"`
	Salary                  string   `json:"salary"`
	URL                     string   `json:"url"`
	Department              string   `json:"department,omitempty"`
	Description             string   `json:"description,omitempty"`
	Qualifications          string   `json:"qualifications,omitempty"`
	PreferredQualifications string   `json:"preferredQualifications,omitempty"`
	Responsibilities        string   `json:"responsibilities,omitempty"`
	Score                   int      `json:"score"`
	Tags                    []string `json:"tags,omitempty"`
}

func (j Job) Card() Card {
	return j.cardAt(time.Now())
}

func (j Job) cardAt(now time.Time) Card {
	c := Card{
		ID:                      orNA(j.ID),
		Company:                 j.Company,
		Title:                   orNA(j.Title),
		Location:                orNA(j.Location),
		FullLocation:            orNA(j.FullLocation()),
		Posted:                  notAvailable,
		Salary:                  orNA(j.SalaryRange),
		URL:                     j.URL,
		Department:              j.Department,
		Description:             j.Description,
		Qualifications:          j.BasicQualifications,
		PreferredQualifications: j.PreferredQualifications,
		Responsibilities:        j.Responsibilities,
		Score:                   j.Score,
		Tags:                    j.Tags,
	}
	switch {
	case j.PostedAt != nil && !j.PostedAt.IsZero():
		c.Posted = j.PostedAt.Format("Jan 2, 2006")
		c.PostedAgo = humanize.RelTime(*j.PostedAt, now, "ago", "from now")
	case strings.TrimSpace(j.PostedDate) != "":
		c.Posted = strings.TrimSpace(j.PostedDate)
	}
	return c
}

// FullLocation joins the primary location with any secondary ones.
func (j Job) FullLocation() string {
	parts := make([]string, 0, 1+len(j.SecondaryLocations))
	seen := map[string]bool{}
	for _, p := range append([]string{j.Location}, j.SecondaryLocations...) {
		p = strings.TrimSpace(p)
		if p == "" || seen[strings.ToLower(p)] {
			continue
		}
		seen[strings.ToLower(p)] = true
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}
