package oraclehcm

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

const facetsList = "LOCATIONS;WORK_LOCATIONS;WORKPLACE_TYPES;TITLES;CATEGORIES;ORGANIZATIONS;POSTING_DATES;FLEX_FIELDS"

// Company is one Oracle Recruiting Cloud candidate-experience site.
// Facets map onto finder variables (selectedLocationsFacet, selectedCategoriesFacet, ...).
type Company struct {
	types.Source
	Host       string // eeho.fa.us2.oraclecloud.com
	SiteNumber string // CX_45001
	JobURL     string // template with {id}
	APIBase    string
}

type Scraper struct {
	co Company
	c  *util.Client
}

func New(co Company, c *util.Client) *Scraper {
	if co.APIBase == "" {
		co.APIBase = "https://" + co.Host
	}
	co.APIBase = strings.TrimRight(co.APIBase, "/")
	if co.JobURL == "" {
		co.JobURL = fmt.Sprintf("https://%s/hcmUI/CandidateExperience/en/sites/%s/job/{id}", co.Host, co.SiteNumber)
	}
	return &Scraper{co: co, c: c}
}

func (s *Scraper) Name() string { return "oraclehcm" }

type requisition struct {
	ID                  util.FlexString `json:"Id"`
	Title               string          `json:"Title"`
	PostedDate          string          `json:"PostedDate"`
	PrimaryLocation     string          `json:"PrimaryLocation"`
	ShortDescriptionStr string          `json:"ShortDescriptionStr"`
	SecondaryLocations  []struct {
		Name string `json:"Name"`
	} `json:"secondaryLocations"`
}

type listResponse struct {
	Items []struct {
		TotalJobsCount  int           `json:"TotalJobsCount"`
		RequisitionList []requisition `json:"requisitionList"`
	} `json:"items"`
}

type detailResponse struct {
	Items []struct {
		ExternalDescriptionStr      string `json:"ExternalDescriptionStr"`
		ExternalQualificationsStr   string `json:"ExternalQualificationsStr"`
		ExternalResponsibilitiesStr string `json:"ExternalResponsibilitiesStr"`
		Category                    string `json:"Category"`
	} `json:"items"`
}

// finderEscape escapes a finder value. The finder is itself a query value whose
// variables are split on "," and multi-values on ";", so only those and spaces matter.
func finderEscape(s string) string {
	return strings.NewReplacer("%", "%25", " ", "%20", ",", "%2C", ";", "%3B", "&", "%26", "#", "%23", `"`, "%22").Replace(s)
}

// Finder builds the findReqs finder expression for q.
func (s *Scraper) Finder(q domain.Query) string {
	size := s.co.Size()
	vars := map[string][]string{}
	for facet, name := range s.co.Facets {
		vars[name] = append(vars[name], q.Values(facet)...)
	}
	names := make([]string, 0, len(vars))
	for name, vals := range vars {
		if len(vals) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	parts := []string{
		"siteNumber=" + s.co.SiteNumber,
		"facetsList=" + finderEscape(facetsList),
		fmt.Sprintf("limit=%d", size),
		fmt.Sprintf("offset=%d", q.Offset(size)),
	}
	for _, name := range names {
		escaped := make([]string, len(vars[name]))
		for i, v := range vars[name] {
			escaped[i] = finderEscape(v)
		}
		parts = append(parts, name+"="+strings.Join(escaped, "%3B"))
	}
	sortBy := "POSTING_DATES_DESC"
	if q.Keyword != "" {
		parts = append(parts, "keyword=%22"+finderEscape(q.Keyword)+"%22")
		sortBy = "RELEVANCY"
	}
	parts = append(parts, "sortBy="+sortBy)
	return "findReqs;" + strings.Join(parts, ",")
}

func (s *Scraper) ListURL(q domain.Query) string {
	return s.co.APIBase + "/hcmRestApi/resources/latest/recruitingCEJobRequisitions?onlyData=true" +
		"&expand=requisitionList.secondaryLocations,flexFieldsFacet.values,requisitionList.requisitionFlexFields" +
		"&finder=" + s.Finder(q)
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	var res listResponse
	if err := s.c.GetJSON(ctx, s.ListURL(q), &res); err != nil {
		return domain.Page{}, fmt.Errorf("oraclehcm list: %w", err)
	}
	if len(res.Items) == 0 {
		return util.RemotePage(s.co.Slug, nil, q, s.co.Size(), 0), nil
	}

	reqs := res.Items[0].RequisitionList
	jobs := make([]domain.Job, len(reqs))
	for i, r := range reqs {
		j := domain.Job{
			Company:     s.co.Name,
			ID:          r.ID.String(),
			Title:       util.CleanText(r.Title),
			PostedDate:  r.PostedDate,
			PostedAt:    util.ParsePosted(r.PostedDate),
			Location:    util.NormalizeLocation(r.PrimaryLocation),
			Description: r.ShortDescriptionStr,
			URL:         strings.ReplaceAll(s.co.JobURL, "{id}", url.PathEscape(r.ID.String())),
		}
		for _, l := range r.SecondaryLocations {
			j.SecondaryLocations = append(j.SecondaryLocations, l.Name)
		}
		jobs[i] = j
	}

	util.EachLimit(ctx, "ats:oraclehcm", len(jobs), s.co.Limit(), func(ctx context.Context, i int) error {
		return s.hydrate(ctx, &jobs[i])
	})

	return util.RemotePage(s.co.Slug, jobs, q, s.co.Size(), res.Items[0].TotalJobsCount), nil
}

func (s *Scraper) hydrate(ctx context.Context, j *domain.Job) error {
	u := fmt.Sprintf("%s/hcmRestApi/resources/latest/recruitingCEJobRequisitionDetails?expand=all&onlyData=true&finder=ById;siteNumber=%s,Id=%%22%s%%22",
		s.co.APIBase, s.co.SiteNumber, finderEscape(j.ID))
	var d detailResponse
	if err := s.c.GetJSON(ctx, u, &d); err != nil {
		return fmt.Errorf("oraclehcm detail %s: %w", j.ID, err)
	}
	if len(d.Items) == 0 {
		return nil
	}
	it := d.Items[0]
	j.Description = util.FirstNonEmpty(it.ExternalDescriptionStr, j.Description)
	j.BasicQualifications = it.ExternalQualificationsStr
	j.Responsibilities = it.ExternalResponsibilitiesStr
	j.Department = it.Category
	return nil
}
