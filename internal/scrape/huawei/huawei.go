package huawei

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

const (
	defaultBase = "https://career.huawei.com"
	listPath    = "/reccampportal/services/portal/portalpub/getJob/newHr/page"
	detailURL   = "https://career.huawei.com/reccampportal/portal5/campus-recruitment-detail.html?jobId=%s&dataSource=1&jobType=3&recruitType=CR&sourceType=001"
)

type Company struct {
	types.Source
	APIBase string
}

type Scraper struct {
	co Company
	c  *util.Client
}

func New(co Company, c *util.Client) *Scraper {
	if co.APIBase == "" {
		co.APIBase = defaultBase
	}
	co.APIBase = strings.TrimRight(co.APIBase, "/")
	return &Scraper{co: co, c: c}
}

func (s *Scraper) Name() string { return "huawei" }

type result struct {
	Result []struct {
		JobName      string          `json:"jobname"`
		JobID        util.FlexString `json:"jobId"`
		ReleaseDate  util.FlexString `json:"releaseDate"`
		JobArea      string          `json:"jobArea"`
		JobRequireEn string          `json:"jobRequireEn"`
		MainBusiness string          `json:"mainBusinessEn"`
	} `json:"result"`
	PageVO struct {
		TotalRows int `json:"totalRows"`
	} `json:"pageVO"`
}

// ListURL repeats the family and country codes; every selected value is sent.
func (s *Scraper) ListURL(q domain.Query) string {
	size := s.co.Size()
	page := q.PageOrFirst()
	v := url.Values{}
	v.Set("curPage", strconv.Itoa(page))
	v.Set("pageSize", strconv.Itoa(size))
	for _, facet := range util.FacetNames(s.co.Facets) {
		for _, val := range q.Values(facet) {
			v.Add(s.co.Facets[facet], val)
		}
	}
	if q.Keyword != "" {
		v.Set("searchText", q.Keyword)
	}
	v.Set("language", "en_US")
	v.Set("orderBy", "ISS_STARTDATE_DESC_AND_IS_HOT_JOB")
	util.AddStatic(v, s.co.Params)
	return fmt.Sprintf("%s%s/%d/%d?%s", s.co.APIBase, listPath, size, page, util.EncodeQuery(v))
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	var res result
	if err := s.c.GetJSON(ctx, s.ListURL(q), &res); err != nil {
		return domain.Page{}, fmt.Errorf("huawei jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(res.Result))
	for _, r := range res.Result {
		id := string(r.JobID)
		date := string(r.ReleaseDate)
		jobs = append(jobs, domain.Job{
			Company:             s.co.Name,
			ID:                  id,
			Title:               util.CleanText(r.JobName),
			PostedDate:          date,
			PostedAt:            util.ParsePosted(date),
			Location:            util.NormalizeLocation(r.JobArea),
			Description:         r.MainBusiness,
			BasicQualifications: r.JobRequireEn,
			URL:                 fmt.Sprintf(detailURL, url.QueryEscape(id)),
		})
	}
	return util.RemotePage(s.co.Slug, jobs, q, s.co.Size(), res.PageVO.TotalRows), nil
}
