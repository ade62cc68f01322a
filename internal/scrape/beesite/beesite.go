package beesite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/scrape/types"
	"joblawn-engine/internal/scrape/util"
)

// Company is a Beesite (milch & zucker) search API tenant. Facets map onto criterion names
// such as PositionLocation.Country; Params are criteria sent on every request.
type Company struct {
	types.Source
	Host     string
	Language string
	JobHTML  bool   // fetch /jobhtml/{id} for descriptions
	JobURL   string // template with {id}; PositionURI otherwise
	APIBase  string
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
	if co.Language == "" {
		co.Language = "en"
	}
	return &Scraper{co: co, c: c}
}

func (s *Scraper) Name() string { return "beesite" }

type criterion struct {
	CriterionName  string `json:"CriterionName"`
	CriterionValue []any  `json:"CriterionValue"`
}

type searchData struct {
	LanguageCode     string `json:"LanguageCode"`
	SearchParameters struct {
		FirstItem               int      `json:"FirstItem"`
		CountItem               int      `json:"CountItem"`
		MatchedObjectDescriptor []string `json:"MatchedObjectDescriptor"`
		Sort                    []struct {
			Criterion string `json:"Criterion"`
			Direction string `json:"Direction"`
		} `json:"Sort"`
	} `json:"SearchParameters"`
	SearchCriteria []criterion `json:"SearchCriteria"`
}

type searchResponse struct {
	SearchResult struct {
		SearchResultCountAll int `json:"SearchResultCountAll"`
		SearchResultItems    []struct {
			MatchedObjectID         util.FlexString `json:"MatchedObjectId"`
			MatchedObjectDescriptor struct {
				ID                   util.FlexString `json:"ID"`
				PositionID           util.FlexString `json:"PositionID"`
				PositionTitle        string          `json:"PositionTitle"`
				PositionURI          string          `json:"PositionURI"`
				PublicationStartDate string          `json:"PublicationStartDate"`
				PositionLocation     []struct {
					CityName    string `json:"CityName"`
					CountryName string `json:"CountryName"`
					CountryCode string `json:"CountryCode"`
				} `json:"PositionLocation"`
				PositionFormattedDescription struct {
					Content string `json:"Content"`
				} `json:"PositionFormattedDescription"`
			} `json:"MatchedObjectDescriptor"`
		} `json:"SearchResultItems"`
	} `json:"SearchResult"`
}

// criterionValue sends numeric codes as JSON numbers, which the API requires for *.Code criteria.
func criterionValue(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	return v
}

func (s *Scraper) SearchData(q domain.Query) searchData {
	size := s.co.Size()
	var d searchData
	d.LanguageCode = s.co.Language
	d.SearchParameters.FirstItem = q.Offset(size) + 1
	d.SearchParameters.CountItem = size
	d.SearchParameters.MatchedObjectDescriptor = []string{
		"ID", "PositionID", "PositionTitle", "PositionURI", "PublicationStartDate",
		"PositionLocation.CityName", "PositionLocation.CountryName", "PositionLocation.CountryCode",
		"PositionFormattedDescription.Content",
	}
	d.SearchParameters.Sort = append(d.SearchParameters.Sort, struct {
		Criterion string `json:"Criterion"`
		Direction string `json:"Direction"`
	}{"PublicationStartDate", "DESC"})

	for _, k := range sortedKeys(s.co.Params) {
		d.SearchCriteria = append(d.SearchCriteria, criterion{k, []any{criterionValue(s.co.Params[k])}})
	}
	byName := map[string][]any{}
	for facet, name := range s.co.Facets {
		for _, v := range q.Values(facet) {
			byName[name] = append(byName[name], criterionValue(v))
		}
	}
	for _, name := range sortedKeys(byName) {
		d.SearchCriteria = append(d.SearchCriteria, criterion{name, byName[name]})
	}
	if q.Keyword != "" {
		d.SearchCriteria = append(d.SearchCriteria, criterion{"PositionFormattedDescription.Content", []any{q.Keyword}})
	}
	return d
}

func (s *Scraper) Fetch(ctx context.Context, q domain.Query) (domain.Page, error) {
	data, err := json.Marshal(s.SearchData(q))
	if err != nil {
		return domain.Page{}, err
	}
	var res searchResponse
	if err := s.c.GetJSON(ctx, s.co.APIBase+"/search/?data="+url.QueryEscape(string(data)), &res); err != nil {
		return domain.Page{}, fmt.Errorf("beesite search: %w", err)
	}

	items := res.SearchResult.SearchResultItems
	jobs := make([]domain.Job, len(items))
	for i, it := range items {
		m := it.MatchedObjectDescriptor
		id := util.FirstNonEmpty(m.PositionID.String(), m.ID.String(), it.MatchedObjectID.String())
		j := domain.Job{
			Company:     s.co.Name,
			ID:          id,
			Title:       util.CleanText(m.PositionTitle),
			PostedDate:  m.PublicationStartDate,
			PostedAt:    util.ParsePosted(m.PublicationStartDate),
			Description: m.PositionFormattedDescription.Content,
			URL:         m.PositionURI,
		}
		if s.co.JobURL != "" {
			j.URL = strings.ReplaceAll(s.co.JobURL, "{id}", url.PathEscape(id))
		}
		for k, l := range m.PositionLocation {
			loc := util.JoinNonEmpty(", ", l.CityName, util.FirstNonEmpty(l.CountryName, l.CountryCode))
			if k == 0 {
				j.Location = loc
			} else {
				j.SecondaryLocations = append(j.SecondaryLocations, loc)
			}
		}
		jobs[i] = j
	}

	if s.co.JobHTML {
		util.EachLimit(ctx, "ats:beesite", len(jobs), s.co.Limit(), func(ctx context.Context, i int) error {
			var d struct {
				HTML string `json:"html"`
			}
			if err := s.c.GetJSON(ctx, s.co.APIBase+"/jobhtml/"+url.PathEscape(jobs[i].ID), &d); err != nil {
				return fmt.Errorf("beesite jobhtml %s: %w", jobs[i].ID, err)
			}
			if d.HTML != "" {
				jobs[i].Description = d.HTML
			}
			return nil
		})
	}

	return util.RemotePage(s.co.Slug, jobs, q, s.co.Size(), res.SearchResult.SearchResultCountAll), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
