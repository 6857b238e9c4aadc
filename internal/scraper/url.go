package scraper

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/domain"
)

var relevanceCodes = map[domain.Relevance]string{
	domain.RelevanceRelevant: "R",
	domain.RelevanceRecent:   "DD",
}

var jobTypeCodes = map[domain.JobType]string{
	domain.JobTypeFullTime:   "F",
	domain.JobTypePartTime:   "P",
	domain.JobTypeTemporary:  "T",
	domain.JobTypeContract:   "C",
	domain.JobTypeInternship: "I",
	domain.JobTypeVolunteer:  "V",
	domain.JobTypeOther:      "O",
}

var experienceCodes = map[domain.ExperienceLevel]string{
	domain.ExperienceInternship: "1",
	domain.ExperienceEntryLevel: "2",
	domain.ExperienceAssociate:  "3",
	domain.ExperienceMidSenior:  "4",
	domain.ExperienceDirector:   "5",
	domain.ExperienceExecutive:  "6",
}

var workplaceCodes = map[domain.WorkplaceType]string{
	domain.WorkplaceOnSite: "1",
	domain.WorkplaceRemote: "2",
	domain.WorkplaceHybrid: "3",
}

var salaryCodes = map[domain.SalaryBand]string{
	domain.Salary40k:  "1",
	domain.Salary60k:  "2",
	domain.Salary80k:  "3",
	domain.Salary100k: "4",
	domain.Salary120k: "5",
	domain.Salary140k: "6",
	domain.Salary160k: "7",
	domain.Salary180k: "8",
	domain.Salary200k: "9",
}

// URLBuilder encodes queries into the listing site's search URL dialect.
type URLBuilder struct {
	BaseURL       string
	Dialect       config.Dialect
	Authenticated bool
}

// NewURLBuilder creates a builder for the configured dialect and mode.
func NewURLBuilder(cfg config.ScraperConfig, mode Mode) URLBuilder {
	return URLBuilder{
		BaseURL:       cfg.SearchURL,
		Dialect:       cfg.Dialect,
		Authenticated: mode == ModeAuthenticated,
	}
}

// Build returns the search URL for one (query, location) pair. The query must
// already be validated and merged.
func (b URLBuilder) Build(q domain.Query, location string) string {
	params := url.Values{}
	params.Set("keywords", q.Keyword)
	if location != "" {
		params.Set("location", location)
	}

	if f := q.Options.Filters; f != nil {
		if f.CompanyJobsURL != "" {
			if id, err := domain.CompanyID(f.CompanyJobsURL); err == nil {
				params.Set(domain.CompanyIDParam, id)
			}
		}
		if code, ok := relevanceCodes[f.Relevance]; ok {
			params.Set("sortBy", code)
		}
		if f.Time != "" && f.Time != domain.TimeAny {
			enc := b.timeEncoding()
			if v, ok := enc.Values[string(f.Time)]; ok && enc.Param != "" {
				params.Set(enc.Param, v)
			}
		}
		setCodes(params, "f_JT", f.Type, jobTypeCodes)
		setCodes(params, "f_E", f.Experience, experienceCodes)
		if b.Authenticated {
			setCodes(params, "f_WT", f.OnSiteOrRemote, workplaceCodes)
		}
		if len(f.Industry) > 0 {
			params.Set("f_I", strings.Join(f.Industry, ","))
		}
		if code, ok := salaryCodes[f.Salary]; ok {
			params.Set("f_SB2", code)
		}
	}

	params.Set("redirect", "false")
	params.Set("position", "1")
	params.Set("pageNum", "0")
	params.Set("start", strconv.Itoa(q.Options.PageOffsetValue()*b.pageSize()))

	return b.BaseURL + "?" + params.Encode()
}

// BuildSearchURL builds the search URL against the default search endpoint.
func BuildSearchURL(q domain.Query, location string, d config.Dialect, authenticated bool) string {
	b := URLBuilder{BaseURL: config.Default().Scraper.SearchURL, Dialect: d, Authenticated: authenticated}
	return b.Build(q, location)
}

// WithOffset returns searchURL with its start parameter replaced by offset.
func WithOffset(searchURL string, offset int) string {
	u, err := url.Parse(searchURL)
	if err != nil {
		return searchURL
	}
	params := u.Query()
	params.Set("start", strconv.Itoa(offset))
	u.RawQuery = params.Encode()
	return u.String()
}

func (b URLBuilder) timeEncoding() config.TimeEncoding {
	if b.Authenticated {
		return b.Dialect.Authenticated
	}
	return b.Dialect.Anonymous
}

func (b URLBuilder) pageSize() int {
	if b.Dialect.PageSize > 0 {
		return b.Dialect.PageSize
	}
	return config.DefaultDialect().PageSize
}

// setCodes encodes a set filter as a comma separated list of site codes.
func setCodes[T comparable](params url.Values, key string, values []T, codes map[T]string) {
	if len(values) == 0 {
		return
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		code, ok := codes[v]
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	if len(out) > 0 {
		params.Set(key, strings.Join(out, ","))
	}
}
