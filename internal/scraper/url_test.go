package scraper

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/domain"
)

func parseQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}

func TestBuildEncodesEveryFilter(t *testing.T) {
	cfg := config.Default().Scraper
	q := query("Go Developer", domain.QueryOptions{
		Filters: &domain.QueryFilters{
			CompanyJobsURL: "https://www.linkedin.com/jobs/search/?f_C=1441%2C17876832&geoId=92000000",
			Relevance:      domain.RelevanceRecent,
			Time:           domain.TimeWeek,
			Type:           []domain.JobType{domain.JobTypeFullTime, domain.JobTypeContract},
			Experience:     []domain.ExperienceLevel{domain.ExperienceMidSenior},
			OnSiteOrRemote: []domain.WorkplaceType{domain.WorkplaceRemote, domain.WorkplaceHybrid},
			Industry:       []string{"4", "96"},
			Salary:         domain.Salary120k,
		},
	})

	v := parseQuery(t, NewURLBuilder(cfg, ModeAuthenticated).Build(q, "Berlin"))
	assert.Equal(t, "Go Developer", v.Get("keywords"))
	assert.Equal(t, "Berlin", v.Get("location"))
	assert.Equal(t, "1441,17876832", v.Get("f_C"))
	assert.Equal(t, "DD", v.Get("sortBy"))
	assert.Equal(t, "r604800", v.Get("f_TPR"))
	assert.Equal(t, "F,C", v.Get("f_JT"))
	assert.Equal(t, "4", v.Get("f_E"))
	assert.Equal(t, "2,3", v.Get("f_WT"))
	assert.Equal(t, "4,96", v.Get("f_I"))
	assert.Equal(t, "5", v.Get("f_SB2"))
	assert.Equal(t, "false", v.Get("redirect"))
	assert.Equal(t, "1", v.Get("position"))
	assert.Equal(t, "0", v.Get("start"))
}

func TestBuildAnonymousDialect(t *testing.T) {
	cfg := config.Default().Scraper
	q := query("Engineer", domain.QueryOptions{
		Filters: &domain.QueryFilters{
			Time:           domain.TimeMonth,
			OnSiteOrRemote: []domain.WorkplaceType{domain.WorkplaceRemote},
		},
	})

	v := parseQuery(t, NewURLBuilder(cfg, ModeAnonymous).Build(q, "Worldwide"))
	assert.Equal(t, "1,2,3,4", v.Get("f_TP"))
	assert.Empty(t, v.Get("f_TPR"))
	assert.NotContains(t, v, "f_WT")
}

func TestBuildOmitsUnsetFilters(t *testing.T) {
	cfg := config.Default().Scraper
	q := query("Engineer", domain.QueryOptions{Filters: &domain.QueryFilters{Time: domain.TimeAny}})

	v := parseQuery(t, NewURLBuilder(cfg, ModeAuthenticated).Build(q, "Worldwide"))
	for _, key := range []string{"f_C", "sortBy", "f_TPR", "f_TP", "f_JT", "f_E", "f_WT", "f_I", "f_SB2"} {
		assert.NotContains(t, v, key)
	}
}

func TestBuildPageOffset(t *testing.T) {
	cfg := config.Default().Scraper
	q := query("Engineer", domain.QueryOptions{PageOffset: domain.Int(2)})
	v := parseQuery(t, NewURLBuilder(cfg, ModeAnonymous).Build(q, "Worldwide"))
	assert.Equal(t, "50", v.Get("start"))

	cfg.Dialect.PageSize = 10
	v = parseQuery(t, NewURLBuilder(cfg, ModeAnonymous).Build(q, "Worldwide"))
	assert.Equal(t, "20", v.Get("start"))
}

func TestBuildCustomTimeEncoding(t *testing.T) {
	d := config.DefaultDialect()
	d.Authenticated = config.TimeEncoding{Param: "f_TPR", Values: map[string]string{"day": "r3600"}}
	q := query("Engineer", domain.QueryOptions{Filters: &domain.QueryFilters{Time: domain.TimeDay}})

	v := parseQuery(t, BuildSearchURL(q, "Worldwide", d, true))
	assert.Equal(t, "r3600", v.Get("f_TPR"))

	q.Options.Filters.Time = domain.TimeWeek
	v = parseQuery(t, BuildSearchURL(q, "Worldwide", d, true))
	assert.NotContains(t, v, "f_TPR")
}

func TestWithOffsetKeepsOtherParams(t *testing.T) {
	cfg := config.Default().Scraper
	q := query("Engineer", domain.QueryOptions{Filters: &domain.QueryFilters{Relevance: domain.RelevanceRelevant}})
	base := NewURLBuilder(cfg, ModeAnonymous).Build(q, "Worldwide")

	v := parseQuery(t, WithOffset(WithOffset(base, 25), 50))
	assert.Equal(t, "50", v.Get("start"))
	assert.Equal(t, "R", v.Get("sortBy"))
	assert.Equal(t, "Engineer", v.Get("keywords"))
}
