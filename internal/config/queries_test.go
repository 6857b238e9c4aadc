package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resume-rag/jobscraper/internal/domain"
)

func TestLoadQueries(t *testing.T) {
	path := writeConfig(t, `
options:
  locations: [Berlin, Remote]
  limit: 10
queries:
  - query: Go Developer
    options:
      apply_link: true
      filters:
        relevance: recent
        time: week
        type: [full-time, contract]
        on_site_or_remote: [remote]
      skip:
        title: [Senior]
  - query: SRE
`)
	set, err := LoadQueries(path)
	require.NoError(t, err)
	require.Len(t, set.Queries, 2)

	require.NotNil(t, set.Options)
	assert.Equal(t, []string{"Berlin", "Remote"}, set.Options.Locations)
	assert.Equal(t, 10, set.Options.LimitValue())

	q := set.Queries[0]
	assert.Equal(t, "Go Developer", q.Keyword)
	assert.True(t, q.Options.ApplyLinkValue())
	require.NotNil(t, q.Options.Filters)
	assert.Equal(t, domain.RelevanceRecent, q.Options.Filters.Relevance)
	assert.Equal(t, domain.TimeWeek, q.Options.Filters.Time)
	assert.Equal(t, []domain.JobType{domain.JobTypeFullTime, domain.JobTypeContract}, q.Options.Filters.Type)
	assert.Equal(t, []domain.WorkplaceType{domain.WorkplaceRemote}, q.Options.Filters.OnSiteOrRemote)
	require.NotNil(t, q.Options.Skip)
	assert.Equal(t, []string{"Senior"}, q.Options.Skip.TitleDenyList)

	merged := set.Queries[1].Merge(set.Options)
	assert.Equal(t, []string{"Berlin", "Remote"}, merged.Options.Locations)
	assert.Equal(t, 10, merged.Options.LimitValue())
}

func TestLoadQueriesErrors(t *testing.T) {
	_, err := LoadQueries(writeConfig(t, "queries: []\n"))
	assert.ErrorContains(t, err, "no queries")

	_, err = LoadQueries(writeConfig(t, "queries: {bad"))
	assert.ErrorContains(t, err, "parse")

	_, err = LoadQueries("/nonexistent/queries.yaml")
	assert.ErrorContains(t, err, "read")
}
