package sink

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/resume-rag/jobscraper/internal/domain"
)

// Cleaner sanitizes scraped HTML using Bluemonday
type Cleaner struct {
	policy *bluemonday.Policy
}

// NewCleaner keeps basic formatting and links, and strips everything else.
func NewCleaner() *Cleaner {
	policy := bluemonday.NewPolicy()

	policy.AllowElements("p", "br", "div", "span")
	policy.AllowElements("strong", "b", "em", "i", "u")
	policy.AllowElements("ul", "ol", "li")
	policy.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")

	policy.AllowAttrs("href").OnElements("a")
	policy.RequireParseableURLs(true)
	policy.AllowURLSchemes("http", "https", "mailto")
	policy.RequireNoFollowOnLinks(true)

	return &Cleaner{policy: policy}
}

// Clean sanitizes HTML content
func (c *Cleaner) Clean(html string) string {
	return strings.TrimSpace(c.policy.Sanitize(html))
}

// Job returns job with its description HTML sanitized. A nil Cleaner returns
// job unchanged.
func (c *Cleaner) Job(job domain.EventData) domain.EventData {
	if c == nil || job.DescriptionHTML == "" {
		return job
	}
	job.DescriptionHTML = c.Clean(job.DescriptionHTML)
	if strings.TrimSpace(job.Description) == "" {
		job.Description = strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(job.DescriptionHTML))
	}
	return job
}
