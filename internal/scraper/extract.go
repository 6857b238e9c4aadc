package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/resume-rag/jobscraper/internal/domain"
)

// primaryFields is decoded from scriptPrimary.
type primaryFields struct {
	Found          bool   `json:"found"`
	JobID          string `json:"jobId"`
	Title          string `json:"title"`
	Company        string `json:"company"`
	CompanyLink    string `json:"companyLink"`
	CompanyImgLink string `json:"companyImgLink"`
	Place          string `json:"place"`
	Date           string `json:"date"`
	Link           string `json:"link"`
	Promoted       bool   `json:"promoted"`
}

func (p *primaryFields) normalize() {
	p.Title = normalizeSpaces(p.Title)
	p.Company = normalizeSpaces(p.Company)
	p.Place = normalizeSpaces(p.Place)
}

// secondaryFields is decoded from scriptSecondary.
type secondaryFields struct {
	DescriptionText string            `json:"descriptionText"`
	DescriptionHTML string            `json:"descriptionHtml"`
	Insights        []string          `json:"insights"`
	Skills          []string          `json:"skills"`
	Salary          string            `json:"salary"`
	RemoteBanner    string            `json:"remoteBanner"`
	Criteria        map[string]string `json:"criteria"`
	ApplyLink       string            `json:"applyLink"`
}

// Criteria labels of the guest detail pane.
const (
	criteriaSeniority  = "Seniority level"
	criteriaFunction   = "Job function"
	criteriaEmployment = "Employment type"
	criteriaIndustries = "Industries"
)

func (r *run) buildJob(i int, p primaryFields, sec secondaryFields) domain.EventData {
	description := strings.TrimSpace(sec.DescriptionText)
	if description == "" && sec.DescriptionHTML != "" {
		description = htmlText(sec.DescriptionHTML)
	}

	return domain.EventData{
		Query:           r.q.Keyword,
		Location:        r.location,
		JobID:           p.JobID,
		JobIndex:        r.visited,
		Link:            p.Link,
		Title:           p.Title,
		Company:         p.Company,
		CompanyLink:     p.CompanyLink,
		CompanyImgLink:  p.CompanyImgLink,
		Place:           p.Place,
		Date:            p.Date,
		Salary:          sec.Salary,
		Description:     description,
		DescriptionHTML: sec.DescriptionHTML,
		SeniorityLevel:  sec.Criteria[criteriaSeniority],
		JobFunction:     sec.Criteria[criteriaFunction],
		EmploymentType:  sec.Criteria[criteriaEmployment],
		Industries:      sec.Criteria[criteriaIndustries],
		Insights:        sec.Insights,
		Skills:          parseSkills(sec.Skills),
		Tag:             r.tag(i),
	}
}

var moreSkills = regexp.MustCompile(`(?i)^\d+\s+more$`)

// parseSkills splits "Go, Kubernetes, and 3 more" style summaries into skills.
func parseSkills(items []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, item := range items {
		item = strings.ReplaceAll(item, " and ", ", ")
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "and "))
			if part == "" || moreSkills.MatchString(part) || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}

// htmlText returns the visible text of an HTML fragment.
func htmlText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()
	return normalizeSpaces(doc.Text())
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
