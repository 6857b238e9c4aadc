package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Relevance represents the result ordering
type Relevance string

const (
	RelevanceRelevant Relevance = "relevant"
	RelevanceRecent   Relevance = "recent"
)

// TimeWindow represents how recently a job was posted
type TimeWindow string

const (
	TimeAny   TimeWindow = "any"
	TimeDay   TimeWindow = "day"
	TimeWeek  TimeWindow = "week"
	TimeMonth TimeWindow = "month"
)

// JobType represents the employment type
type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeTemporary  JobType = "temporary"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeVolunteer  JobType = "volunteer"
	JobTypeOther      JobType = "other"
)

// ExperienceLevel represents the seniority filter
type ExperienceLevel string

const (
	ExperienceInternship ExperienceLevel = "internship"
	ExperienceEntryLevel ExperienceLevel = "entry-level"
	ExperienceAssociate  ExperienceLevel = "associate"
	ExperienceMidSenior  ExperienceLevel = "mid-senior"
	ExperienceDirector   ExperienceLevel = "director"
	ExperienceExecutive  ExperienceLevel = "executive"
)

// WorkplaceType represents the on-site/remote filter.
// Only honored by authenticated sessions.
type WorkplaceType string

const (
	WorkplaceOnSite WorkplaceType = "on-site"
	WorkplaceRemote WorkplaceType = "remote"
	WorkplaceHybrid WorkplaceType = "hybrid"
)

// SalaryBand represents a minimum yearly salary bucket
type SalaryBand string

const (
	Salary40k  SalaryBand = "40k+"
	Salary60k  SalaryBand = "60k+"
	Salary80k  SalaryBand = "80k+"
	Salary100k SalaryBand = "100k+"
	Salary120k SalaryBand = "120k+"
	Salary140k SalaryBand = "140k+"
	Salary160k SalaryBand = "160k+"
	Salary180k SalaryBand = "180k+"
	Salary200k SalaryBand = "200k+"
)

// CompanyIDParam is the query parameter carrying the company scope.
const CompanyIDParam = "f_C"

var (
	relevances  = []Relevance{RelevanceRelevant, RelevanceRecent}
	timeWindows = []TimeWindow{TimeAny, TimeDay, TimeWeek, TimeMonth}
	jobTypes    = []JobType{
		JobTypeFullTime, JobTypePartTime, JobTypeTemporary, JobTypeContract,
		JobTypeInternship, JobTypeVolunteer, JobTypeOther,
	}
	experienceLevels = []ExperienceLevel{
		ExperienceInternship, ExperienceEntryLevel, ExperienceAssociate,
		ExperienceMidSenior, ExperienceDirector, ExperienceExecutive,
	}
	workplaceTypes = []WorkplaceType{WorkplaceOnSite, WorkplaceRemote, WorkplaceHybrid}
	salaryBands    = []SalaryBand{
		Salary40k, Salary60k, Salary80k, Salary100k, Salary120k,
		Salary140k, Salary160k, Salary180k, Salary200k,
	}
)

// QueryFilters narrows a search. Zero values mean "not set".
type QueryFilters struct {
	CompanyJobsURL string            `json:"company_jobs_url,omitempty" yaml:"company_jobs_url"`
	Relevance      Relevance         `json:"relevance,omitempty" yaml:"relevance"`
	Time           TimeWindow        `json:"time,omitempty" yaml:"time"`
	Type           []JobType         `json:"type,omitempty" yaml:"type"`
	Experience     []ExperienceLevel `json:"experience,omitempty" yaml:"experience"`
	OnSiteOrRemote []WorkplaceType   `json:"on_site_or_remote,omitempty" yaml:"on_site_or_remote"`
	Industry       []string          `json:"industry,omitempty" yaml:"industry"`
	Salary         SalaryBand        `json:"salary,omitempty" yaml:"salary"`
}

// Validate checks every enum member against its domain.
func (f *QueryFilters) Validate() error {
	if f == nil {
		return nil
	}
	if f.CompanyJobsURL != "" {
		if _, err := CompanyID(f.CompanyJobsURL); err != nil {
			return &ValidationError{Field: "filters.company_jobs_url", Reason: err.Error()}
		}
	}
	if f.Relevance != "" && !contains(relevances, f.Relevance) {
		return invalidEnum("filters.relevance", f.Relevance, relevances)
	}
	if f.Time != "" && !contains(timeWindows, f.Time) {
		return invalidEnum("filters.time", f.Time, timeWindows)
	}
	for _, v := range f.Type {
		if !contains(jobTypes, v) {
			return invalidEnum("filters.type", v, jobTypes)
		}
	}
	for _, v := range f.Experience {
		if !contains(experienceLevels, v) {
			return invalidEnum("filters.experience", v, experienceLevels)
		}
	}
	for _, v := range f.OnSiteOrRemote {
		if !contains(workplaceTypes, v) {
			return invalidEnum("filters.on_site_or_remote", v, workplaceTypes)
		}
	}
	for _, v := range f.Industry {
		if v == "" || strings.Trim(v, "0123456789") != "" {
			return &ValidationError{Field: "filters.industry", Reason: fmt.Sprintf("%q is not a numeric industry id", v)}
		}
	}
	if f.Salary != "" && !contains(salaryBands, f.Salary) {
		return invalidEnum("filters.salary", f.Salary, salaryBands)
	}
	return nil
}

// Clone returns a deep copy.
func (f *QueryFilters) Clone() *QueryFilters {
	if f == nil {
		return nil
	}
	c := *f
	c.Type = append([]JobType(nil), f.Type...)
	c.Experience = append([]ExperienceLevel(nil), f.Experience...)
	c.OnSiteOrRemote = append([]WorkplaceType(nil), f.OnSiteOrRemote...)
	c.Industry = append([]string(nil), f.Industry...)
	return &c
}

// CompanyID extracts the company id from a company jobs search URL.
func CompanyID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}
	id := u.Query().Get(CompanyIDParam)
	if id == "" {
		return "", fmt.Errorf("url %q has no %s parameter", rawURL, CompanyIDParam)
	}
	return id, nil
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func invalidEnum[T ~string](field string, v T, set []T) error {
	names := make([]string, len(set))
	for i, s := range set {
		names[i] = string(s)
	}
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("%q is not one of [%s]", v, strings.Join(names, ", ")),
	}
}
