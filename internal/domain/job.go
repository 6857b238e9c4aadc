package domain

import "fmt"

// EventData is one extracted job record. Immutable once emitted.
// Anonymous sessions fill the criteria fields, authenticated sessions fill
// Insights and Skills.
type EventData struct {
	Query    string `json:"query"`
	Location string `json:"location"`
	JobID    string `json:"job_id"`
	JobIndex int    `json:"job_index"`

	Link           string `json:"link"`
	ApplyLink      string `json:"apply_link"`
	Title          string `json:"title"`
	Company        string `json:"company"`
	CompanyLink    string `json:"company_link"`
	CompanyImgLink string `json:"company_img_link"`
	Place          string `json:"place"`
	Date           string `json:"date"`
	Salary         string `json:"salary,omitempty"`

	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html"`

	SeniorityLevel string `json:"seniority_level,omitempty"`
	JobFunction    string `json:"job_function,omitempty"`
	EmploymentType string `json:"employment_type,omitempty"`
	Industries     string `json:"industries,omitempty"`

	Insights []string `json:"insights,omitempty"`
	Skills   []string `json:"skills,omitempty"`

	Tag string `json:"tag"`
}

// Tag builds the provenance tag for the n-th job of a run.
func Tag(query, location string, n int) string {
	return fmt.Sprintf("[%s][%s][%d]", query, location, n)
}

// EventMetrics counts card outcomes for one (query, location) run.
type EventMetrics struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Missed    int `json:"missed"`
}

// Total is the number of cards accounted for.
func (m EventMetrics) Total() int {
	return m.Processed + m.Failed + m.Skipped + m.Missed
}
