package domain

import "strings"

// SkipOptions are content deny-lists applied per job. Authenticated mode only.
type SkipOptions struct {
	TitleDenyList       []string `json:"title,omitempty" yaml:"title"`
	SkillDenyList       []string `json:"skills,omitempty" yaml:"skills"`
	DescriptionDenyList []string `json:"description,omitempty" yaml:"description"`
	CompanyDenyList     []string `json:"company,omitempty" yaml:"company"`
	// SkipLocationMismatch drops jobs whose remote banner reports a country mismatch.
	SkipLocationMismatch bool `json:"location_mismatch,omitempty" yaml:"location_mismatch"`
}

// Clone returns a deep copy.
func (s *SkipOptions) Clone() *SkipOptions {
	if s == nil {
		return nil
	}
	c := *s
	c.TitleDenyList = append([]string(nil), s.TitleDenyList...)
	c.SkillDenyList = append([]string(nil), s.SkillDenyList...)
	c.DescriptionDenyList = append([]string(nil), s.DescriptionDenyList...)
	c.CompanyDenyList = append([]string(nil), s.CompanyDenyList...)
	return &c
}

// MatchTitle returns the deny-list entry contained in title, if any.
func (s *SkipOptions) MatchTitle(title string) (string, bool) {
	if s == nil {
		return "", false
	}
	return matchAny(s.TitleDenyList, title)
}

// MatchCompany returns the deny-list entry contained in company, if any.
func (s *SkipOptions) MatchCompany(company string) (string, bool) {
	if s == nil {
		return "", false
	}
	return matchAny(s.CompanyDenyList, company)
}

// MatchSkills returns the first deny-listed skill present in skills.
func (s *SkipOptions) MatchSkills(skills []string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, skill := range skills {
		if deny, ok := matchAny(s.SkillDenyList, skill); ok {
			return deny, true
		}
	}
	return "", false
}

// MatchDescription returns the first deny-listed keyword found in description.
func (s *SkipOptions) MatchDescription(description string) (string, bool) {
	if s == nil {
		return "", false
	}
	return matchAny(s.DescriptionDenyList, description)
}

// HasContentFilters reports whether any filter needs the detail pane.
func (s *SkipOptions) HasContentFilters() bool {
	if s == nil {
		return false
	}
	return len(s.SkillDenyList) > 0 || len(s.DescriptionDenyList) > 0 || s.SkipLocationMismatch
}

func matchAny(denyList []string, text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, deny := range denyList {
		d := strings.ToLower(strings.TrimSpace(deny))
		if d != "" && strings.Contains(lower, d) {
			return deny, true
		}
	}
	return "", false
}
