package scraper

// Selectors are the CSS selectors and marker strings of one page shape.
// They are passed to the page scripts as data; empty entries disable the
// corresponding extraction.
type Selectors struct {
	Container    string `json:"container"`
	Jobs         string `json:"jobs"`
	JobIDAttr    string `json:"jobIdAttr"`
	Link         string `json:"link"`
	Title        string `json:"title"`
	Company      string `json:"company"`
	CompanyLink  string `json:"companyLink"`
	CompanyImg   string `json:"companyImg"`
	Place        string `json:"place"`
	Date         string `json:"date"`
	PromotedText string `json:"promotedText"`

	DetailsPanel string `json:"detailsPanel"`
	Description  string `json:"description"`
	Insights     string `json:"insights"`
	PrimaryInfo  string `json:"primaryInfo"`
	Skills       string `json:"skills"`
	Salary       string `json:"salary"`
	RemoteBanner string `json:"remoteBanner"`
	Criteria     string `json:"criteria"`
	ApplyLink    string `json:"applyLink"`
	ApplyButton  string `json:"applyBtn"`

	ChatPanel        string `json:"chatPanel"`
	PrivacyAcceptBtn string `json:"privacyAcceptBtn"`
	CookieAcceptText string `json:"cookieAcceptText"`
	TotalResults     string `json:"totalResults"`
	SeeMoreJobs      string `json:"seeMoreJobs"`

	// LocationMismatchText marks a remote banner that excludes the searched country.
	LocationMismatchText string `json:"locationMismatchText"`
	// AuthWallPath is contained in the URL path of the login redirect.
	AuthWallPath string `json:"authWallPath"`
	// JobPagePath is contained in URLs of tabs that belong to the listing.
	JobPagePath string `json:"jobPagePath"`
}

// AuthenticatedSelectors match the signed-in two-pane search page.
func AuthenticatedSelectors() Selectors {
	return Selectors{
		Container:    ".jobs-search-results-list",
		Jobs:         "div.job-card-container",
		JobIDAttr:    "data-job-id",
		Link:         "a.job-card-container__link",
		Title:        ".artdeco-entity-lockup__title",
		Company:      ".artdeco-entity-lockup__subtitle",
		CompanyLink:  ".artdeco-entity-lockup__subtitle a",
		CompanyImg:   "img",
		Place:        ".artdeco-entity-lockup__caption",
		Date:         "time",
		PromotedText: "Promoted",

		DetailsPanel: ".jobs-search__job-details--container",
		Description:  ".jobs-description",
		Insights:     `[class="job-details-jobs-unified-top-card__job-insight"]`,
		PrimaryInfo:  ".job-details-jobs-unified-top-card__primary-description span",
		Skills:       ".job-details-how-you-match__skills-item-subtitle",
		Salary:       ".jobs-details__salary-main-rail-card",
		RemoteBanner: ".job-details-how-you-match-card__header",
		ApplyButton:  `button.jobs-apply-button[role="link"]`,

		ChatPanel:        ".msg-overlay-list-bubble",
		PrivacyAcceptBtn: "button.artdeco-global-alert__action",
		CookieAcceptText: "Accept cookies",
		TotalResults:     "div.jobs-search-results-list__subtitle",

		LocationMismatchText: "Your location does not match country requirements",
		JobPagePath:          "linkedin.com/jobs",
	}
}

// AnonymousSelectors match the public guest search page.
func AnonymousSelectors() Selectors {
	return Selectors{
		Container:   ".results__container.results__container--two-pane",
		Jobs:        ".jobs-search__results-list li",
		JobIDAttr:   "data-id",
		Link:        "a.result-card__full-card-link",
		Title:       ".result-card__title",
		Company:     ".result-card__subtitle.job-result-card__subtitle",
		CompanyLink: ".result-card__subtitle a",
		CompanyImg:  "img",
		Place:       ".job-result-card__location",
		Date:        "time",

		DetailsPanel: ".details-pane__content",
		Description:  ".description__text",
		Criteria:     "li.job-criteria__item",
		ApplyLink:    "a[data-is-offsite-apply=true]",

		SeeMoreJobs: "button.infinite-scroller__show-more-button",

		AuthWallPath: "authwall",
		JobPagePath:  "linkedin.com/jobs",
	}
}
