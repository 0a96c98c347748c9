// Package siteconfig holds every site-specific literal the scraper matches
// against: base URLs, form field names, marker strings, and meeting-type codes.
//
// These values are contracts with the live website's markup rather than
// properties of the scraper itself, so they are kept in one injectable struct
// with working defaults instead of being scattered as hard-coded constants.
// When the site renames a form field, only the config changes.
package siteconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values. The URL and marker defaults track the live
// site as of the last time the scraper was verified against it.
const (
	// DefaultRetryDelay is how long to wait before retrying after a
	// transient error. Applies to both transport-level retries in the
	// fetcher and site-level retries in the crawl driver.
	DefaultRetryDelay = 30 * time.Second

	// DefaultSocketTimeout bounds a single request, not a whole crawl.
	// Retries are unbounded by count; see the fetch package.
	DefaultSocketTimeout = 30 * time.Second

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Gecko/20100101 Firefox/115.0"
)

// MeetingTypeCodes maps each recognized meeting kind to the short code the
// schedule site prints in a row's type cell.
type MeetingTypeCodes struct {
	Lecture        string `yaml:"lecture"`
	Discussion     string `yaml:"discussion"`
	Lab            string `yaml:"lab"`
	Tutorial       string `yaml:"tutorial"`
	Seminar        string `yaml:"seminar"`
	Studio         string `yaml:"studio"`
	Film           string `yaml:"film"`
	Final          string `yaml:"final"`
	Midterm        string `yaml:"midterm"`
	ProblemSession string `yaml:"problem_session"`
	ReviewSession  string `yaml:"review_session"`
	MakeUpSession  string `yaml:"make_up_session"`

	// Types the row classifier recognizes but cannot model; a course
	// instance containing one of these is skipped whole.
	IndependentStudy  string `yaml:"independent_study"`
	Practicum         string `yaml:"practicum"`
	Conference        string `yaml:"conference"`
	ClinicalClerkship string `yaml:"clinical_clerkship"`
	Fieldwork         string `yaml:"fieldwork"`
}

// Normal returns the codes that have an event bucket on a course instance,
// in the fixed bucket order.
func (m MeetingTypeCodes) Normal() []string {
	return []string{
		m.Lecture, m.Discussion, m.Lab, m.Tutorial, m.Seminar, m.Studio,
		m.Film, m.Midterm, m.ProblemSession, m.ReviewSession, m.MakeUpSession,
	}
}

// Unsupported returns the codes whose rows poison the whole course instance.
func (m MeetingTypeCodes) Unsupported() []string {
	return []string{
		m.IndependentStudy, m.Practicum, m.Conference,
		m.ClinicalClerkship, m.Fieldwork,
	}
}

// Config carries all externally supplied settings. Populate it with
// Default() and optionally override from a YAML file with Load.
type Config struct {
	HomeURL             string `yaml:"home_url"`
	BuildingCodesURL    string `yaml:"building_codes_url"`
	RestrictionCodesURL string `yaml:"restriction_codes_url"`
	EvalSearchURL       string `yaml:"eval_search_url"`

	UserAgent     string        `yaml:"user_agent"`
	SocketTimeout time.Duration `yaml:"socket_timeout"`
	RetryDelay    time.Duration `yaml:"retry_delay"`

	// Schedule-of-classes search form contract.
	ScheduleLinkText      string `yaml:"schedule_link_text"`
	SearchFormName        string `yaml:"search_form_name"`
	TermSelectName        string `yaml:"term_select_name"`
	SubjectSelectName     string `yaml:"subject_select_name"`
	CourseNumCheckboxPart string `yaml:"coursenum_checkbox_part"`
	DaysCheckboxName      string `yaml:"days_checkbox_name"`
	ExcludeFullName       string `yaml:"exclude_full_name"`

	// Results-page marker strings.
	UnlimitedSeatsText  string `yaml:"unlimited_seats_text"`
	DataUnavailableText string `yaml:"data_unavailable_text"`
	CancelledText       string `yaml:"cancelled_text"`

	// Bookstore marker strings.
	NoBookListText   string `yaml:"no_book_list_text"`
	RequiredBookCode string `yaml:"required_book_code"`
	SoftReservesText string `yaml:"soft_reserves_text"`
	NoTextbookText   string `yaml:"no_textbook_text"`
	InStockText      string `yaml:"in_stock_text"`

	// Subjects that exist in the search form but cannot be crawled.
	SubjectBlacklist []string `yaml:"subject_blacklist"`

	MeetingTypes MeetingTypeCodes `yaml:"meeting_type_codes"`
}

// Default returns a Config populated with the values the scraper was last
// verified against.
func Default() *Config {
	return &Config{
		HomeURL:             "http://tritonlink.ucsd.edu/",
		BuildingCodesURL:    "http://www-act.ucsd.edu/cgi-bin/tritonlink.pl/1/student/academic/classrooms/buildingcodes.pl",
		RestrictionCodesURL: "http://www-act.ucsd.edu/cgi-bin/tritonlink.pl/1/student/academic/scheduleofclasses/restrictioncodes.pl",
		EvalSearchURL:       "http://www.cape.ucsd.edu/stats.html",

		UserAgent:     DefaultUserAgent,
		SocketTimeout: DefaultSocketTimeout,
		RetryDelay:    DefaultRetryDelay,

		ScheduleLinkText:      "Schedule of Classes",
		SearchFormName:        "SOCSrchBysubj",
		TermSelectName:        "selectedTerm",
		SubjectSelectName:     "selectedSubjects",
		CourseNumCheckboxPart: "xsoc_courseoption",
		DaysCheckboxName:      "xsoc_dayoption",
		ExcludeFullName:       "_xsoc_srch_fullsect",

		UnlimitedSeatsText:  "Unlim",
		DataUnavailableText: "Data not available",
		CancelledText:       "Cancelled",

		NoBookListText:   "course has not provided a book list",
		RequiredBookCode: "R",
		SoftReservesText: "A.S. SOFT RESERVES",
		NoTextbookText:   "None Required",
		InStockText:      "In Stock",

		SubjectBlacklist: []string{"CSP"},

		MeetingTypes: MeetingTypeCodes{
			Lecture:        "LE",
			Discussion:     "DI",
			Lab:            "LA",
			Tutorial:       "TU",
			Seminar:        "SE",
			Studio:         "ST",
			Film:           "FM",
			Final:          "FI",
			Midterm:        "MI",
			ProblemSession: "PB",
			ReviewSession:  "RE",
			MakeUpSession:  "MU",

			IndependentStudy:  "IN",
			Practicum:         "PR",
			Conference:        "CO",
			ClinicalClerkship: "CL",
			Fieldwork:         "FW",
		},
	}
}

// Load reads path as YAML and overlays it on the defaults. Fields absent from
// the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading site config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing site config %s: %w", path, err)
	}
	return cfg, nil
}
