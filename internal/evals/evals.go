// Package evals scrapes the course-and-professor evaluation statistics site.
//
// The statistics pages carry no per-number markup: every figure on a page
// sits in an identically styled cell, and meaning comes entirely from
// position. Parsing therefore runs a cursor over the flat run of numbers,
// with each question group consuming a fixed count of values. Leftover
// values after the last group mean the layout changed and the parse is
// untrustworthy, so that is a hard error.
package evals

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tritonscrape/tritonscrape/internal/fetch"
	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

const (
	numAgreementLevels    = 6
	numAgreementQuestions = 16
	// Team-taught courses ask only the first six agreement questions and
	// skip the instructor recommendation.
	numTeamTaughtAgreementQuestions = 6

	numStudyHourBuckets = 11

	numInstructorQuestions = 5
	// An instructor question with responses spans 15 values; one with no
	// responses spans 7. The value at offset 9 is a percentage in the full
	// layout and a count in the blank one.
	fullInstructorQuestionFields  = 15
	blankInstructorQuestionFields = 7
	instructorPercentageOffset    = 9

	// Question texts preceding the agreement block: class level, reason
	// for taking, expected grade, and expected GPA.
	numPreAgreementQuestions = 4
)

// ClassLevels counts respondents by academic standing.
type ClassLevels struct {
	Freshman  int
	Sophomore int
	Junior    int
	Senior    int
	Graduate  int
	Extension int
}

// ReasonsForTaking counts respondents by their reason for enrolling.
type ReasonsForTaking struct {
	Major            int
	Minor            int
	GeneralEducation int
	Elective         int
	Interest         int
}

// ExpectedGrades counts respondents by the grade they expect to receive.
type ExpectedGrades struct {
	A      int
	B      int
	C      int
	D      int
	F      int
	Pass   int
	NoPass int
}

// StudyHours counts respondents by weekly hours spent studying, in
// two-hour buckets.
type StudyHours struct {
	ZeroToOne          int
	TwoToThree         int
	FourToFive         int
	SixToSeven         int
	EightToNine        int
	TenToEleven        int
	TwelveToThirteen   int
	FourteenToFifteen  int
	SixteenToSeventeen int
	EighteenToNineteen int
	TwentyPlus         int
}

// Attendance counts respondents by how often they attended class.
type Attendance struct {
	Rarely int
	Some   int
	Most   int
}

// Recommend counts yes/no answers to a recommendation question.
type Recommend struct {
	No  int
	Yes int
}

// AgreementLevels is one agree/disagree question's response distribution.
// Mean and StdDev are only meaningful when Responses is nonzero.
type AgreementLevels struct {
	NotApplicable  int
	StrongDisagree int
	Disagree       int
	Neutral        int
	Agree          int
	StrongAgree    int
	Responses      int
	Mean           float64
	StdDev         float64
}

// AgreementQuestion pairs a question's text with its response distribution.
type AgreementQuestion struct {
	Question string
	Levels   AgreementLevels
}

// Evaluation is the full parsed statistics page for one course section.
type Evaluation struct {
	DepartmentCode string
	TermCode       string
	CourseCode     string
	// InstructorName is empty when the page lists none; team-taught
	// courses separate names with semicolons.
	InstructorName string
	TeamTaught     bool

	Enrollment  int
	Respondents int

	ClassLevels      ClassLevels
	ReasonsForTaking ReasonsForTaking
	ExpectedGrades   ExpectedGrades
	Agreement        []AgreementQuestion
	StudyHours       StudyHours
	Attendance       Attendance
	RecommendCourse  Recommend
	// RecommendInstructor is zero for team-taught courses, which are not
	// asked the question.
	RecommendInstructor Recommend
}

// Client browses the evaluation site within one fetch session.
type Client struct {
	session *fetch.Session
	cfg     *siteconfig.Config
	log     *slog.Logger
}

// NewClient wraps an existing session for evaluation browsing.
func NewClient(session *fetch.Session, cfg *siteconfig.Config, log *slog.Logger) *Client {
	return &Client{session: session, cfg: cfg, log: log}
}

// Department is one entry in the evaluation site's department search form.
type Department struct {
	Code string
	Name string
	// FormValue is the option value the search form submits.
	FormValue string
}

// Departments lists the departments the evaluation search form offers.
// Option text reads "CODE - Department Name".
func (c *Client) Departments(ctx context.Context) ([]Department, error) {
	_, selectTag, err := c.searchForm(ctx)
	if err != nil {
		return nil, err
	}

	var departments []Department
	selectTag.Find("option").Each(func(_ int, opt *goquery.Selection) {
		value := opt.AttrOr("value", "")
		if value == "" {
			return
		}
		code, name, ok := strings.Cut(opt.Text(), " - ")
		if !ok {
			return
		}
		departments = append(departments, Department{
			Code:      strings.TrimSpace(code),
			Name:      strings.TrimSpace(name),
			FormValue: value,
		})
	})
	return departments, nil
}

// EvaluationsFor lazily yields every evaluation in one department's search
// results. Sections whose statistics page is empty are skipped.
func (c *Client) EvaluationsFor(ctx context.Context, dept Department) iter.Seq2[*Evaluation, error] {
	return func(yield func(*Evaluation, error) bool) {
		listing, listingURL, err := c.departmentListing(ctx, dept)
		if err != nil {
			yield(nil, err)
			return
		}
		base, err := url.Parse(listingURL)
		if err != nil {
			yield(nil, fmt.Errorf("parsing listing URL %q: %w", listingURL, err))
			return
		}

		// Section links are relative to the listing page.
		var links []string
		listing.Find("a[target='_new']").Each(func(_ int, a *goquery.Selection) {
			href := a.AttrOr("href", "")
			if href == "" {
				return
			}
			ref, err := url.Parse(href)
			if err != nil {
				c.log.Info("ignoring unparseable section link", "href", href)
				return
			}
			links = append(links, base.ResolveReference(ref).String())
		})

		for _, link := range links {
			eval, err := c.parseDetailPage(ctx, link)
			if err != nil {
				if !yield(nil, fmt.Errorf("evaluation %s: %w", link, err)) {
					return
				}
				continue
			}
			if eval == nil {
				c.log.Debug("section has no statistics", "url", link)
				continue
			}
			if !yield(eval, nil) {
				return
			}
		}
	}
}

func (c *Client) searchForm(ctx context.Context) (*goquery.Selection, *goquery.Selection, error) {
	doc, _, err := c.session.Fetch(ctx, c.cfg.EvalSearchURL, nil, false)
	if err != nil {
		return nil, nil, err
	}
	form := doc.Find("form[name='searchQuery']").First()
	if form.Length() == 0 {
		return nil, nil, fmt.Errorf("evaluation search form not found on %s", c.cfg.EvalSearchURL)
	}
	selectTag := form.Find("select").First()
	if selectTag.Length() == 0 {
		return nil, nil, fmt.Errorf("evaluation search form has no department selector")
	}
	return form, selectTag, nil
}

// departmentListing submits the department search and returns the result
// page along with its final URL. The form declares GET, so the query is
// carried in the URL.
func (c *Client) departmentListing(ctx context.Context, dept Department) (*goquery.Document, string, error) {
	form, selectTag, err := c.searchForm(ctx)
	if err != nil {
		return nil, "", err
	}

	fieldName := selectTag.AttrOr("name", "")
	if fieldName == "" {
		return nil, "", fmt.Errorf("evaluation department selector has no name")
	}
	base, err := url.Parse(c.cfg.EvalSearchURL)
	if err != nil {
		return nil, "", err
	}
	action, err := url.Parse(form.AttrOr("action", ""))
	if err != nil {
		return nil, "", fmt.Errorf("parsing search form action: %w", err)
	}
	dest := base.ResolveReference(action)
	dest.RawQuery = url.Values{fieldName: {dept.FormValue}}.Encode()

	return c.session.Fetch(ctx, dest.String(), nil, false)
}

// parseDetailPage parses one section's statistics page. A nil, nil return
// means the page reports no statistics for the section.
func (c *Client) parseDetailPage(ctx context.Context, pageURL string) (*Evaluation, error) {
	doc, _, err := c.session.Fetch(ctx, pageURL, nil, false)
	if err != nil {
		return nil, err
	}
	if strings.Contains(doc.Find("body").Text(), "No statistics found") {
		return nil, nil
	}

	eval := &Evaluation{
		DepartmentCode: strings.TrimSpace(doc.Find("td[width='110']").First().Text()),
		TermCode:       strings.TrimSpace(doc.Find("td[width='109'] div").First().Text()),
		CourseCode:     strings.TrimSpace(doc.Find("td[width='56']").First().Text()),
		InstructorName: strings.TrimSpace(doc.Find("td[colspan='2'][height='15']").First().Text()),
		TeamTaught:     doc.Find("td[colspan='9']").FilterFunction(func(_ int, td *goquery.Selection) bool {
			return strings.TrimSpace(td.Text()) == "Team Taught"
		}).Length() > 0,
	}

	if eval.Enrollment, err = labeledCount(doc, "td[width='155']"); err != nil {
		return nil, fmt.Errorf("enrollment: %w", err)
	}
	if eval.Respondents, err = labeledCount(doc, "td[width='180']"); err != nil {
		return nil, fmt.Errorf("respondents: %w", err)
	}

	cur, err := pageNumbers(doc)
	if err != nil {
		return nil, err
	}
	if err := c.parseStatistics(eval, doc, cur); err != nil {
		return nil, fmt.Errorf("%s %s: %w", eval.TermCode, eval.CourseCode, err)
	}
	if left := cur.remaining(); left != 0 {
		return nil, fmt.Errorf("%s %s: %d unconsumed statistics, page layout changed", eval.TermCode, eval.CourseCode, left)
	}
	return eval, nil
}

// parseStatistics consumes the page's number run group by group, in the
// fixed order the page lays them out.
func (c *Client) parseStatistics(eval *Evaluation, doc *goquery.Document, cur *cursor) error {
	levels, err := countGroup(cur, 6)
	if err != nil {
		return fmt.Errorf("class levels: %w", err)
	}
	eval.ClassLevels = ClassLevels{levels[0], levels[1], levels[2], levels[3], levels[4], levels[5]}

	reasons, err := countGroup(cur, 5)
	if err != nil {
		return fmt.Errorf("reasons for taking: %w", err)
	}
	eval.ReasonsForTaking = ReasonsForTaking{reasons[0], reasons[1], reasons[2], reasons[3], reasons[4]}

	grades, err := countGroup(cur, 7)
	if err != nil {
		return fmt.Errorf("expected grades: %w", err)
	}
	eval.ExpectedGrades = ExpectedGrades{grades[0], grades[1], grades[2], grades[3], grades[4], grades[5], grades[6]}

	numAgreement := numAgreementQuestions
	if eval.TeamTaught {
		numAgreement = numTeamTaughtAgreementQuestions
	}
	questions := agreementQuestionTexts(doc, numAgreement)
	for i := 0; i < numAgreement; i++ {
		question := ""
		if i < len(questions) {
			question = questions[i]
		}
		levels, err := parseAgreement(cur)
		if err != nil {
			return fmt.Errorf("agreement question %d: %w", i+1, err)
		}
		eval.Agreement = append(eval.Agreement, AgreementQuestion{Question: question, Levels: levels})
	}

	if err := skipInstructorQuestions(cur); err != nil {
		return fmt.Errorf("instructor questions: %w", err)
	}

	if eval.StudyHours, err = parseStudyHours(cur); err != nil {
		return fmt.Errorf("study hours: %w", err)
	}

	attendance, err := countGroup(cur, 3)
	if err != nil {
		return fmt.Errorf("attendance: %w", err)
	}
	eval.Attendance = Attendance{attendance[0], attendance[1], attendance[2]}

	if eval.RecommendCourse, err = parseRecommend(cur); err != nil {
		return fmt.Errorf("course recommendation: %w", err)
	}
	if !eval.TeamTaught {
		if eval.RecommendInstructor, err = parseRecommend(cur); err != nil {
			return fmt.Errorf("instructor recommendation: %w", err)
		}
	}
	return nil
}

// countGroup reads one simple question group: n response counts, a total,
// and, only when the total is nonzero, n percentages the page otherwise
// omits.
func countGroup(cur *cursor, n int) ([]int, error) {
	values, err := cur.take(n)
	if err != nil {
		return nil, err
	}
	total, err := cur.takeOne()
	if err != nil {
		return nil, err
	}
	if total.Value != 0 {
		if _, err := cur.take(n); err != nil {
			return nil, err
		}
	}
	return counts(values), nil
}

// parseStudyHours reads the weekly-study-hours question: eleven bucket
// counts, a total, and, when the total is nonzero, the average weekly hours
// and eleven percentages.
func parseStudyHours(cur *cursor) (StudyHours, error) {
	values, err := cur.take(numStudyHourBuckets)
	if err != nil {
		return StudyHours{}, err
	}
	total, err := cur.takeOne()
	if err != nil {
		return StudyHours{}, err
	}
	if total.Value != 0 {
		if _, err := cur.takeOne(); err != nil {
			return StudyHours{}, err
		}
		if _, err := cur.take(numStudyHourBuckets); err != nil {
			return StudyHours{}, err
		}
	}
	hours := counts(values)
	return StudyHours{
		hours[0], hours[1], hours[2], hours[3], hours[4], hours[5],
		hours[6], hours[7], hours[8], hours[9], hours[10],
	}, nil
}

// parseAgreement reads one agree/disagree question: six response counts, a
// total, and, when the total is nonzero, a mean, a standard deviation, and
// five percentages (N/A gets no percentage).
func parseAgreement(cur *cursor) (AgreementLevels, error) {
	values, err := cur.take(numAgreementLevels)
	if err != nil {
		return AgreementLevels{}, err
	}
	responses, err := cur.takeOne()
	if err != nil {
		return AgreementLevels{}, err
	}

	levels := AgreementLevels{
		NotApplicable:  int(values[0].Value),
		StrongDisagree: int(values[1].Value),
		Disagree:       int(values[2].Value),
		Neutral:        int(values[3].Value),
		Agree:          int(values[4].Value),
		StrongAgree:    int(values[5].Value),
		Responses:      int(responses.Value),
	}
	if levels.Responses != 0 {
		stats, err := cur.take(2)
		if err != nil {
			return AgreementLevels{}, err
		}
		levels.Mean, levels.StdDev = stats[0].Value, stats[1].Value
		if _, err := cur.take(numAgreementLevels - 1); err != nil {
			return AgreementLevels{}, err
		}
	}
	return levels, nil
}

func parseRecommend(cur *cursor) (Recommend, error) {
	values, err := cur.take(2)
	if err != nil {
		return Recommend{}, err
	}
	if _, err := cur.takeOne(); err != nil {
		return Recommend{}, err
	}
	if _, err := cur.take(2); err != nil {
		return Recommend{}, err
	}
	return Recommend{No: int(values[0].Value), Yes: int(values[1].Value)}, nil
}

// skipInstructorQuestions discards the per-instructor question blocks, whose
// width depends on whether the question drew any responses.
func skipInstructorQuestions(cur *cursor) error {
	for i := 0; i < numInstructorQuestions; i++ {
		fields := blankInstructorQuestionFields
		probe, err := cur.peek(instructorPercentageOffset)
		if err == nil && probe.Decimal {
			fields = fullInstructorQuestionFields
		}
		if _, err := cur.take(fields); err != nil {
			return err
		}
	}
	return nil
}

// labeledCount parses a cell like "Enrollment: 120".
func labeledCount(doc *goquery.Document, selector string) (int, error) {
	text := strings.TrimSpace(doc.Find(selector).First().Text())
	_, after, ok := strings.Cut(text, ": ")
	if !ok {
		return 0, fmt.Errorf("no labeled count in %q", text)
	}
	n, err := strconv.Atoi(strings.TrimSpace(after))
	if err != nil {
		return 0, fmt.Errorf("unparseable count in %q", text)
	}
	return n, nil
}

// pageNumbers collects every statistics figure on the page, in document
// order, into a cursor.
func pageNumbers(doc *goquery.Document) (*cursor, error) {
	var (
		values   []statValue
		parseErr error
	)
	doc.Find("td.style3 div[align='center']").Each(func(_ int, div *goquery.Selection) {
		text := strings.TrimSpace(div.Text())
		if text == "" || parseErr != nil {
			return
		}
		v, err := parseStat(text)
		if err != nil {
			parseErr = err
			return
		}
		values = append(values, v)
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return &cursor{values: values}, nil
}

// agreementQuestionTexts pulls the agree/disagree question texts off the
// page. The question column also holds the class-level, reason, grade, and
// GPA prompts before the agreement block and the five instructor prompts
// after it, which are sliced away.
func agreementQuestionTexts(doc *goquery.Document, numAgreement int) []string {
	var texts []string
	doc.Find("td[colspan='2'].style3").Each(func(_ int, td *goquery.Selection) {
		if text := strings.TrimSpace(td.Text()); text != "" {
			texts = append(texts, text)
		}
	})
	if len(texts) <= numPreAgreementQuestions-1+numInstructorQuestions {
		return nil
	}
	texts = texts[numPreAgreementQuestions-1 : len(texts)-numInstructorQuestions]
	if len(texts) > numAgreement {
		texts = texts[len(texts)-numAgreement:]
	}
	return texts
}
