package evals

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tritonscrape/tritonscrape/internal/fetch"
	"github.com/tritonscrape/tritonscrape/internal/logger"
	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

func testClient(t *testing.T, evalSearchURL string) *Client {
	t.Helper()
	cfg := siteconfig.Default()
	cfg.EvalSearchURL = evalSearchURL
	log := logger.Discard()
	session, err := fetch.NewSession(cfg, log)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return NewClient(session, cfg, log)
}

// statCells renders one page cell per statistics value, in the flat document
// order the cursor consumes them.
func statCells(values []string) string {
	var b strings.Builder
	for _, v := range values {
		fmt.Fprintf(&b, `<td class="style3"><div align="center">%s</div></td>`+"\n", v)
	}
	return b.String()
}

func questionCells(texts []string) string {
	var b strings.Builder
	for _, text := range texts {
		fmt.Fprintf(&b, `<td colspan="2" class="style3">%s</td>`+"\n", text)
	}
	return b.String()
}

// detailPageValues lays out a full single-instructor statistics page: every
// question group zeroed except class levels, the first agreement question,
// study hours, and the two recommendations.
func detailPageValues() []string {
	var values []string
	group := func(vs ...string) { values = append(values, vs...) }
	zeroGroup := func(n int) {
		for i := 0; i < n; i++ {
			values = append(values, "0")
		}
		values = append(values, "0")
	}

	// Class levels: 1+2+3+4+5 respondents, so percentages follow.
	group("1", "2", "3", "4", "5", "0", "15", "7%", "13%", "20%", "27%", "33%", "0%")
	zeroGroup(5) // reasons for taking
	zeroGroup(7) // expected grades

	// First agreement question drew responses: mean, std dev, and five
	// percentages follow the counts.
	group("0", "0", "1", "2", "10", "32", "45", "4.56", "0.78", "0%", "2%", "4%", "22%", "71%")
	for i := 1; i < numAgreementQuestions; i++ {
		zeroGroup(numAgreementLevels)
	}

	// Five blank instructor-question blocks.
	for i := 0; i < numInstructorQuestions; i++ {
		for j := 0; j < blankInstructorQuestionFields; j++ {
			values = append(values, "0")
		}
	}

	// Study hours drew responses: the average weekly hours and eleven
	// percentages follow the counts.
	group("5", "10", "8", "7", "6", "4", "2", "1", "1", "0", "1", "45", "5.20",
		"11%", "22%", "18%", "16%", "13%", "9%", "4%", "2%", "2%", "0%", "2%")

	zeroGroup(3) // attendance

	group("1", "44", "45", "2%", "98%")  // recommend course
	group("0", "45", "45", "0%", "100%") // recommend instructor
	return values
}

func detailPageQuestions() []string {
	texts := []string{"Your class level is", "Reason for taking", "Expected grade"}
	for i := 1; i <= numAgreementQuestions; i++ {
		texts = append(texts, fmt.Sprintf("Agreement question %d", i))
	}
	for i := 1; i <= numInstructorQuestions; i++ {
		texts = append(texts, fmt.Sprintf("Instructor question %d", i))
	}
	return texts
}

func detailPageHTML() string {
	return `<html><body><table>
<tr>
<td width="110">CSE</td>
<td width="109"><div>SP11</div></td>
<td width="56">CSE 101</td>
</tr>
<tr><td colspan="2" height="15">Doe, Jane</td></tr>
<tr>
<td width="155">Enrollment: 120</td>
<td width="180">Evaluations Submitted: 45</td>
</tr>
<tr>` + questionCells(detailPageQuestions()) + `</tr>
<tr>` + statCells(detailPageValues()) + `</tr>
</table></body></html>`
}

func evalSite(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/stats.html", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body>
<form name="searchQuery" method="GET" action="results.html">
<select name="courseSelect">
<option value="">Choose a department</option>
<option value="CSE,a">CSE - Computer Science</option>
<option value="COGS,b">COGS - Cognitive Science</option>
</select>
</form>
</body></html>`)
	})
	mux.HandleFunc("/results.html", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("courseSelect") != "CSE,a" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `<html><body>
<a target="_new" href="/detail1.html">CSE 101</a>
<a target="_new" href="empty.html">CSE 105</a>
</body></html>`)
	})
	mux.HandleFunc("/detail1.html", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, detailPageHTML())
	})
	mux.HandleFunc("/empty.html", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body>No statistics found for this section.</body></html>")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return testClient(t, srv.URL+"/stats.html")
}

func TestParseStudyHours(t *testing.T) {
	toCursor := func(t *testing.T, raw []string) *cursor {
		t.Helper()
		var values []statValue
		for _, s := range raw {
			v, err := parseStat(s)
			if err != nil {
				t.Fatalf("parseStat(%q) failed: %v", s, err)
			}
			values = append(values, v)
		}
		return &cursor{values: values}
	}

	t.Run("with responses", func(t *testing.T) {
		// Eleven counts, the total, the average weekly hours, and eleven
		// percentages.
		cur := toCursor(t, []string{
			"5", "10", "8", "7", "6", "4", "2", "1", "1", "0", "1", "45", "5.20",
			"11%", "22%", "18%", "16%", "13%", "9%", "4%", "2%", "2%", "0%", "2%",
		})
		hours, err := parseStudyHours(cur)
		if err != nil {
			t.Fatalf("parseStudyHours failed: %v", err)
		}
		if hours.ZeroToOne != 5 || hours.TwoToThree != 10 || hours.TwentyPlus != 1 {
			t.Errorf("study hours = %+v", hours)
		}
		if cur.remaining() != 0 {
			t.Errorf("%d values left unconsumed", cur.remaining())
		}
	})

	t.Run("no responses", func(t *testing.T) {
		// A zero total means the page omits the average and the percentages.
		cur := toCursor(t, []string{
			"0", "0", "0", "0", "0", "0", "0", "0", "0", "0", "0", "0",
		})
		hours, err := parseStudyHours(cur)
		if err != nil {
			t.Fatalf("parseStudyHours failed: %v", err)
		}
		if hours != (StudyHours{}) {
			t.Errorf("study hours = %+v, want all zero", hours)
		}
		if cur.remaining() != 0 {
			t.Errorf("%d values left unconsumed", cur.remaining())
		}
	})
}

func TestDepartments(t *testing.T) {
	c := evalSite(t)

	departments, err := c.Departments(context.Background())
	if err != nil {
		t.Fatalf("Departments failed: %v", err)
	}
	if len(departments) != 2 {
		t.Fatalf("got %d departments, want 2", len(departments))
	}
	if departments[0].Code != "CSE" || departments[0].Name != "Computer Science" {
		t.Errorf("departments[0] = %+v", departments[0])
	}
	if departments[0].FormValue != "CSE,a" {
		t.Errorf("form value = %q", departments[0].FormValue)
	}
}

func TestEvaluationsFor(t *testing.T) {
	c := evalSite(t)

	var evaluations []*Evaluation
	dept := Department{Code: "CSE", Name: "Computer Science", FormValue: "CSE,a"}
	for eval, err := range c.EvaluationsFor(context.Background(), dept) {
		if err != nil {
			t.Fatalf("evaluation error: %v", err)
		}
		evaluations = append(evaluations, eval)
	}

	// The second section's page has no statistics and is skipped.
	if len(evaluations) != 1 {
		t.Fatalf("got %d evaluations, want 1", len(evaluations))
	}
	eval := evaluations[0]

	if eval.DepartmentCode != "CSE" || eval.TermCode != "SP11" || eval.CourseCode != "CSE 101" {
		t.Errorf("header = %s/%s/%s", eval.DepartmentCode, eval.TermCode, eval.CourseCode)
	}
	if eval.InstructorName != "Doe, Jane" {
		t.Errorf("instructor = %q", eval.InstructorName)
	}
	if eval.TeamTaught {
		t.Error("single-instructor page flagged team-taught")
	}
	if eval.Enrollment != 120 || eval.Respondents != 45 {
		t.Errorf("enrollment/respondents = %d/%d", eval.Enrollment, eval.Respondents)
	}

	want := ClassLevels{Freshman: 1, Sophomore: 2, Junior: 3, Senior: 4, Graduate: 5}
	if eval.ClassLevels != want {
		t.Errorf("class levels = %+v", eval.ClassLevels)
	}

	if len(eval.Agreement) != numAgreementQuestions {
		t.Fatalf("got %d agreement questions, want %d", len(eval.Agreement), numAgreementQuestions)
	}
	first := eval.Agreement[0]
	if first.Question != "Agreement question 1" {
		t.Errorf("first question text = %q", first.Question)
	}
	if first.Levels.StrongAgree != 32 || first.Levels.Responses != 45 {
		t.Errorf("first question levels = %+v", first.Levels)
	}
	if first.Levels.Mean != 4.56 || first.Levels.StdDev != 0.78 {
		t.Errorf("first question stats = %v/%v", first.Levels.Mean, first.Levels.StdDev)
	}
	blank := eval.Agreement[1]
	if blank.Levels.Responses != 0 || blank.Levels.Mean != 0 {
		t.Errorf("unanswered question levels = %+v", blank.Levels)
	}

	wantHours := StudyHours{
		ZeroToOne: 5, TwoToThree: 10, FourToFive: 8, SixToSeven: 7,
		EightToNine: 6, TenToEleven: 4, TwelveToThirteen: 2,
		FourteenToFifteen: 1, SixteenToSeventeen: 1, TwentyPlus: 1,
	}
	if eval.StudyHours != wantHours {
		t.Errorf("study hours = %+v", eval.StudyHours)
	}

	if eval.RecommendCourse != (Recommend{No: 1, Yes: 44}) {
		t.Errorf("course recommendation = %+v", eval.RecommendCourse)
	}
	if eval.RecommendInstructor != (Recommend{No: 0, Yes: 45}) {
		t.Errorf("instructor recommendation = %+v", eval.RecommendInstructor)
	}
}
