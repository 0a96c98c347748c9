// Package export persists crawl results and evaluation statistics to a
// SQLite database file.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tritonscrape/tritonscrape/internal/catalog"
	"github.com/tritonscrape/tritonscrape/internal/evals"
)

const createCourseTable = `
CREATE TABLE IF NOT EXISTS Course (
	course_id         INTEGER PRIMARY KEY AUTOINCREMENT,
	term_code         TEXT NOT NULL,
	subject_code      TEXT NOT NULL,
	course_number     TEXT NOT NULL,
	name              TEXT NOT NULL,
	units             REAL,
	restrictions      TEXT NOT NULL,
	prerequisites_url TEXT NOT NULL,
	instructor        TEXT,
	final_date        TEXT,
	final_start       TEXT,
	final_end         TEXT,
	final_location    TEXT
)`

const createMeetingTable = `
CREATE TABLE IF NOT EXISTS Meeting (
	course_id       INTEGER NOT NULL REFERENCES Course(course_id),
	type_code       TEXT NOT NULL,
	section_id      INTEGER,
	section_number  TEXT,
	instructor      TEXT,
	days            TEXT,
	start_time      TEXT,
	end_time        TEXT,
	event_date      TEXT,
	location        TEXT,
	seats_available REAL,
	seats_total     REAL,
	bookstore_url   TEXT
)`

const createEvaluationTable = `
CREATE TABLE IF NOT EXISTS Evaluation (
	eval_id         INTEGER PRIMARY KEY AUTOINCREMENT,
	department_code TEXT NOT NULL,
	term_code       TEXT NOT NULL,
	course_code     TEXT NOT NULL,
	instructor      TEXT NOT NULL,
	team_taught     INTEGER NOT NULL,
	enrollment      INTEGER NOT NULL,
	respondents     INTEGER NOT NULL,
	freshman INTEGER, sophomore INTEGER, junior INTEGER, senior INTEGER,
	graduate INTEGER, extension INTEGER,
	major INTEGER, minor INTEGER, general_education INTEGER,
	elective INTEGER, interest INTEGER,
	grade_a INTEGER, grade_b INTEGER, grade_c INTEGER, grade_d INTEGER,
	grade_f INTEGER, grade_p INTEGER, grade_np INTEGER,
	hours_0_1 INTEGER, hours_2_3 INTEGER, hours_4_5 INTEGER,
	hours_6_7 INTEGER, hours_8_9 INTEGER, hours_10_11 INTEGER,
	hours_12_13 INTEGER, hours_14_15 INTEGER, hours_16_17 INTEGER,
	hours_18_19 INTEGER, hours_20_plus INTEGER,
	attend_rarely INTEGER, attend_some INTEGER, attend_most INTEGER,
	course_no INTEGER, course_yes INTEGER,
	instructor_no INTEGER, instructor_yes INTEGER
)`

const createAgreementTable = `
CREATE TABLE IF NOT EXISTS Agreement (
	eval_id         INTEGER NOT NULL REFERENCES Evaluation(eval_id),
	question        TEXT NOT NULL,
	not_applicable  INTEGER NOT NULL,
	strong_disagree INTEGER NOT NULL,
	disagree        INTEGER NOT NULL,
	neutral         INTEGER NOT NULL,
	agree           INTEGER NOT NULL,
	strong_agree    INTEGER NOT NULL,
	responses       INTEGER NOT NULL,
	mean            REAL,
	std_dev         REAL
)`

// Store is a SQLite-backed sink for course instances and evaluations.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database file at path and ensures the schema
// exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite supports one writer; keep the pool honest about that.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init(ctx context.Context) error {
	for _, stmt := range []string{
		createCourseTable, createMeetingTable,
		createEvaluationTable, createAgreementTable,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutCourse writes one course instance and all its meeting events.
func (s *Store) PutCourse(ctx context.Context, termCode string, inst *catalog.CourseInstance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var units sql.NullFloat64
	if !inst.VariableUnits() {
		units = sql.NullFloat64{Float64: inst.Units, Valid: true}
	}
	var instructor sql.NullString
	if inst.Instructor != nil && !inst.Instructor.TBA() {
		instructor = sql.NullString{String: inst.Instructor.String(), Valid: true}
	}
	var finalDate, finalStart, finalEnd, finalLocation sql.NullString
	if f := inst.Final; f != nil {
		finalDate = sql.NullString{String: f.Date.Format(time.DateOnly), Valid: true}
		finalStart = sql.NullString{String: f.Start.String(), Valid: true}
		finalEnd = sql.NullString{String: f.End.String(), Valid: true}
		finalLocation = sql.NullString{String: f.Location.String(), Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO Course (term_code, subject_code, course_number, name,
			units, restrictions, prerequisites_url, instructor,
			final_date, final_start, final_end, final_location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		termCode, inst.SubjectCode, inst.CourseNumber, inst.Name,
		units, strings.Join(inst.Restrictions, "; "), inst.PrerequisitesURL,
		instructor, finalDate, finalStart, finalEnd, finalLocation)
	if err != nil {
		return fmt.Errorf("inserting course %s: %w", inst.Code(), err)
	}
	courseID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, typed := range inst.AllEvents() {
		if err := insertMeeting(ctx, tx, courseID, typed); err != nil {
			return fmt.Errorf("inserting meeting for %s: %w", inst.Code(), err)
		}
	}
	return tx.Commit()
}

func insertMeeting(ctx context.Context, tx *sql.Tx, courseID int64, typed catalog.TypedEvent) error {
	var (
		sectionID              sql.NullInt64
		sectionNumber          sql.NullString
		instructor             sql.NullString
		days                   sql.NullString
		start, end             sql.NullString
		eventDate              sql.NullString
		location               sql.NullString
		seatsAvail, seatsTotal sql.NullFloat64
		bookstoreURL           sql.NullString
	)

	if inst := typed.Event.MeetingInstructor(); inst != nil && !inst.TBA() {
		instructor = sql.NullString{String: inst.String(), Valid: true}
	}

	switch m := typed.Event.(type) {
	case catalog.RecurringMeeting:
		sectionNumber = sql.NullString{String: m.SectionNumber, Valid: true}
		days = sql.NullString{String: m.Days.String(), Valid: true}
		start = sql.NullString{String: m.Start.String(), Valid: true}
		end = sql.NullString{String: m.End.String(), Valid: true}
		location = sql.NullString{String: m.Location.String(), Valid: true}
	case catalog.RecurringSeatedMeeting:
		sectionID = sql.NullInt64{Int64: int64(m.SectionID), Valid: true}
		sectionNumber = sql.NullString{String: m.SectionNumber, Valid: true}
		days = sql.NullString{String: m.Days.String(), Valid: true}
		start = sql.NullString{String: m.Start.String(), Valid: true}
		end = sql.NullString{String: m.End.String(), Valid: true}
		location = sql.NullString{String: m.Location.String(), Valid: true}
		seatsAvail, seatsTotal = seatingColumns(m.Seats)
		bookstoreURL = sql.NullString{String: m.BookstoreURL, Valid: m.BookstoreURL != ""}
	case catalog.SeatedMeeting:
		sectionID = sql.NullInt64{Int64: int64(m.SectionID), Valid: true}
		sectionNumber = sql.NullString{String: m.SectionNumber, Valid: true}
		seatsAvail, seatsTotal = seatingColumns(m.Seats)
		bookstoreURL = sql.NullString{String: m.BookstoreURL, Valid: m.BookstoreURL != ""}
	case catalog.OneShotMeeting:
		eventDate = sql.NullString{String: m.Date.Format(time.DateOnly), Valid: true}
		start = sql.NullString{String: m.Start.String(), Valid: true}
		end = sql.NullString{String: m.End.String(), Valid: true}
		location = sql.NullString{String: m.Location.String(), Valid: true}
	default:
		return fmt.Errorf("unhandled meeting kind %v", typed.Event.Kind())
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO Meeting (course_id, type_code, section_id, section_number,
			instructor, days, start_time, end_time, event_date, location,
			seats_available, seats_total, bookstore_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		courseID, typed.TypeCode, sectionID, sectionNumber, instructor,
		days, start, end, eventDate, location, seatsAvail, seatsTotal,
		bookstoreURL)
	return err
}

// seatingColumns maps unlimited seating to NULL counts, which SQLite can
// store where +Inf cannot round-trip.
func seatingColumns(seats catalog.Seating) (avail, total sql.NullFloat64) {
	if seats.UnlimitedSeating() {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: seats.Available, Valid: true},
		sql.NullFloat64{Float64: seats.Total, Valid: true}
}

// PutEvaluation writes one evaluation and its agreement-question rows.
func (s *Store) PutEvaluation(ctx context.Context, eval *evals.Evaluation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO Evaluation (department_code, term_code, course_code,
			instructor, team_taught, enrollment, respondents,
			freshman, sophomore, junior, senior, graduate, extension,
			major, minor, general_education, elective, interest,
			grade_a, grade_b, grade_c, grade_d, grade_f, grade_p, grade_np,
			hours_0_1, hours_2_3, hours_4_5, hours_6_7, hours_8_9,
			hours_10_11, hours_12_13, hours_14_15, hours_16_17,
			hours_18_19, hours_20_plus,
			attend_rarely, attend_some, attend_most,
			course_no, course_yes, instructor_no, instructor_yes)
		VALUES (?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?)`,
		eval.DepartmentCode, eval.TermCode, eval.CourseCode,
		eval.InstructorName, eval.TeamTaught, eval.Enrollment, eval.Respondents,
		eval.ClassLevels.Freshman, eval.ClassLevels.Sophomore,
		eval.ClassLevels.Junior, eval.ClassLevels.Senior,
		eval.ClassLevels.Graduate, eval.ClassLevels.Extension,
		eval.ReasonsForTaking.Major, eval.ReasonsForTaking.Minor,
		eval.ReasonsForTaking.GeneralEducation, eval.ReasonsForTaking.Elective,
		eval.ReasonsForTaking.Interest,
		eval.ExpectedGrades.A, eval.ExpectedGrades.B, eval.ExpectedGrades.C,
		eval.ExpectedGrades.D, eval.ExpectedGrades.F,
		eval.ExpectedGrades.Pass, eval.ExpectedGrades.NoPass,
		eval.StudyHours.ZeroToOne, eval.StudyHours.TwoToThree,
		eval.StudyHours.FourToFive, eval.StudyHours.SixToSeven,
		eval.StudyHours.EightToNine, eval.StudyHours.TenToEleven,
		eval.StudyHours.TwelveToThirteen, eval.StudyHours.FourteenToFifteen,
		eval.StudyHours.SixteenToSeventeen, eval.StudyHours.EighteenToNineteen,
		eval.StudyHours.TwentyPlus,
		eval.Attendance.Rarely, eval.Attendance.Some, eval.Attendance.Most,
		eval.RecommendCourse.No, eval.RecommendCourse.Yes,
		eval.RecommendInstructor.No, eval.RecommendInstructor.Yes)
	if err != nil {
		return fmt.Errorf("inserting evaluation %s %s: %w", eval.TermCode, eval.CourseCode, err)
	}
	evalID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, q := range eval.Agreement {
		var mean, stdDev sql.NullFloat64
		if q.Levels.Responses != 0 {
			mean = sql.NullFloat64{Float64: q.Levels.Mean, Valid: true}
			stdDev = sql.NullFloat64{Float64: q.Levels.StdDev, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO Agreement (eval_id, question, not_applicable,
				strong_disagree, disagree, neutral, agree, strong_agree,
				responses, mean, std_dev)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			evalID, q.Question, q.Levels.NotApplicable,
			q.Levels.StrongDisagree, q.Levels.Disagree, q.Levels.Neutral,
			q.Levels.Agree, q.Levels.StrongAgree, q.Levels.Responses,
			mean, stdDev); err != nil {
			return fmt.Errorf("inserting agreement row: %w", err)
		}
	}
	return tx.Commit()
}
