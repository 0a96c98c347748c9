package export

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tritonscrape/tritonscrape/internal/campus"
	"github.com/tritonscrape/tritonscrape/internal/catalog"
	"github.com/tritonscrape/tritonscrape/internal/evals"
	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "scrape.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrape.db")
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening an existing file must not trip over the existing schema.
	store, err = Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestPutCourse(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	codes := siteconfig.Default().MeetingTypes
	inst := catalog.NewCourseInstance(codes, "CSE", "101",
		"Design and Analysis of Algorithms", 4,
		[]string{"Department approval required"})

	doe, err := catalog.ParseInstructor("Doe, Jane", "")
	require.NoError(t, err)
	days, err := catalog.ParseDays("MWF")
	require.NoError(t, err)

	require.NoError(t, inst.AddEvent(codes.Lecture, catalog.RecurringMeeting{
		SectionNumber: "A00",
		Instructor:    &doe,
		Start:         catalog.TimeOfDay{Hour: 10},
		End:           catalog.TimeOfDay{Hour: 10, Minute: 50},
		Days:          days,
		Location:      campus.Location{Kind: campus.LocationTBA},
	}))
	require.NoError(t, inst.AddEvent(codes.Discussion, catalog.RecurringSeatedMeeting{
		SectionID:     712345,
		SectionNumber: "A01",
		Start:         catalog.TimeOfDay{Hour: 16},
		End:           catalog.TimeOfDay{Hour: 16, Minute: 50},
		Days:          days,
		Location:      campus.Location{Kind: campus.LocationTBA},
		Seats:         catalog.Seating{Available: 12, Total: 25},
		BookstoreURL:  "https://bookstore.example.edu/books?section=712345",
	}))
	require.NoError(t, inst.AddEvent(codes.Seminar, catalog.SeatedMeeting{
		SectionID: 712400,
		Seats:     catalog.Seating{Available: catalog.Unlimited, Total: catalog.Unlimited},
	}))
	inst.Final = &catalog.OneShotMeeting{
		Date:     time.Date(2011, 3, 19, 0, 0, 0, 0, time.UTC),
		Start:    catalog.TimeOfDay{Hour: 8},
		End:      catalog.TimeOfDay{Hour: 10, Minute: 59},
		Location: campus.Location{Kind: campus.LocationTBA},
	}

	require.NoError(t, store.PutCourse(ctx, "SP11", inst))

	var (
		name, finalDate string
		units           sql.NullFloat64
		instructor      sql.NullString
	)
	row := store.db.QueryRowContext(ctx,
		`SELECT name, units, instructor, final_date FROM Course WHERE subject_code = ? AND course_number = ?`,
		"CSE", "101")
	require.NoError(t, row.Scan(&name, &units, &instructor, &finalDate))
	assert.Equal(t, "Design and Analysis of Algorithms", name)
	assert.Equal(t, sql.NullFloat64{Float64: 4, Valid: true}, units)
	assert.Equal(t, "Jane Doe", instructor.String)
	assert.Equal(t, "2011-03-19", finalDate)

	var meetings int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM Meeting`).Scan(&meetings))
	assert.Equal(t, 3, meetings)

	// Unlimited seating cannot round-trip as +Inf, so it lands as NULL.
	var seats sql.NullFloat64
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT seats_total FROM Meeting WHERE section_id = ?`, 712400).Scan(&seats))
	assert.False(t, seats.Valid)

	var bookstoreURL string
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT bookstore_url FROM Meeting WHERE section_id = ?`, 712345).Scan(&bookstoreURL))
	assert.Equal(t, "https://bookstore.example.edu/books?section=712345", bookstoreURL)
}

func TestPutCourseVariableUnits(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	codes := siteconfig.Default().MeetingTypes
	inst := catalog.NewCourseInstance(codes, "CSE", "199",
		"Independent Study", catalog.VariableUnits, nil)
	require.NoError(t, inst.AddEvent(codes.Seminar, catalog.SeatedMeeting{
		SectionID: 712500,
		Seats:     catalog.Seating{Available: 5, Total: 10},
	}))

	require.NoError(t, store.PutCourse(ctx, "SP11", inst))

	var units sql.NullFloat64
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT units FROM Course WHERE course_number = ?`, "199").Scan(&units))
	assert.False(t, units.Valid, "variable units must store as NULL")
}

func TestPutEvaluation(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	eval := &evals.Evaluation{
		DepartmentCode: "CSE",
		TermCode:       "SP11",
		CourseCode:     "CSE 101",
		InstructorName: "Doe, Jane",
		Enrollment:     120,
		Respondents:    45,
		Agreement: []evals.AgreementQuestion{
			{
				Question: "Instructor displays proficiency in the course material",
				Levels: evals.AgreementLevels{
					Agree: 20, StrongAgree: 25, Responses: 45,
					Mean: 4.56, StdDev: 0.5,
				},
			},
			{
				Question: "Exams represent the course material",
				Levels:   evals.AgreementLevels{},
			},
		},
	}

	require.NoError(t, store.PutEvaluation(ctx, eval))

	var respondents int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT respondents FROM Evaluation WHERE course_code = ?`, "CSE 101").
		Scan(&respondents))
	assert.Equal(t, 45, respondents)

	var mean sql.NullFloat64
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT mean FROM Agreement WHERE question LIKE 'Instructor%'`).Scan(&mean))
	assert.Equal(t, sql.NullFloat64{Float64: 4.56, Valid: true}, mean)

	// A question nobody answered has no meaningful mean.
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT mean FROM Agreement WHERE question LIKE 'Exams%'`).Scan(&mean))
	assert.False(t, mean.Valid)
}
