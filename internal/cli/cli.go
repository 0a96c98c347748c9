package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tritonscrape/tritonscrape/internal/bookstore"
	"github.com/tritonscrape/tritonscrape/internal/browser"
	"github.com/tritonscrape/tritonscrape/internal/calendar"
	"github.com/tritonscrape/tritonscrape/internal/catalog"
	"github.com/tritonscrape/tritonscrape/internal/evals"
	"github.com/tritonscrape/tritonscrape/internal/export"
	"github.com/tritonscrape/tritonscrape/internal/fetch"
	"github.com/tritonscrape/tritonscrape/internal/logger"
	"github.com/tritonscrape/tritonscrape/internal/siteconfig"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig  string
	flagVerbose bool
	flagTimeout time.Duration
	flagFormat  string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tritonscrape",
		Short: "Scrape the schedule of classes and course evaluations",
		Long: `A CLI tool that crawls the university's schedule-of-classes search and
course-evaluation statistics pages into typed course data, optionally
exporting everything to a SQLite database.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML site config overriding the built-in defaults")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	cmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "Per-request socket timeout (default from config)")

	cmd.AddCommand(newTermsCmd(), newSubjectsCmd(), newScrapeCmd(), newBooksCmd(), newEvalsCmd())
	return cmd
}

// setup loads the site config and builds the logger shared by every
// subcommand.
func setup() (*siteconfig.Config, *slog.Logger, error) {
	cfg := siteconfig.Default()
	if flagConfig != "" {
		var err error
		if cfg, err = siteconfig.Load(flagConfig); err != nil {
			return nil, nil, err
		}
	}
	if flagTimeout > 0 {
		cfg.SocketTimeout = flagTimeout
	}

	return cfg, logger.New(os.Stderr, flagVerbose), nil
}

func newTermsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "List the academic terms the schedule search offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			b, err := browser.New(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("opening browsing session: %w", err)
			}
			terms, err := b.Terms(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing terms: %w", err)
			}
			return WriteTerms(os.Stdout, terms, OutputFormat(flagFormat))
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	return cmd
}

func newSubjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "List the academic subjects the schedule search offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			b, err := browser.New(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("opening browsing session: %w", err)
			}
			subjects, err := b.Subjects(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing subjects: %w", err)
			}
			return WriteSubjects(os.Stdout, subjects, OutputFormat(flagFormat))
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	return cmd
}

func newScrapeCmd() *cobra.Command {
	var (
		flagTerm      string
		flagSubject   string
		flagDB        string
		flagICS       string
		flagTermStart string
		flagWeeks     int
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Crawl course instances for a term",
		Long: `Crawl every course instance in one subject (or, without --subject, in
every subject) during the given term. Instances print to stdout; with
--db they are also written to a SQLite database, and with --ics the
term's schedule is written as an iCalendar file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var store *export.Store
			if flagDB != "" {
				if store, err = export.Open(ctx, flagDB); err != nil {
					return err
				}
				defer store.Close()
			}

			b, err := browser.New(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("opening browsing session: %w", err)
			}

			classes := b.AllClassesDuring(ctx, flagTerm)
			if flagSubject != "" {
				classes = b.ClassesFor(ctx, flagTerm, strings.ToUpper(flagSubject))
			}

			var forCalendar []*catalog.CourseInstance
			var count, failures int
			for inst, err := range classes {
				if err != nil {
					log.Error("crawl error", "error", err)
					failures++
					continue
				}
				fmt.Println(inst)
				count++
				if store != nil {
					if err := store.PutCourse(ctx, flagTerm, inst); err != nil {
						return err
					}
				}
				if flagICS != "" {
					forCalendar = append(forCalendar, inst)
				}
			}
			log.Info("crawl finished", "courses", count, "failures", failures)

			if flagICS != "" {
				termStart, err := time.Parse(time.DateOnly, flagTermStart)
				if err != nil {
					return fmt.Errorf("parsing --term-start: %w", err)
				}
				ics := calendar.Generate(flagTerm, termStart, flagWeeks, forCalendar)
				if err := os.WriteFile(flagICS, []byte(ics), 0o644); err != nil {
					return fmt.Errorf("writing calendar: %w", err)
				}
				log.Info("wrote calendar", "path", flagICS, "courses", len(forCalendar))
			}

			if failures > 0 {
				return fmt.Errorf("%d subjects failed to crawl", failures)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flagTerm, "term", "", "Term code to crawl (required; see 'terms')")
	cmd.Flags().StringVar(&flagSubject, "subject", "", "Subject code to crawl (default all subjects)")
	cmd.Flags().StringVar(&flagDB, "db", "", "SQLite database file to export into")
	cmd.Flags().StringVar(&flagICS, "ics", "", "iCalendar file to write the crawled schedule into")
	cmd.Flags().StringVar(&flagTermStart, "term-start", "", "First day of instruction, YYYY-MM-DD (required with --ics)")
	cmd.Flags().IntVar(&flagWeeks, "weeks", 10, "Length of the term in weeks, for --ics recurrences")
	cmd.MarkFlagRequired("term")
	cmd.MarkFlagsRequiredTogether("ics", "term-start")
	return cmd
}

func newBooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "books <bookstore-url>",
		Short: "Look up a section's textbook list at the campus bookstore",
		Long: `Fetch and print the bookstore's book list for one course section. The
URL comes from the schedule results; 'scrape --db' stores it per section.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			session, err := fetch.NewSession(cfg, log)
			if err != nil {
				return err
			}
			list, err := bookstore.Fetch(cmd.Context(), session, cfg, args[0])
			if err != nil {
				return fmt.Errorf("fetching book list: %w", err)
			}
			return WriteBookList(os.Stdout, list)
		},
	}
}

func newEvalsCmd() *cobra.Command {
	var (
		flagDepartment string
		flagDB         string
	)
	cmd := &cobra.Command{
		Use:   "evals",
		Short: "Scrape course-evaluation statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var store *export.Store
			if flagDB != "" {
				if store, err = export.Open(ctx, flagDB); err != nil {
					return err
				}
				defer store.Close()
			}

			session, err := fetch.NewSession(cfg, log)
			if err != nil {
				return err
			}
			client := evals.NewClient(session, cfg, log)

			departments, err := client.Departments(ctx)
			if err != nil {
				return fmt.Errorf("listing departments: %w", err)
			}
			if flagDepartment != "" {
				want := strings.ToUpper(flagDepartment)
				departments = filterDepartments(departments, want)
				if len(departments) == 0 {
					return fmt.Errorf("unknown department %q", want)
				}
			}

			var count int
			for _, dept := range departments {
				log.Info("scraping evaluations", "department", dept.Code)
				for eval, err := range client.EvaluationsFor(ctx, dept) {
					if err != nil {
						return err
					}
					fmt.Printf("%s %s with %s (%d/%d responded)\n",
						eval.TermCode, eval.CourseCode, eval.InstructorName,
						eval.Respondents, eval.Enrollment)
					count++
					if store != nil {
						if err := store.PutEvaluation(ctx, eval); err != nil {
							return err
						}
					}
				}
			}
			log.Info("evaluation scrape finished", "evaluations", count)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagDepartment, "department", "", "Department code to scrape (default all departments)")
	cmd.Flags().StringVar(&flagDB, "db", "", "SQLite database file to export into")
	return cmd
}

func filterDepartments(departments []evals.Department, code string) []evals.Department {
	var out []evals.Department
	for _, d := range departments {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
