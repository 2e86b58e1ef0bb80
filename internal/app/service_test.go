package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/okian/racearchive/internal/adapters/ledger"
	"github.com/okian/racearchive/internal/adapters/repository"
	service "github.com/okian/racearchive/internal/app"
	"github.com/okian/racearchive/internal/domain/model"
	"github.com/okian/racearchive/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

const history2023 = `[
  {"Position": 1, "Name": "Jonathan Smith", "Category": "M40", "Club": "Omagh Harriers", "Chip Time": "0:25:00", "runner_id": "jonathan-smith"},
  {"Position": 2, "Name": "Mary Byrne", "Category": "F35", "Chip Time": "0:23:00", "runner_id": "mary-byrne"}
]`

const results2024 = `[
  {"Position": 1, "Name": "Jonathan Smyth", "Category": "M40", "Chip Time": "0:25:30"},
  {"Position": 5, "Name": "Sean Murphy", "Category": "M35", "Chip Time": "0:26:00"},
  {"Position": 8, "Name": "Mary Byrne", "Category": "F35", "Chip Time": "0:40:00"},
  {"Position": 12, "Name": "Shaun Murphy", "Category": "M35", "Chip Time": "0:27:00"},
  {"Position": 20, "Name": "Declan Reilly", "Category": "M50", "Chip Time": "0:31:00"}
]`

type archive struct {
	dir    string
	store  *repository.FileStore
	ledger *ledger.Ledger
	svc    *service.Service
}

func newArchive(t *testing.T) *archive {
	t.Helper()
	dir := t.TempDir()
	writeResult(t, dir, 2023, history2023)
	writeResult(t, dir, 2024, results2024)
	a := &archive{
		dir:    dir,
		store:  repository.NewFileStore(dir),
		ledger: ledger.New(filepath.Join(dir, "disambiguation")),
	}
	a.svc = service.New(service.WithStore(a.store), service.WithLedger(a.ledger))
	return a
}

func writeResult(t *testing.T, dir string, year int, body string) {
	t.Helper()
	path := filepath.Join(dir, "results", strconv.Itoa(year)+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestService_Match(t *testing.T) {
	ctx := context.Background()

	Convey("Given an archive with a resolved 2023 and a new 2024", t, func() {
		a := newArchive(t)

		Convey("When matching 2024", func() {
			out, err := a.svc.Match(ctx, 2024)
			So(err, ShouldBeNil)

			Convey("Then the summary accounts for every entry", func() {
				sum := out.Report.Summary
				So(sum.TotalNewResults, ShouldEqual, 5)
				So(sum.AutoAssigned, ShouldEqual, 1)
				So(sum.NewRunners, ShouldEqual, 1)
				So(sum.UncertainMatches, ShouldEqual, 1)
				So(sum.DuplicatePairs, ShouldEqual, 1)
				So(sum.Pending, ShouldEqual, 3)
			})

			Convey("Then the year file and warnings are rewritten", func() {
				entries, err := a.store.LoadYear(ctx, 2024)
				So(err, ShouldBeNil)
				So(entries[0].RunnerID, ShouldEqual, "jonathan-smith")
				So(entries[4].RunnerID, ShouldEqual, "declan-reilly")

				report, err := a.svc.Pending(ctx, 2024)
				So(err, ShouldBeNil)
				So(report.UncertainMatches[0].SuggestedID, ShouldEqual, "mary-byrne")
				So(report.DuplicatesInNewYear[0].Positions, ShouldResemble, [2]int{5, 12})
			})

			Convey("Then prior years are left untouched", func() {
				data, err := os.ReadFile(filepath.Join(a.dir, "results", "2023.json"))
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, history2023)
			})

			Convey("Then matching again changes nothing", func() {
				before, _ := os.ReadFile(a.store.YearPath(2024))
				_, err := a.svc.Match(ctx, 2024)
				So(err, ShouldBeNil)
				after, _ := os.ReadFile(a.store.YearPath(2024))
				So(string(after), ShouldEqual, string(before))
			})
		})

		Convey("When the year has no file", func() {
			_, err := a.svc.Match(ctx, 2030)
			So(errors.Is(err, repository.ErrNotFound) || errors.Is(err, service.ErrNoResults), ShouldBeTrue)
		})

		Convey("When another year file is malformed", func() {
			writeResult(t, a.dir, 2022, `[{"Name": "No Position"}]`)
			before, _ := os.ReadFile(a.store.YearPath(2024))
			_, err := a.svc.Match(ctx, 2024)

			Convey("Then the run aborts before writing", func() {
				So(errors.Is(err, repository.ErrMalformed), ShouldBeTrue)
				after, _ := os.ReadFile(a.store.YearPath(2024))
				So(string(after), ShouldEqual, string(before))
			})
		})

		Convey("When the year file cannot be rewritten", func() {
			before, _ := os.ReadFile(a.store.YearPath(2024))
			failing := &failingYearStore{FileStore: a.store, err: errors.New("disk full")}
			svc := service.New(service.WithStore(failing), service.WithLedger(a.ledger))
			_, err := svc.Match(ctx, 2024)

			Convey("Then the warnings are saved and the old year file is kept", func() {
				So(err, ShouldNotBeNil)
				report, rerr := a.svc.Pending(ctx, 2024)
				So(rerr, ShouldBeNil)
				So(report.Summary.Pending, ShouldEqual, 3)
				after, _ := os.ReadFile(a.store.YearPath(2024))
				So(string(after), ShouldEqual, string(before))
			})
		})

		Convey("When the archive is locked by another run", func() {
			unlock, err := repository.NewFileStore(a.dir).Lock(ctx)
			So(err, ShouldBeNil)
			defer func() { _ = unlock() }()

			_, err = a.svc.Match(ctx, 2024)
			So(errors.Is(err, repository.ErrLocked), ShouldBeTrue)
		})
	})
}

func TestService_Runner(t *testing.T) {
	ctx := context.Background()

	Convey("Given a resolved archive", t, func() {
		a := newArchive(t)
		_, err := a.svc.Match(ctx, 2024)
		So(err, ShouldBeNil)

		Convey("When looking up a known runner", func() {
			r, err := a.svc.Runner(ctx, "jonathan-smith")

			Convey("Then the history spans both years", func() {
				So(err, ShouldBeNil)
				So(r.Years, ShouldResemble, []int{2023, 2024})
				So(r.History, ShouldHaveLength, 2)
				So(r.MostCommonClub, ShouldEqual, "Omagh Harriers")
			})
		})

		Convey("When the runner database has been saved and edited", func() {
			db, err := a.svc.Recompute(ctx)
			So(err, ShouldBeNil)
			db.Runners["jonathan-smith"].CanonicalName = "J. Smith"
			So(a.store.SaveRunnerDatabase(ctx, db), ShouldBeNil)

			r, err := a.svc.Runner(ctx, "jonathan-smith")

			Convey("Then the saved aggregate is returned with the current history", func() {
				So(err, ShouldBeNil)
				So(r.CanonicalName, ShouldEqual, "J. Smith")
				So(r.History, ShouldHaveLength, 2)
			})
		})

		Convey("When the runner database file is malformed", func() {
			So(os.WriteFile(filepath.Join(a.dir, "runners.json"), []byte("{"), 0o644), ShouldBeNil)
			_, err := a.svc.Runner(ctx, "jonathan-smith")
			So(errors.Is(err, repository.ErrMalformed), ShouldBeTrue)
		})

		Convey("When looking up an unknown runner", func() {
			_, err := a.svc.Runner(ctx, "nobody")
			So(errors.Is(err, service.ErrRunnerNotFound), ShouldBeTrue)
		})
	})
}

type failingYearStore struct {
	*repository.FileStore
	err error
}

func (f *failingYearStore) SaveYear(context.Context, int, []model.ResultEntry) error {
	return f.err
}
