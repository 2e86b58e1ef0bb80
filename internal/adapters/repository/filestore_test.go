package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/racearchive/internal/adapters/repository"
	"github.com/okian/racearchive/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const year2023 = `[
  {"Position": 1, "Bib no.": 101, "Name": "Ciara Walsh", "Category": "FO", "Club": "Omagh Harriers", "Chip Time": "0:19:02", "Gun Time": "0:19:05", "runner_id": "ciara-walsh"},
  {"Position": 2, "Name": "Jonathan Smith", "Category": "M40", "Gun Time": "0:20:11", "Age Grade": "64.0%"}
]`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileStoreYears(t *testing.T) {
	ctx := context.Background()

	Convey("Given a data directory with result files", t, func() {
		dir := t.TempDir()
		store := repository.NewFileStore(dir)
		writeFile(t, filepath.Join(dir, "results", "2023.json"), year2023)
		writeFile(t, filepath.Join(dir, "results", "2021.json"), `[]`)
		writeFile(t, filepath.Join(dir, "results", "notes.txt"), `ignored`)

		Convey("When listing years", func() {
			years, err := store.ListYears(ctx)
			So(err, ShouldBeNil)
			So(years, ShouldResemble, []int{2021, 2023})
		})

		Convey("When loading a year", func() {
			entries, err := store.LoadYear(ctx, 2023)

			Convey("Then entries carry the year and parsed category", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Year, ShouldEqual, 2023)
				So(entries[0].RunnerID, ShouldEqual, "ciara-walsh")
				So(entries[0].Division.Gender, ShouldEqual, model.GenderFemale)
				So(entries[1].Resolved(), ShouldBeFalse)
			})
		})

		Convey("When a year has no file", func() {
			_, err := store.LoadYear(ctx, 1999)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When saving and reloading a year", func() {
			entries, err := store.LoadYear(ctx, 2023)
			So(err, ShouldBeNil)
			entries[1].RunnerID = "jonathan-smith"
			So(store.SaveYear(ctx, 2023, entries), ShouldBeNil)

			again, err := store.LoadYear(ctx, 2023)

			Convey("Then the resolution persists and original fields survive", func() {
				So(err, ShouldBeNil)
				So(again[1].RunnerID, ShouldEqual, "jonathan-smith")
				So(string(again[0].Bib), ShouldEqual, "101")
				So(again[0].GunTime, ShouldEqual, "0:19:05")
			})

			Convey("Then keys outside the model are written back", func() {
				So(string(again[1].Extra["Age Grade"]), ShouldEqual, `"64.0%"`)
				data, rErr := os.ReadFile(store.YearPath(2023))
				So(rErr, ShouldBeNil)
				So(string(data), ShouldContainSubstring, `"Age Grade": "64.0%"`)
			})
		})

		Convey("When loading everything", func() {
			all, err := store.LoadAll(ctx)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 2)
		})
	})
}

func TestFileStoreMalformed(t *testing.T) {
	ctx := context.Background()

	Convey("Given malformed year files", t, func() {
		dir := t.TempDir()
		store := repository.NewFileStore(dir)

		Convey("When a row has no Position", func() {
			writeFile(t, filepath.Join(dir, "results", "2024.json"), `[{"Position": 1, "Name": "A"}, {"Name": "B"}]`)
			_, err := store.LoadYear(ctx, 2024)

			Convey("Then the error names the file and row", func() {
				var me *repository.MalformedError
				So(errors.As(err, &me), ShouldBeTrue)
				So(me.Row, ShouldEqual, 2)
				So(errors.Is(err, repository.ErrMalformed), ShouldBeTrue)
				So(errors.Is(err, model.ErrMissingPosition), ShouldBeTrue)
			})
		})

		Convey("When two rows share a position", func() {
			writeFile(t, filepath.Join(dir, "results", "2024.json"), `[{"Position": 1, "Name": "A"}, {"Position": 1, "Name": "B"}]`)
			_, err := store.LoadYear(ctx, 2024)
			So(errors.Is(err, repository.ErrMalformed), ShouldBeTrue)
		})

		Convey("When the file is not an array", func() {
			writeFile(t, filepath.Join(dir, "results", "2024.json"), `{"oops": true}`)
			_, err := store.LoadYear(ctx, 2024)
			So(errors.Is(err, repository.ErrMalformed), ShouldBeTrue)
		})
	})
}

func TestFileStoreAuxiliaryFiles(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty data directory", t, func() {
		dir := t.TempDir()
		store := repository.NewFileStore(dir, repository.WithWarningsDir(filepath.Join(dir, "w")))

		Convey("Then a missing name-change table is empty", func() {
			changes, err := store.LoadNameChanges(ctx)
			So(err, ShouldBeNil)
			So(changes, ShouldBeEmpty)
		})

		Convey("Then a missing runner database is not found", func() {
			_, err := store.LoadRunnerDatabase(ctx)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When name changes exist", func() {
			writeFile(t, filepath.Join(dir, "name_changes.json"), `{"mary-byrne": ["Mary Kelly"]}`)
			changes, err := store.LoadNameChanges(ctx)
			So(err, ShouldBeNil)
			So(changes["mary-byrne"], ShouldResemble, []string{"Mary Kelly"})
		})

		Convey("When saving warnings and the runner database", func() {
			report := &model.WarningReport{TargetYear: 2024, Summary: model.Summary{Pending: 2}}
			So(store.SaveWarnings(ctx, report), ShouldBeNil)
			db := &model.RunnerDatabase{Runners: map[string]*model.Runner{"a": {RunnerID: "a", Years: []int{2024}, TotalRaces: 1}}}
			So(store.SaveRunnerDatabase(ctx, db), ShouldBeNil)

			Convey("Then both load back", func() {
				got, err := store.LoadWarnings(ctx, 2024)
				So(err, ShouldBeNil)
				So(got.Summary.Pending, ShouldEqual, 2)
				_, err = os.Stat(filepath.Join(dir, "w", "2024.json"))
				So(err, ShouldBeNil)

				gotDB, err := store.LoadRunnerDatabase(ctx)
				So(err, ShouldBeNil)
				So(gotDB.Runners["a"].TotalRaces, ShouldEqual, 1)
			})
		})
	})
}

func TestFileStoreLock(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store lock held by one run", t, func() {
		dir := t.TempDir()
		first := repository.NewFileStore(dir)
		second := repository.NewFileStore(dir)

		unlock, err := first.Lock(ctx)
		So(err, ShouldBeNil)

		Convey("When another run tries to lock", func() {
			_, err := second.Lock(ctx)
			So(errors.Is(err, repository.ErrLocked), ShouldBeTrue)
			So(unlock(), ShouldBeNil)
		})

		Convey("When the lock is released", func() {
			So(unlock(), ShouldBeNil)
			again, err := second.Lock(ctx)
			So(err, ShouldBeNil)
			So(again(), ShouldBeNil)
		})
	})
}
