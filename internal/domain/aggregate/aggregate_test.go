package aggregate_test

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/okian/racearchive/internal/domain/aggregate"
	"github.com/okian/racearchive/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func row(year, pos int, name, cat, club, id string) model.ResultEntry {
	return model.ResultEntry{
		Year:     year,
		Position: pos,
		Name:     name,
		Category: cat,
		Club:     club,
		ChipTime: "0:25:00",
		RunnerID: id,
	}
}

func TestRecompute(t *testing.T) {
	Convey("Given resolved results over several years", t, func() {
		entries := []model.ResultEntry{
			row(2020, 4, "Mary Byrne", "F35", "Omagh Harriers", "mary-byrne"),
			row(2021, 6, "Mary Byrne", "F35", "Omagh Harriers", "mary-byrne"),
			row(2023, 2, "Mary Byrne-Kelly", "F40", "Strabane AC", "mary-byrne"),
			row(2021, 1, "John Smith", "M40", "", "john-smith"),
			row(2022, 3, "Jon Smith", "M40", "Derry Track Club", "john-smith"),
			row(2022, 9, "Someone New", "", "", ""),
		}

		Convey("When recomputing", func() {
			res := aggregate.Recompute(entries)
			db := res.Database

			Convey("Then runners carry derived values", func() {
				So(db.Runners, ShouldHaveLength, 2)
				mary := db.Runners["mary-byrne"]
				So(mary.CanonicalName, ShouldEqual, "Mary Byrne")
				So(mary.CanonicalNameSource, ShouldEqual, model.SourceAutomatic)
				So(mary.MostCommonClub, ShouldEqual, "Omagh Harriers")
				So(mary.Gender, ShouldEqual, model.GenderFemale)
				So(mary.Years, ShouldResemble, []int{2020, 2021, 2023})
				So(mary.TotalRaces, ShouldEqual, 3)
				So(mary.History, ShouldHaveLength, 3)
				So(mary.History[0].Year, ShouldEqual, 2020)
			})

			Convey("Then ties break toward the most recent value", func() {
				john := db.Runners["john-smith"]
				So(john.CanonicalName, ShouldEqual, "Jon Smith")
				So(john.MostCommonClub, ShouldEqual, "Derry Track Club")
				So(john.Gender, ShouldEqual, model.GenderMale)
			})

			Convey("Then metadata summarizes the archive", func() {
				So(db.Metadata.YearsIncluded, ShouldResemble, []int{2020, 2021, 2022, 2023})
				So(db.Metadata.TotalRunners, ShouldEqual, 2)
				So(db.Metadata.TotalParticipations, ShouldEqual, 5)
				So(db.Metadata.UnassignedResults, ShouldEqual, 1)
				So(db.Metadata.CanonicalConflicts, ShouldEqual, 0)
			})
		})

		Convey("When entries are flagged canonical", func() {
			entries[2].CanonicalName = true
			entries[0].CanonicalClub = true
			entries[2].CanonicalClub = true
			res := aggregate.Recompute(entries)
			mary := res.Database.Runners["mary-byrne"]

			Convey("Then flagged values win over frequency", func() {
				So(mary.CanonicalName, ShouldEqual, "Mary Byrne-Kelly")
				So(mary.CanonicalNameSource, ShouldEqual, model.SourceManual)
			})

			Convey("Then multiple flags are reported and the latest is used", func() {
				So(mary.MostCommonClub, ShouldEqual, "Strabane AC")
				So(res.Conflicts, ShouldHaveLength, 1)
				So(res.Conflicts[0].Field, ShouldEqual, aggregate.FieldClub)
				So(res.Conflicts[0].Chosen.Year, ShouldEqual, 2023)
				So(res.Database.Metadata.CanonicalConflicts, ShouldEqual, 1)
			})
		})

		Convey("When the input order is permuted", func() {
			want, err := json.Marshal(aggregate.Recompute(entries).Database)
			So(err, ShouldBeNil)

			rng := rand.New(rand.NewSource(7))
			for i := 0; i < 20; i++ {
				shuffled := append([]model.ResultEntry(nil), entries...)
				rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
				got, err := json.Marshal(aggregate.Recompute(shuffled).Database)
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, string(want))
			}
		})
	})
}
