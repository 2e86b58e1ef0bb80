package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/racearchive/internal/domain/model"
	"github.com/okian/racearchive/internal/review"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	ctx := context.Background()

	Convey("Given an archive with pending warnings for 2024", t, func() {
		a := newArchive(t)

		Convey("When every warning is ruled on in review", func() {
			out, err := a.svc.Review(ctx, 2024, func(s *review.Session) error {
				for {
					it, ok := s.Next()
					if !ok {
						return nil
					}
					switch it.Kind {
					case review.KindUncertain:
						if err := s.Accept(ctx); err != nil {
							return err
						}
					case review.KindDuplicate:
						if _, err := s.SamePerson(ctx); err != nil {
							return err
						}
					}
				}
			})

			Convey("Then nothing is left pending and the rulings are applied", func() {
				So(err, ShouldBeNil)
				So(out.Report.Summary.Pending, ShouldEqual, 0)
				So(out.Report.Summary.LedgerApplied, ShouldEqual, 3)

				entries, err := a.store.LoadYear(ctx, 2024)
				So(err, ShouldBeNil)
				ids := map[int]string{}
				for _, e := range entries {
					ids[e.Position] = e.RunnerID
				}
				So(ids[8], ShouldEqual, "mary-byrne")
				So(ids[5], ShouldEqual, "sean-murphy")
				So(ids[12], ShouldEqual, "sean-murphy")
			})

			Convey("Then the ledger holds each decision", func() {
				ds, err := a.ledger.Load(ctx, 2024)
				So(err, ShouldBeNil)
				So(ds, ShouldResemble, []model.Decision{
					{Position: 5, Name: "Sean Murphy", RunnerID: "sean-murphy"},
					{Position: 8, Name: "Mary Byrne", RunnerID: "mary-byrne"},
					{Position: 12, Name: "Shaun Murphy", RunnerID: "sean-murphy"},
				})
			})

			Convey("Then recompute derives the runner database", func() {
				db, err := a.svc.Recompute(ctx)
				So(err, ShouldBeNil)
				So(db.Metadata.TotalRunners, ShouldEqual, 4)
				So(db.Metadata.TotalParticipations, ShouldEqual, 7)
				So(db.Metadata.UnassignedResults, ShouldEqual, 0)
				So(db.Runners["sean-murphy"].TotalRaces, ShouldEqual, 2)
				So(db.Runners["mary-byrne"].Years, ShouldResemble, []int{2023, 2024})

				saved, err := a.store.LoadRunnerDatabase(ctx)
				So(err, ShouldBeNil)
				So(saved.Metadata, ShouldResemble, db.Metadata)
			})
		})

		Convey("When the review is abandoned after one ruling", func() {
			stop := errors.New("operator quit")
			_, err := a.svc.Review(ctx, 2024, func(s *review.Session) error {
				if err := s.Accept(ctx); err != nil {
					return err
				}
				return stop
			})

			Convey("Then the ruling made so far is kept", func() {
				So(errors.Is(err, stop), ShouldBeTrue)
				ds, lerr := a.ledger.Load(ctx, 2024)
				So(lerr, ShouldBeNil)
				So(ds, ShouldHaveLength, 1)

				report, rerr := a.svc.Pending(ctx, 2024)
				So(rerr, ShouldBeNil)
				So(report.Summary.Pending, ShouldEqual, 2)
				So(report.UncertainMatches, ShouldBeEmpty)
			})
		})
	})
}
