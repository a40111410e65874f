package complexity_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/jci/internal/domain/complexity"
	"github.com/okian/jci/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var us = model.Region{Type: model.National, Name: "United States"}

// twoByTwo is J1 doing T1, J2 doing T1 and T2.
func twoByTwo() []model.TaskRelatedness {
	return []model.TaskRelatedness{
		{JobID: "J1", TaskID: "T1", Weight: 1},
		{JobID: "J2", TaskID: "T1", Weight: 1},
		{JobID: "J2", TaskID: "T2", Weight: 1},
	}
}

func twoJobs(region model.Region) []model.JobRecord {
	return []model.JobRecord{
		{JobID: "J1", Wage: 100, Employment: 10, Region: region},
		{JobID: "J2", Wage: 200, Employment: 20, Region: region},
	}
}

func TestBuildMatrix(t *testing.T) {
	Convey("Given relatedness triplets with an out-of-scope job and a duplicate pair", t, func() {
		rel := []model.TaskRelatedness{
			{JobID: "J2", TaskID: "T2", Weight: 1},
			{JobID: "J1", TaskID: "T1", Weight: 2},
			{JobID: "J3", TaskID: "T3", Weight: 5},
			{JobID: "J2", TaskID: "T1", Weight: 1},
			{JobID: "J1", TaskID: "T1", Weight: 3},
		}

		Convey("When building for jobs J1 and J2", func() {
			m, err := complexity.BuildMatrix(rel, []string{"J1", "J2", "J9"})
			So(err, ShouldBeNil)

			Convey("Then rows and columns follow first appearance in the filtered triplets", func() {
				So(m.JobIDs(), ShouldResemble, []string{"J2", "J1"})
				So(m.TaskIDs(), ShouldResemble, []string{"T2", "T1"})
				So(m.Triplets(), ShouldEqual, 4)
			})

			Convey("And the later duplicate wins", func() {
				So(m.At(1, 1), ShouldEqual, 3.0)
				So(m.At(0, 0), ShouldEqual, 1.0)
				So(m.At(0, 1), ShouldEqual, 1.0)
				So(m.At(1, 0), ShouldEqual, 0.0)
				So(m.NonZeros(), ShouldEqual, 3)
			})
		})

		Convey("When no job is in scope", func() {
			m, err := complexity.BuildMatrix(rel, []string{"J9"})

			Convey("Then the matrix is empty but valid", func() {
				So(err, ShouldBeNil)
				So(m.Rows(), ShouldEqual, 0)
				So(m.Cols(), ShouldEqual, 0)
				So(m.NonZeros(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given zero weights", t, func() {
		rel := []model.TaskRelatedness{
			{JobID: "J1", TaskID: "T1", Weight: 1},
			{JobID: "J1", TaskID: "T2", Weight: 0},
			{JobID: "J2", TaskID: "T1", Weight: 4},
			{JobID: "J2", TaskID: "T1", Weight: 0},
		}
		m, err := complexity.BuildMatrix(rel, []string{"J1", "J2"})
		So(err, ShouldBeNil)

		Convey("Then the zero entries are not stored but keep their row and column", func() {
			So(m.Rows(), ShouldEqual, 2)
			So(m.Cols(), ShouldEqual, 2)
			So(m.NonZeros(), ShouldEqual, 1)
			So(m.At(1, 0), ShouldEqual, 0.0)
		})
	})

	Convey("Given an invalid weight", t, func() {
		rel := []model.TaskRelatedness{
			{JobID: "J1", TaskID: "T1", Weight: 1},
			{JobID: "J2", TaskID: "T1", Weight: -1},
			{JobID: "J3", TaskID: "T1", Weight: math.NaN()},
		}

		Convey("Then building fails only when the bad triplet is in scope", func() {
			_, err := complexity.BuildMatrix(rel, []string{"J1", "J2"})
			So(errors.Is(err, model.ErrInvalidWeight), ShouldBeTrue)

			_, err = complexity.BuildMatrix(rel, []string{"J3"})
			So(errors.Is(err, model.ErrInvalidWeight), ShouldBeTrue)

			m, err := complexity.BuildMatrix(rel, []string{"J1"})
			So(err, ShouldBeNil)
			So(m.NonZeros(), ShouldEqual, 1)
		})
	})
}

func TestDegrees(t *testing.T) {
	Convey("Given the two-by-two matrix", t, func() {
		m, err := complexity.BuildMatrix(twoByTwo(), []string{"J1", "J2"})
		So(err, ShouldBeNil)

		Convey("Then row and column sums are the weighted degrees", func() {
			nj, nt := complexity.Degrees(m)
			So(nj, ShouldResemble, []float64{1, 2})
			So(nt, ShouldResemble, []float64{2, 1})
		})

		Convey("And the task seed averages the wages of related jobs", func() {
			_, nt := complexity.Degrees(m)
			So(complexity.SeedTasks(m, []float64{100, 200}, nt), ShouldResemble, []float64{150, 200})
		})
	})

	Convey("Given a job whose only relation has zero weight", t, func() {
		rel := []model.TaskRelatedness{
			{JobID: "J1", TaskID: "T1", Weight: 2},
			{JobID: "J2", TaskID: "T2", Weight: 0},
		}
		m, err := complexity.BuildMatrix(rel, []string{"J1", "J2"})
		So(err, ShouldBeNil)

		Convey("Then its zero degree is replaced by one", func() {
			nj, nt := complexity.Degrees(m)
			So(nj, ShouldResemble, []float64{2, 1})
			So(nt, ShouldResemble, []float64{2, 1})
		})
	})
}

func TestIterate(t *testing.T) {
	Convey("Given the two-by-two matrix and its seeds", t, func() {
		m, err := complexity.BuildMatrix(twoByTwo(), []string{"J1", "J2"})
		So(err, ShouldBeNil)
		nj, nt := complexity.Degrees(m)
		kj0 := []float64{100, 200}
		kt0 := []float64{150, 200}

		Convey("When running a single round", func() {
			out := complexity.Iterate(m, nj, nt, kj0, kt0, complexity.WithRounds(1))

			Convey("Then both sides read the previous round", func() {
				So(out.JCI, ShouldResemble, []float64{150, 175})
				// a sequential update would have produced (150+175)/2 here
				So(out.TCI, ShouldResemble, []float64{150, 200})
				So(out.Rounds, ShouldEqual, 1)
			})

			Convey("And the inputs are left untouched", func() {
				So(kj0, ShouldResemble, []float64{100, 200})
				So(kt0, ShouldResemble, []float64{150, 200})
			})
		})

		Convey("When running zero rounds", func() {
			out := complexity.Iterate(m, nj, nt, kj0, kt0, complexity.WithRounds(0))

			Convey("Then the seeds are returned", func() {
				So(out.JCI, ShouldResemble, kj0)
				So(out.TCI, ShouldResemble, kt0)
			})
		})

		Convey("When running the default number of rounds", func() {
			out := complexity.Iterate(m, nj, nt, kj0, kt0)

			Convey("Then it runs exactly twenty rounds", func() {
				So(out.Rounds, ShouldEqual, complexity.DefaultRounds)
				So(out.Converged, ShouldBeFalse)
			})
		})

		Convey("When a tolerance is set", func() {
			out := complexity.Iterate(m, nj, nt, kj0, kt0, complexity.WithRounds(500), complexity.WithTolerance(1e-9))

			Convey("Then it stops once the indices settle", func() {
				So(out.Converged, ShouldBeTrue)
				So(out.Rounds, ShouldBeLessThan, 500)
				So(out.JCI[0], ShouldAlmostEqual, 500.0/3, 1e-6)
				So(out.TCI[1], ShouldAlmostEqual, 500.0/3, 1e-6)
			})
		})
	})

	Convey("Given a job with no weighted relations", t, func() {
		rel := []model.TaskRelatedness{
			{JobID: "J1", TaskID: "T1", Weight: 1},
			{JobID: "J2", TaskID: "T2", Weight: 0},
			{JobID: "J3", TaskID: "T1", Weight: 2},
		}
		m, err := complexity.BuildMatrix(rel, []string{"J1", "J2", "J3"})
		So(err, ShouldBeNil)
		nj, nt := complexity.Degrees(m)
		wages := []float64{100, 200, 300}

		Convey("Then its complexity is zero after any number of rounds", func() {
			for _, rounds := range []int{1, 2, 7, 20} {
				out := complexity.Iterate(m, nj, nt, wages, complexity.SeedTasks(m, wages, nt), complexity.WithRounds(rounds))
				So(out.JCI[1], ShouldEqual, 0.0)
				So(out.TCI[1], ShouldEqual, 0.0)
				So(math.IsNaN(out.JCI[0]), ShouldBeFalse)
			}
		})
	})

	Convey("Given a weighted matrix and the same matrix scaled by a constant", t, func() {
		rel := []model.TaskRelatedness{
			{JobID: "A", TaskID: "x", Weight: 1.5},
			{JobID: "A", TaskID: "y", Weight: 0.25},
			{JobID: "B", TaskID: "y", Weight: 2},
			{JobID: "B", TaskID: "z", Weight: 0.75},
			{JobID: "C", TaskID: "x", Weight: 3},
			{JobID: "C", TaskID: "z", Weight: 1},
		}
		m, err := complexity.BuildMatrix(rel, []string{"A", "B", "C"})
		So(err, ShouldBeNil)
		const c = 3.5
		scaled := m.Scale(c)

		Convey("Then the propagation from identical seeds is unchanged", func() {
			kj0 := []float64{50, 80, 120}
			kt0 := []float64{60, 90, 70}
			nj, nt := complexity.Degrees(m)
			snj, snt := complexity.Degrees(scaled)
			base := complexity.Iterate(m, nj, nt, kj0, kt0)
			got := complexity.Iterate(scaled, snj, snt, kj0, kt0)
			for i := range base.JCI {
				So(got.JCI[i], ShouldAlmostEqual, base.JCI[i], 1e-9)
			}
			for i := range base.TCI {
				So(got.TCI[i], ShouldAlmostEqual, base.TCI[i], 1e-9)
			}
		})

		Convey("And through the wage seed JCI is unchanged while TCI scales by 1/c", func() {
			wages := []float64{50, 80, 120}
			nj, nt := complexity.Degrees(m)
			snj, snt := complexity.Degrees(scaled)
			seed := complexity.SeedTasks(m, wages, nt)
			sseed := complexity.SeedTasks(scaled, wages, snt)
			base := complexity.Iterate(m, nj, nt, wages, seed)
			got := complexity.Iterate(scaled, snj, snt, wages, sseed)
			for i := range base.JCI {
				So(got.JCI[i], ShouldAlmostEqual, base.JCI[i], 1e-9)
			}
			for i := range base.TCI {
				So(got.TCI[i], ShouldAlmostEqual, base.TCI[i]/c, 1e-9)
				So(sseed[i], ShouldAlmostEqual, seed[i]/c, 1e-9)
			}
		})
	})
}

func TestEngine_Compute(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine over the two-by-two relatedness table", t, func() {
		engine, err := complexity.NewEngine(twoByTwo())
		So(err, ShouldBeNil)
		So(engine.Jobs(), ShouldEqual, 2)
		So(engine.Tasks(), ShouldEqual, 2)

		Convey("When computing the national scope", func() {
			res, err := engine.Compute(ctx, model.RegionScope{Region: us, Jobs: twoJobs(us)})
			So(err, ShouldBeNil)

			Convey("Then it reproduces the reference values after twenty rounds", func() {
				So(res.Jobs, ShouldHaveLength, 2)
				So(res.Jobs[0].JobID, ShouldEqual, "J1")
				So(res.Jobs[0].JCI, ShouldEqual, 166.6666030883789)
				So(res.Jobs[1].JCI, ShouldEqual, 166.66669845581055)
				So(res.Tasks[0].TaskID, ShouldEqual, "T1")
				So(res.Tasks[0].TCI, ShouldEqual, 166.66665077209473)
				So(res.Tasks[1].TCI, ShouldEqual, 166.66669845581055)
			})

			Convey("And rows carry wages, seeds and the region", func() {
				So(res.Jobs[1].Wage, ShouldEqual, 200.0)
				So(res.Tasks[0].AvgWage, ShouldEqual, 150.0)
				So(res.Tasks[1].AvgWage, ShouldEqual, 200.0)
				So(res.Jobs[0].Region, ShouldResemble, us)
				So(res.Tasks[1].Region, ShouldResemble, us)
				So(res.Stats, ShouldResemble, model.RegionStats{Jobs: 2, Tasks: 2, NonZeros: 3, Rounds: 20})
				So(res.Degenerate, ShouldBeFalse)
			})

			Convey("And a second run is bit-identical", func() {
				again, err := engine.Compute(ctx, model.RegionScope{Region: us, Jobs: twoJobs(us)})
				So(err, ShouldBeNil)
				So(again, ShouldResemble, res)
			})
		})

		Convey("When computing two regions in either order", func() {
			tx := model.Region{Type: model.State, Name: "Texas"}
			ca := model.Region{Type: model.State, Name: "California"}
			txJobs := []model.JobRecord{{JobID: "J1", Wage: 90, Region: tx}, {JobID: "J2", Wage: 240, Region: tx}}
			caJobs := []model.JobRecord{{JobID: "J2", Wage: 310, Region: ca}}

			first, err := engine.Compute(ctx, model.RegionScope{Region: tx, Jobs: txJobs})
			So(err, ShouldBeNil)
			_, err = engine.Compute(ctx, model.RegionScope{Region: ca, Jobs: caJobs})
			So(err, ShouldBeNil)
			second, err := engine.Compute(ctx, model.RegionScope{Region: tx, Jobs: txJobs})
			So(err, ShouldBeNil)

			Convey("Then results of a region do not depend on the others", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When the job slice is empty", func() {
			res, err := engine.Compute(ctx, model.RegionScope{Region: us})

			Convey("Then the result is empty and degenerate", func() {
				So(err, ShouldBeNil)
				So(res.Degenerate, ShouldBeTrue)
				So(res.Jobs, ShouldBeEmpty)
				So(res.Tasks, ShouldBeEmpty)
			})
		})

		Convey("When a job in the matrix has no wage", func() {
			jobs := twoJobs(us)
			jobs[1].Wage = math.NaN()
			_, err := engine.Compute(ctx, model.RegionScope{Region: us, Jobs: jobs})

			Convey("Then a missing wage error is returned", func() {
				So(errors.Is(err, model.ErrMissingWage), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "J2")
			})
		})

		Convey("When a region lists a job twice", func() {
			jobs := append(twoJobs(us), model.JobRecord{JobID: "J1", Wage: 999, Region: us})
			res, err := engine.Compute(ctx, model.RegionScope{Region: us, Jobs: jobs})

			Convey("Then the first wage is used", func() {
				So(err, ShouldBeNil)
				So(res.Jobs[0].Wage, ShouldEqual, 100.0)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := engine.Compute(cctx, model.RegionScope{Region: us, Jobs: twoJobs(us)})

			Convey("Then nothing is computed", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given an engine with a custom round count", t, func() {
		engine, err := complexity.NewEngine(twoByTwo(), complexity.WithRounds(1))
		So(err, ShouldBeNil)

		Convey("Then one synchronous round is applied", func() {
			res, err := engine.Compute(ctx, model.RegionScope{Region: us, Jobs: twoJobs(us)})
			So(err, ShouldBeNil)
			So(res.Jobs[1].JCI, ShouldEqual, 175.0)
			So(res.Stats.Rounds, ShouldEqual, 1)
		})
	})

	Convey("Given an empty relatedness table", t, func() {
		_, err := complexity.NewEngine(nil)

		Convey("Then the engine reports missing input", func() {
			So(errors.Is(err, model.ErrMissingInput), ShouldBeTrue)
		})
	})
}
