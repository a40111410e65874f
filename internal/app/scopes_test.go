package service_test

import (
	"testing"

	service "github.com/okian/jci/internal/app"
	"github.com/okian/jci/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(id string, wage float64, rt model.RegionType, name string) model.JobRecord {
	return model.JobRecord{JobID: id, Wage: wage, Employment: model.UnknownEmployment, Region: model.Region{Type: rt, Name: name}}
}

func regionsOf(scopes []model.RegionScope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = s.Region.String()
	}
	return out
}

func TestBuildScopes_CanonicalRegions(t *testing.T) {
	Convey("Given rows spelling the same state differently", t, func() {
		jobs := []model.JobRecord{
			rec("J1", 10, model.State, "Texas"),
			rec("J2", 20, model.State, " texas"),
			rec("J3", 30, model.National, "US"),
		}

		Convey("When building scopes", func() {
			scopes := service.BuildScopes(jobs, service.DefaultSelection())

			Convey("Then every grouped row carries its scope's region", func() {
				So(regionsOf(scopes), ShouldResemble, []string{"National/United States", "State/Texas"})
				So(scopes[1].Jobs, ShouldHaveLength, 2)
				for _, j := range scopes[1].Jobs {
					So(j.Region, ShouldResemble, scopes[1].Region)
				}
			})
		})

		Convey("When canonicalising job metadata", func() {
			sel := service.DefaultSelection()
			meta := []model.JobMeta{
				{JobID: "J3", Title: "national", Region: model.Region{Type: model.National, Name: "US"}},
				{JobID: "J1", Title: "state", Region: model.Region{Type: model.State, Name: "TEXAS"}},
				{JobID: "J1", Title: "global"},
			}
			out := sel.CanonicalJobMeta(meta)

			Convey("Then national rows take the national name and the input is untouched", func() {
				So(out[0].Region.Name, ShouldEqual, "United States")
				So(out[1].Region.Name, ShouldEqual, "TEXAS")
				So(out[2].Region, ShouldResemble, model.Region{})
				So(meta[0].Region.Name, ShouldEqual, "US")
			})
		})
	})
}

func TestBuildScopes(t *testing.T) {
	Convey("Given job rows of several regions in mixed order", t, func() {
		jobs := []model.JobRecord{
			rec("J1", 10, model.Metro, "Austin"),
			rec("J1", 20, model.State, "Texas"),
			rec("J1", 30, model.National, "US"),
			rec("J2", 40, model.State, "Ohio"),
			rec("J2", 50, model.State, "Texas"),
			rec("J2", 60, model.National, "US"),
			rec("J3", 70, model.Metro, "Dayton"),
		}

		Convey("When building scopes with the default selection", func() {
			scopes := service.BuildScopes(jobs, service.DefaultSelection())

			Convey("Then national comes first, then states, then metros in first-appearance order", func() {
				So(regionsOf(scopes), ShouldResemble, []string{
					"National/United States",
					"State/Texas", "State/Ohio",
					"Metro/Austin", "Metro/Dayton",
				})
			})

			Convey("And national rows are renamed to the national name", func() {
				So(scopes[0].Jobs, ShouldHaveLength, 2)
				So(scopes[0].Jobs[0].Region.Name, ShouldEqual, "United States")
			})

			Convey("And each scope keeps its rows in input order", func() {
				So(scopes[1].Jobs[0].Wage, ShouldEqual, 20.0)
				So(scopes[1].Jobs[1].Wage, ShouldEqual, 50.0)
				So(scopes[1].Explicit, ShouldBeFalse)
			})
		})

		Convey("When national scopes are excluded and states are capped", func() {
			scopes := service.BuildScopes(jobs, service.Selection{MaxStates: 1, MaxMetros: 0})

			Convey("Then only the first state and every metro remain", func() {
				So(regionsOf(scopes), ShouldResemble, []string{"State/Texas", "Metro/Austin", "Metro/Dayton"})
			})
		})

		Convey("When states are named explicitly", func() {
			sel := service.DefaultSelection()
			sel.States = []string{"ohio", "Nevada", "Ohio"}
			sel.Metros = []string{"Dayton"}
			scopes := service.BuildScopes(jobs, sel)

			Convey("Then the named order is kept and unknown names yield empty explicit scopes", func() {
				So(regionsOf(scopes), ShouldResemble, []string{
					"National/United States", "State/Ohio", "State/Nevada", "Metro/Dayton",
				})
				So(scopes[1].Explicit, ShouldBeTrue)
				So(scopes[1].Jobs, ShouldHaveLength, 1)
				So(scopes[2].Explicit, ShouldBeTrue)
				So(scopes[2].Jobs, ShouldBeEmpty)
			})
		})
	})

	Convey("Given no job rows", t, func() {
		Convey("Then no scope is built", func() {
			So(service.BuildScopes(nil, service.DefaultSelection()), ShouldBeEmpty)
		})
	})
}
