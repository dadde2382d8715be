package model_test

import (
	"testing"

	model "github.com/okian/taskforce/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParsePriority(t *testing.T) {
	convey.Convey("Given raw priority values", t, func() {
		convey.Convey("Then known values map case-insensitively", func() {
			convey.So(model.ParsePriority("HIGH"), convey.ShouldEqual, model.PriorityHigh)
			convey.So(model.ParsePriority(" low "), convey.ShouldEqual, model.PriorityLow)
			convey.So(model.ParsePriority("medium"), convey.ShouldEqual, model.PriorityMedium)
		})

		convey.Convey("Then missing or unknown values default to medium", func() {
			convey.So(model.ParsePriority(""), convey.ShouldEqual, model.PriorityMedium)
			convey.So(model.ParsePriority("urgent"), convey.ShouldEqual, model.PriorityMedium)
		})
	})
}

func TestTaskNormalize(t *testing.T) {
	convey.Convey("Given a task with malformed fields", t, func() {
		task := model.Task{
			ID:             " t1 ",
			TeamID:         " team-a",
			RequiredSkills: []string{"Go", " go", "", "Python "},
		}

		convey.Convey("When normalizing", func() {
			n := task.Normalize()

			convey.Convey("Then ids are trimmed and skills cleaned", func() {
				convey.So(n.ID, convey.ShouldEqual, "t1")
				convey.So(n.TeamID, convey.ShouldEqual, "team-a")
				convey.So(n.RequiredSkills, convey.ShouldResemble, []string{"go", "python"})
			})

			convey.Convey("And the priority defaults to medium", func() {
				convey.So(n.Priority, convey.ShouldEqual, model.PriorityMedium)
				convey.So(n.IsHighPriority(), convey.ShouldBeFalse)
			})

			convey.Convey("And the original is untouched", func() {
				convey.So(task.ID, convey.ShouldEqual, " t1 ")
			})
		})

		convey.Convey("When skills are nil", func() {
			n := model.Task{ID: "t2"}.Normalize()

			convey.Convey("Then they become an empty set", func() {
				convey.So(n.RequiredSkills, convey.ShouldNotBeNil)
				convey.So(n.RequiredSkills, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestTaskState(t *testing.T) {
	convey.Convey("Given tasks in different states", t, func() {
		open := model.Task{ID: "a", Priority: model.PriorityHigh}
		done := model.Task{ID: "b", Completed: true, Assignment: &model.Assignment{MemberID: "m1"}}

		convey.So(open.IsOpen(), convey.ShouldBeTrue)
		convey.So(open.IsAssigned(), convey.ShouldBeFalse)
		convey.So(open.IsHighPriority(), convey.ShouldBeTrue)
		convey.So(done.IsOpen(), convey.ShouldBeFalse)
		convey.So(done.IsAssigned(), convey.ShouldBeTrue)
	})
}

func TestSkillSet(t *testing.T) {
	convey.Convey("Given two skill sets", t, func() {
		a := model.NewSkillSet("python", "Go", "sql")
		b := model.NewSkillSet("go", "rust", "PYTHON")

		convey.Convey("Then overlap counts the normalized intersection", func() {
			convey.So(a.Overlap(b), convey.ShouldEqual, 2)
			convey.So(b.Overlap(a), convey.ShouldEqual, 2)
		})

		convey.Convey("Then an empty set overlaps nothing", func() {
			convey.So(model.NewSkillSet().Overlap(a), convey.ShouldEqual, 0)
		})

		convey.Convey("Then membership ignores case and padding", func() {
			convey.So(a.Has(" GO "), convey.ShouldBeTrue)
			convey.So(a.Has("rust"), convey.ShouldBeFalse)
		})

		convey.Convey("Then sorted skills are lexical", func() {
			convey.So(a.SortedSkills(), convey.ShouldResemble, []string{"go", "python", "sql"})
		})
	})
}

func TestMemberNormalize(t *testing.T) {
	convey.Convey("Given a member with padded fields", t, func() {
		m := model.Member{ID: " m1", TeamID: "team-a ", Skills: nil}.Normalize()

		convey.So(m.ID, convey.ShouldEqual, "m1")
		convey.So(m.TeamID, convey.ShouldEqual, "team-a")
		convey.So(m.Skills, convey.ShouldNotBeNil)
	})
}
