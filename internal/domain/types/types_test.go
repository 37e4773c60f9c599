package types_test

import (
	"testing"

	"github.com/okian/vaultsync/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBatchReport(t *testing.T) {
	Convey("Given an empty batch report", t, func() {
		var b types.BatchReport

		Convey("When adding clean, degraded and failed reports", func() {
			b.Add(types.Report{Character: "a", Sources: map[string]string{"gear": types.SourceOK}})
			b.Add(types.Report{Character: "b", Sources: map[string]string{"gear": types.SourceOK, "encounters": types.SourceError}})
			b.Add(types.Report{Character: "c", Error: "sync already in progress"})
			b.Add(types.Report{Character: "d", Sources: map[string]string{"gear": types.SourceSkipped}})

			Convey("Then each is counted once", func() {
				So(b.Reports, ShouldHaveLength, 4)
				So(b.Succeeded, ShouldEqual, 2)
				So(b.Degraded, ShouldEqual, 1)
				So(b.Failed, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a report with zero values", t, func() {
		r := types.Report{}
		So(r.Failed(), ShouldBeFalse)
		So(r.Degraded(), ShouldBeFalse)
	})
}
