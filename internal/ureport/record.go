package ureport

import (
	"github.com/jaxxstorm/ureport/internal/model"
)

// Recorder is the durable per-problem storage a result is written to.
type Recorder interface {
	AddReportedTo(line string) error
	SaveSolution(text string) error
}

// Record writes resp into rec: the bthash entries, the server's reported-to
// lines and the solution text. When hasWorkflow is set every reported-to line
// is tagged with WORKFLOW=workflow, even if workflow is empty.
func Record(rec Recorder, resp *model.ResultResponse, serverURL, workflow string, hasWorkflow bool) error {
	if resp.BTHash != "" {
		if err := rec.AddReportedTo("uReport: BTHASH=" + resp.BTHash); err != nil {
			return err
		}
		if err := rec.AddReportedTo("ABRT Server: URL=" + ReportURL(serverURL, resp.BTHash)); err != nil {
			return err
		}
	}
	for _, line := range resp.ReportedTo {
		if hasWorkflow {
			line += " WORKFLOW=" + workflow
		}
		if err := rec.AddReportedTo(line); err != nil {
			return err
		}
	}
	if resp.Solution != "" {
		return rec.SaveSolution(resp.Solution)
	}
	return nil
}
