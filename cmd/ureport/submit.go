package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jaxxstorm/ureport/internal/analyze"
	"github.com/jaxxstorm/ureport/internal/dumpdir"
	"github.com/jaxxstorm/ureport/internal/model"
	"github.com/jaxxstorm/ureport/internal/ureport"
	"go.uber.org/zap"
)

const workflowEnv = "LIBREPORT_WORKFLOW"

// submit uploads the problem's micro report and records the server's
// answer in the problem directory. A problem the server already knows
// stops the event run.
func (e *env) submit(ctx context.Context, cmd SubmitCmd) int {
	dd, err := dumpdir.Open(e.flags.DumpDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}
	path := cmd.Report
	if path == "" {
		path = filepath.Join(dd.Path, dumpdir.FileMicroReport)
	}
	report, err := dd.LoadMicroReport(path, e.cfg.Prefs, e.logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Not uploading an empty uReport:", err)
		return exitFailure
	}

	client := ureport.New(e.cfg, ureport.Options{Transport: e.transport, Logger: e.logger})
	reply, err := client.Submit(ctx, report)
	out := analyze.Submission(e.cfg.URL, reply, err)

	if resp, ok := reply.Response.(*model.ResultResponse); ok && err == nil {
		e.logger.Info("is known", zap.String("value", resp.Value))
		workflow, hasWorkflow := e.lookupEnv(workflowEnv)
		if err := ureport.Record(dd, resp, e.cfg.URL, workflow, hasWorkflow); err != nil {
			fmt.Fprintln(os.Stderr, "cannot update problem directory:", err)
			return exitFailure
		}
	}
	return e.finish([]model.Outcome{out})
}
