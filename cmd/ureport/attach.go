package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jaxxstorm/ureport/internal/analyze"
	"github.com/jaxxstorm/ureport/internal/config"
	"github.com/jaxxstorm/ureport/internal/dumpdir"
	"github.com/jaxxstorm/ureport/internal/model"
	"github.com/jaxxstorm/ureport/internal/ureport"
)

const bugURLMarker = "show_bug.cgi?id="

// attachPlan is an attach command with every value resolved.
type attachPlan struct {
	BTHash  string
	BugID   int
	Email   string
	Comment string
}

// plan validates the attach flags and fills in the values taken from the
// problem directory, the environment or the settings file.
func (e *env) plan(cmd AttachCmd) (attachPlan, error) {
	p := attachPlan{BTHash: cmd.BTHash, BugID: cmd.BugID, Email: cmd.Email, Comment: cmd.Comment}

	if cmd.BTHash != "" && cmd.BTHashRT {
		return p, config.Errorf("You need to pass either -a bthash or -A")
	}
	if cmd.BugID >= 0 && cmd.BugIDRT {
		return p, config.Errorf("You need to pass either -b bug-id or -B")
	}
	if cmd.Email != "" && cmd.EmailEnv {
		return p, config.Errorf("You need to pass either -e bthash or -E")
	}
	if cmd.Comment != "" && cmd.CommentFile {
		return p, config.Errorf("You need to pass either -o comment or -O")
	}

	if cmd.BTHashRT || cmd.BugIDRT || cmd.CommentFile {
		dd, err := dumpdir.Open(e.flags.DumpDir)
		if err != nil {
			return p, err
		}
		if cmd.BTHashRT {
			result, ok, err := dd.FindReportedTo("uReport")
			if err != nil {
				return p, err
			}
			if !ok || result.BTHash == "" {
				return p, config.Errorf("This problem does not have an uReport assigned.")
			}
			p.BTHash = result.BTHash
		}
		if cmd.BugIDRT {
			result, ok, err := dd.FindReportedTo("Bugzilla")
			if err != nil {
				return p, err
			}
			if !ok || result.URL == "" {
				return p, config.Errorf("This problem has not been reported to Bugzilla.")
			}
			if !strings.Contains(result.URL, bugURLMarker) {
				return p, config.Errorf("Unable to find bug ID in bugzilla URL '%s'", result.URL)
			}
			id, ok := dumpdir.BugID(result.URL)
			if !ok {
				return p, config.Errorf("Unable to parse bug ID from bugzilla URL '%s'", result.URL)
			}
			p.BugID = id
		}
		if cmd.CommentFile {
			text, err := dd.LoadText(dumpdir.FileComment)
			if err != nil {
				return p, config.Errorf("Cannot attach comment from 'comment' file")
			}
			if text == "" {
				return p, config.Errorf("'comment' file is empty")
			}
			p.Comment = text
		}
	}

	if cmd.EmailEnv {
		email, ok := e.settings.Lookup("ContactEmail")
		if !ok || email == "" {
			return p, config.Errorf("Neither environment variable 'uReport_ContactEmail' nor configuration option 'ContactEmail' is set")
		}
		p.Email = email
	}

	if p.BTHash == "" {
		return p, config.Errorf("You need to specify bthash of the uReport to attach.")
	}
	if p.BugID < 0 && p.Email == "" && p.Comment == "" {
		return p, config.Errorf("You need to specify bug ID, contact email, comment or all of them")
	}
	return p, nil
}

// attach sends the bug, then the email, then the comment, stopping at the
// first one the server does not accept.
func (e *env) attach(ctx context.Context, cmd AttachCmd) int {
	p, err := e.plan(cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}

	client := ureport.New(e.cfg, ureport.Options{Transport: e.transport, Logger: e.logger})
	type step struct {
		kind string
		send func() (bool, error)
	}
	steps := []step{}
	if p.BugID >= 0 {
		steps = append(steps, step{ureport.AttachBug, func() (bool, error) { return client.AttachBug(ctx, p.BTHash, p.BugID) }})
	}
	if p.Email != "" {
		steps = append(steps, step{ureport.AttachEmail, func() (bool, error) { return client.AttachEmail(ctx, p.BTHash, p.Email) }})
	}
	if p.Comment != "" {
		steps = append(steps, step{ureport.AttachComment, func() (bool, error) { return client.AttachComment(ctx, p.BTHash, p.Comment) }})
	}

	outcomes := []model.Outcome{}
	for _, s := range steps {
		ok, err := s.send()
		if err == nil && !ok {
			err = errors.New("attachment was not accepted")
		}
		outcomes = append(outcomes, analyze.Attachment(e.cfg.URL, p.BTHash, s.kind, err))
		if err != nil {
			break
		}
	}
	return e.finish(outcomes)
}
