// Package analyze classifies the result of a submission or attachment and
// builds the outcome record shown to the user.
package analyze

import (
	"errors"
	"fmt"

	"github.com/jaxxstorm/ureport/internal/config"
	"github.com/jaxxstorm/ureport/internal/model"
	"github.com/jaxxstorm/ureport/internal/ureport"
)

type OutcomeKind string

const (
	OutcomeKnown            OutcomeKind = "KNOWN"
	OutcomeNotKnown         OutcomeKind = "NOT_KNOWN"
	OutcomeAttached         OutcomeKind = "ATTACHED"
	OutcomeAttachRejected   OutcomeKind = "ATTACH_REJECTED"
	OutcomeServerError      OutcomeKind = "SERVER_ERROR"
	OutcomeHTTPStatus       OutcomeKind = "HTTP_STATUS"
	OutcomeTLSFailure       OutcomeKind = "TLS_FAILURE"
	OutcomeTransportFailure OutcomeKind = "TRANSPORT_FAILURE"
	OutcomeProtocolError    OutcomeKind = "PROTOCOL_ERROR"
	OutcomeConfigError      OutcomeKind = "CONFIG_ERROR"
	OutcomeFailure          OutcomeKind = "FAILURE"
)

const (
	ActionSubmit = "submit"
	ActionAttach = "attach"
)

type Outcome struct {
	Kind    OutcomeKind
	Summary string
	Hints   []string
}

func Diagnose(outcome Outcome) model.Diagnosis {
	return model.Diagnosis{
		Classification: string(outcome.Kind),
		Summary:        outcome.Summary,
		Hints:          outcome.Hints,
	}
}

// Succeeded reports whether the classification is not a failure.
func Succeeded(kind OutcomeKind) bool {
	switch kind {
	case OutcomeKnown, OutcomeNotKnown, OutcomeAttached:
		return true
	}
	return false
}

// Submission builds the outcome of one report submission.
func Submission(url string, reply ureport.Reply, err error) model.Outcome {
	out := model.Outcome{Action: ActionSubmit, URL: url, StatusCode: reply.StatusCode}
	if reply.Warning != nil {
		out.Warnings = append(out.Warnings, reply.Warning.Error())
	}
	if err != nil {
		out.Error = err.Error()
		out.Diagnosis = Diagnose(classifyError(err))
		return out
	}

	switch resp := reply.Response.(type) {
	case *model.ErrorResponse:
		out.Error = resp.Text
		out.Diagnosis = Diagnose(Outcome{
			Kind:    OutcomeServerError,
			Summary: fmt.Sprintf("Server responded with an error: '%s'", resp.Text),
			Hints:   []string{"The report was rejected; check the report contents and server version."},
		})
	case *model.ResultResponse:
		out.Value = resp.Value
		out.Message = resp.Message
		out.BTHash = resp.BTHash
		out.Solution = resp.Solution
		out.ReportedTo = resp.ReportedTo
		if resp.BTHash != "" {
			out.ReportURL = ureport.ReportURL(url, resp.BTHash)
		}
		if resp.Value == "true" {
			outcome := Outcome{Kind: OutcomeKnown, Summary: "This problem has already been reported."}
			if resp.Solution != "" {
				outcome.Hints = append(outcome.Hints, "A solution is available; see the solution text.")
			}
			out.Diagnosis = Diagnose(outcome)
		} else {
			out.Diagnosis = Diagnose(Outcome{Kind: OutcomeNotKnown, Summary: "The problem is not known to the server yet."})
		}
	default:
		out.Diagnosis = Diagnose(Outcome{Kind: OutcomeProtocolError, Summary: "The server reply carried no response."})
	}
	return out
}

// Attachment builds the outcome of one attach request.
func Attachment(url, bthash, kind string, err error) model.Outcome {
	out := model.Outcome{Action: ActionAttach + " " + kind, URL: url, BTHash: bthash}
	if bthash != "" {
		out.ReportURL = ureport.ReportURL(url, bthash)
	}
	if err != nil {
		out.Error = err.Error()
		out.Diagnosis = Diagnose(classifyError(err))
		return out
	}
	out.Value = "true"
	out.Diagnosis = Diagnose(Outcome{Kind: OutcomeAttached, Summary: fmt.Sprintf("Attached %s to the report.", kind)})
	return out
}

func classifyError(err error) Outcome {
	var (
		cfgErr       *config.Error
		transportErr *ureport.TransportError
		statusErr    *ureport.StatusError
		protocolErr  *ureport.ProtocolError
		serverErr    *ureport.ServerError
		rejectedErr  *ureport.AttachRejectedError
	)
	switch {
	case errors.As(err, &cfgErr):
		return Outcome{Kind: OutcomeConfigError, Summary: cfgErr.Error(), Hints: []string{"Check the server URL and authentication settings."}}
	case errors.As(err, &transportErr):
		if transportErr.TLS {
			return Outcome{
				Kind:    OutcomeTLSFailure,
				Summary: transportErr.Error(),
				Hints: []string{
					"The server certificate could not be verified or the client certificate was refused.",
					"Provide a CA certificate or use --insecure only against trusted test servers.",
				},
			}
		}
		return Outcome{Kind: OutcomeTransportFailure, Summary: transportErr.Error(), Hints: []string{"Check network connectivity and proxy settings."}}
	case errors.As(err, &statusErr):
		hints := []string{}
		if statusErr.StatusCode == 404 {
			hints = append(hints, "Verify the server URL; the submission path was not found.")
		}
		if statusErr.StatusCode >= 500 {
			hints = append(hints, "The server is failing; try again later.")
		}
		return Outcome{Kind: OutcomeHTTPStatus, Summary: statusErr.Error(), Hints: hints}
	case errors.As(err, &protocolErr):
		return Outcome{Kind: OutcomeProtocolError, Summary: protocolErr.Error(), Hints: []string{"The URL may not point at a crash report server."}}
	case errors.As(err, &serverErr):
		return Outcome{Kind: OutcomeServerError, Summary: fmt.Sprintf("Server responded with an error: '%s'", serverErr.Text)}
	case errors.As(err, &rejectedErr):
		return Outcome{Kind: OutcomeAttachRejected, Summary: rejectedErr.Error()}
	}
	return Outcome{Kind: OutcomeFailure, Summary: err.Error()}
}
