package ureport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaxxstorm/ureport/internal/model"
)

const (
	solutionSingle = "Your problem seems to be caused by %s\n\n%s\n"
	solutionHeader = "Your problem seems to be caused by one of the following:\n"
	solutionItem   = "\n* %s\n\n%s\n"
)

// Reply is a parsed server response plus an optional shape/status warning.
type Reply struct {
	StatusCode int
	Response   model.Response
	Warning    error
}

// Accepted reports whether a body is expected for code.
func Accepted(code int) bool {
	return code == 202 || code == 400 || code == 413
}

// Parse interprets a reply body received with statusCode.
func Parse(statusCode int, body []byte) (Reply, error) {
	if !Accepted(statusCode) {
		return Reply{}, &ProtocolError{Reason: fmt.Sprintf("no response body expected for HTTP status %d", statusCode), Body: body}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		if json.Valid(body) {
			return Reply{}, &ProtocolError{Reason: "the response has invalid format", Body: body}
		}
		return Reply{}, &ProtocolError{Reason: "unable to parse response from ureport server", Body: body}
	}

	resp, err := parseObject(obj)
	if err != nil {
		return Reply{}, &ProtocolError{Reason: err.Error(), Body: body}
	}

	reply := Reply{StatusCode: statusCode, Response: resp}
	_, isError := resp.(*model.ErrorResponse)
	if (statusCode == 202) == isError {
		reply.Warning = &InconsistencyWarning{StatusCode: statusCode, IsError: isError}
	}
	return reply, nil
}

func parseObject(obj map[string]json.RawMessage) (model.Response, error) {
	if raw, ok := obj["error"]; ok {
		text, _ := stringValue(raw)
		return &model.ErrorResponse{Text: text}, nil
	}

	raw, ok := obj["result"]
	if !ok {
		return nil, fmt.Errorf("the response has invalid format")
	}
	value, _ := stringValue(raw)
	out := &model.ResultResponse{Value: value}
	if raw, ok := obj["message"]; ok {
		out.Message, _ = stringValue(raw)
	}
	if raw, ok := obj["bthash"]; ok {
		out.BTHash, _ = stringValue(raw)
	}
	if raw, ok := obj["reported_to"]; ok {
		out.ReportedTo = parseReportedTo(raw)
	}
	if raw, ok := obj["solutions"]; ok {
		solution, extra := parseSolutions(raw)
		if solution != "" {
			out.Solution = solution
			out.ReportedTo = append(out.ReportedTo, extra...)
		}
	}
	return out, nil
}

func parseReportedTo(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, element := range items {
		item, ok := object(element)
		if !ok {
			continue
		}
		reporter, ok := field(item, "reporter")
		if !ok {
			continue
		}
		value, ok := field(item, "value")
		if !ok {
			continue
		}
		kind, _ := field(item, "type")
		out = append(out, fmt.Sprintf("%s: %s%s", reporter, reportedToPrefix(kind), value))
	}
	return out
}

func reportedToPrefix(kind string) string {
	switch {
	case strings.EqualFold(kind, "url"):
		return "URL="
	case strings.EqualFold(kind, "bthash"):
		return "BTHASH="
	}
	return ""
}

// parseSolutions renders the solution text. The returned reported-to lines
// only count when the text is non-empty.
func parseSolutions(raw json.RawMessage) (string, []string) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return "", nil
	}

	var buf strings.Builder
	format := solutionSingle
	if len(items) > 1 {
		buf.WriteString(solutionHeader)
		format = solutionItem
	}

	var reportedTo []string
	empty := true
	for _, element := range items {
		item, ok := object(element)
		if !ok {
			continue
		}
		cause, ok := field(item, "cause")
		if !ok {
			continue
		}
		note, ok := field(item, "note")
		if !ok {
			continue
		}
		empty = false
		fmt.Fprintf(&buf, format, cause, note)
		if url, ok := field(item, "url"); ok {
			reportedTo = append(reportedTo, fmt.Sprintf("%s: URL=%s", cause, url))
		}
	}
	if empty {
		return "", nil
	}
	return buf.String(), reportedTo
}

// object decodes one array element. Anything but a JSON object is skipped
// by the callers.
func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	var item map[string]json.RawMessage
	if err := json.Unmarshal(raw, &item); err != nil || item == nil {
		return nil, false
	}
	return item, true
}

func field(item map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := item[key]
	if !ok {
		return "", false
	}
	return stringValue(raw)
}

// stringValue renders a JSON value as text: strings unquoted, anything else
// as compact JSON. null is absent.
func stringValue(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, true
	}
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, trimmed); err != nil {
		return string(trimmed), true
	}
	return compacted.String(), true
}
