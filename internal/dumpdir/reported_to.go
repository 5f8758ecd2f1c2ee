package dumpdir

import (
	"strconv"
	"strings"
)

// ReportResult is one parsed reported_to line:
//
//	Label: KEY=value KEY=value ...
//
// URL and MSG run to the end of the line since they may contain spaces.
type ReportResult struct {
	Label    string
	URL      string
	BTHash   string
	MsgID    string
	Message  string
	Workflow string
	Time     string
}

func ParseReportedTo(line string) ReportResult {
	label, rest, found := strings.Cut(line, ":")
	if !found {
		return ReportResult{Label: strings.TrimSpace(line)}
	}
	result := ReportResult{Label: strings.TrimSpace(label)}
	fields := strings.Fields(rest)
	for i, fieldText := range fields {
		key, value, ok := strings.Cut(fieldText, "=")
		if !ok {
			continue
		}
		switch key {
		case "URL":
			result.URL = value
		case "BTHASH":
			result.BTHash = value
		case "MSGID":
			result.MsgID = value
		case "WORKFLOW":
			result.Workflow = value
		case "TIME":
			result.Time = value
		case "MSG":
			result.Message = strings.Join(append([]string{value}, fields[i+1:]...), " ")
			return result
		}
	}
	return result
}

// BugID extracts the numeric id from a show_bug.cgi?id=N bug tracker URL.
func BugID(url string) (int, bool) {
	const marker = "show_bug.cgi?id="
	idx := strings.Index(url, marker)
	if idx < 0 {
		return 0, false
	}
	digits := url[idx+len(marker):]
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	id, err := strconv.Atoi(digits[:end])
	if err != nil {
		return 0, false
	}
	return id, true
}
