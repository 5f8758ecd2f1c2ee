package model

// Response is one parsed server reply. It is either an *ErrorResponse or a
// *ResultResponse; the two shapes never share fields.
type Response interface {
	response()
}

// ErrorResponse is the {"error": ...} shape.
type ErrorResponse struct {
	Text string `json:"error"`
}

// ResultResponse is the {"result": ...} shape. Value is the decision
// ("true" means the problem is already known).
type ResultResponse struct {
	Value      string   `json:"result"`
	Message    string   `json:"message,omitempty"`
	BTHash     string   `json:"bthash,omitempty"`
	Solution   string   `json:"solution,omitempty"`
	ReportedTo []string `json:"reported_to,omitempty"`
}

func (*ErrorResponse) response()  {}
func (*ResultResponse) response() {}

type Diagnosis struct {
	Classification string   `json:"classification"`
	Summary        string   `json:"summary"`
	Hints          []string `json:"hints,omitempty"`
}

type Outcome struct {
	Action     string    `json:"action"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code,omitempty"`
	Value      string    `json:"value,omitempty"`
	Error      string    `json:"error,omitempty"`
	Message    string    `json:"message,omitempty"`
	BTHash     string    `json:"bthash,omitempty"`
	ReportURL  string    `json:"report_url,omitempty"`
	ReportedTo []string  `json:"reported_to,omitempty"`
	Solution   string    `json:"solution,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	Diagnosis  Diagnosis `json:"diagnosis"`
}
