package model

// Report severity tags. Sinks map these onto whatever accent (embed color,
// log level) their transport supports.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Report is one unit of tally output sent to a result sink. Ordering is
// preserved within a single coordinator run; delivery is fire-and-forget.
type Report struct {
	CorrelationID string            `json:"correlationId"`
	Title         string            `json:"title"`
	Severity      string            `json:"severity"`
	Body          string            `json:"body"`
	Fields        map[string]string `json:"fields,omitempty"`
}
