package harness

// TraceEvent is one step of a scenario execution.
type TraceEvent struct {
	Type    string `json:"type"` // "plan", "block", "row" or "error"
	Block   int    `json:"block"`
	Items   []int  `json:"items,omitempty"`
	Data    []any  `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Seq     int64  `json:"seq"`
}

// Trace event types.
const (
	EventPlan  = "plan"
	EventBlock = "block"
	EventRow   = "row"
	EventError = "error"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every assertion holds.
	Pass bool `json:"pass"`

	// Trace lists the executed blocks and the rows they produced, in
	// stream order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Rows holds the merged, paginated data rows.
	Rows [][]any `json:"rows"`

	// BlockRows counts the rows each block contributed, by block id.
	BlockRows map[int]int `json:"block_rows"`

	// SQL holds the rendered statements per dialect name, one per block.
	SQL map[string][]string `json:"sql"`

	// Explain holds the plan explanation per dialect name.
	Explain map[string]string `json:"-"`

	// Pivot holds the pivot cells when the query has a pivot layout.
	Pivot [][]any `json:"pivot,omitempty"`

	// ErrorCode is the runtime error code when preparing or executing
	// failed, empty otherwise.
	ErrorCode string `json:"error_code,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		BlockRows: make(map[int]int),
		SQL:       make(map[string][]string),
		Explain:   make(map[string]string),
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}
