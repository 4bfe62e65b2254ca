package reporting

// TimeRange bounds a summary query in epoch milliseconds, matching the
// timestamps stored on call-history records. From is inclusive, To is
// exclusive.
type TimeRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// HistorySummaryRequest requests aggregated call-history metrics.
type HistorySummaryRequest struct {
	Range TimeRange `json:"range"`

	// Mode optionally narrows the summary to one calling surface.
	Mode string `json:"mode,omitempty"`
}

type HistorySummary struct {
	Mode string `json:"mode,omitempty"`

	TotalCalls    int `json:"total_calls"`
	IncomingCalls int `json:"incoming_calls"`
	OutgoingCalls int `json:"outgoing_calls"`

	AcceptedCalls int `json:"accepted_calls"`
	MissedCalls   int `json:"missed_calls"`
	DeclinedCalls int `json:"declined_calls"`
	JoinedCalls   int `json:"joined_calls"`
	PendingCalls  int `json:"pending_calls"`

	UnseenMessages int `json:"unseen_messages"`
}
