package models

// CorrectionStep records one corrector pass for the envelope history.
type CorrectionStep struct {
	Iteration int      `json:"iteration"`
	Issues    []string `json:"issues"`
	Reason    string   `json:"reason"`
	Before    string   `json:"before"`
	After     string   `json:"after"`
}

// Envelope is the complete answer to one utterance: the SQL the engine
// settled on, its most recent execution result, and the correction trail
// that produced it.
type Envelope struct {
	FinalSQL       string           `json:"final_sql"`
	Result         *ExecutionResult `json:"result"`
	Status         ValidationStatus `json:"status"`
	IterationCount int              `json:"iteration_count"`
	History        []CorrectionStep `json:"history"`
	Constraints    *Constraints     `json:"constraints"`
	Explanation    string           `json:"explanation"`
}

// ReasonCount pairs a correction reason with its occurrence count.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// StatsReport summarizes the learning store contents.
type StatsReport struct {
	Total                int            `json:"total"`
	StatusHistogram      map[string]int `json:"status_histogram"`
	AvgIterations        float64        `json:"avg_iterations"`
	TopCorrectionReasons []ReasonCount  `json:"top_correction_reasons"`
}
