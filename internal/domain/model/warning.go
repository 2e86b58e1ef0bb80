package model

// Reason tags attached to warnings.
const (
	ReasonFuzzyMatch        = "fuzzy_match"
	ReasonTimeMismatch      = "time_mismatch"
	ReasonAlreadyInYear     = "runner_already_in_year"
	ReasonPossibleDuplicate = "possible_duplicate"
)

// UncertainMatch pairs an unresolved entry with a suggested existing runner.
type UncertainMatch struct {
	Result      ResultRef `json:"result"`
	SuggestedID string    `json:"suggested_id"`
	Confidence  float64   `json:"confidence"`
	Reason      string    `json:"reason"`
}

// DuplicatePair flags two same-year entries that may be the same person.
type DuplicatePair struct {
	Positions  [2]int    `json:"positions"`
	Names      [2]string `json:"names"`
	Similarity float64   `json:"similarity"`
	Reason     string    `json:"reason"`
}

// Summary counts the outcome of one resolution run.
type Summary struct {
	TotalNewResults  int `json:"total_new_results"`
	AlreadyResolved  int `json:"already_resolved"`
	LedgerApplied    int `json:"ledger_applied"`
	StaleDecisions   int `json:"stale_decisions"`
	AliasMatches     int `json:"alias_matches"`
	AutoAssigned     int `json:"auto_assigned"`
	NewRunners       int `json:"new_runners"`
	UncertainMatches int `json:"uncertain_matches"`
	DuplicatePairs   int `json:"duplicate_pairs"`
	Pending          int `json:"pending"`
}

// WarningReport is the persisted warnings file for one target year.
type WarningReport struct {
	TargetYear          int              `json:"target_year"`
	UncertainMatches    []UncertainMatch `json:"uncertain_matches"`
	DuplicatesInNewYear []DuplicatePair  `json:"duplicates_in_new_year"`
	Summary             Summary          `json:"summary"`
}

// Decision is one human disambiguation ruling.
type Decision struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	RunnerID string `json:"runner_id"`
}

// Ledger is the persisted disambiguation ledger for one year.
type Ledger struct {
	Year      int        `json:"year"`
	Decisions []Decision `json:"decisions"`
}

// NameChanges maps runner_id to alternate names registered by hand.
type NameChanges map[string][]string
