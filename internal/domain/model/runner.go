package model

// Source records whether a canonical value was flagged by hand or derived.
type Source string

const (
	SourceManual    Source = "manual"
	SourceAutomatic Source = "automatic"
)

// Runner is the aggregate derived from every entry sharing a runner_id.
type Runner struct {
	RunnerID            string `json:"runner_id"`
	CanonicalName       string `json:"canonical_name"`
	CanonicalNameSource Source `json:"canonical_name_source"`
	Gender              Gender `json:"gender"`
	MostCommonClub      string `json:"most_common_club"`
	MostCommonClubSrc   Source `json:"most_common_club_source"`
	Years               []int  `json:"years"`
	TotalRaces          int    `json:"total_races"`
	History             []Race `json:"-"`
}

// Race is one line of a runner's race history.
type Race struct {
	Year     int
	Position int
	Name     string
	Category string
	Club     string
	Time     string
}

// RunnerDatabase is the persisted runner database file.
type RunnerDatabase struct {
	Runners  map[string]*Runner `json:"runners"`
	Metadata DatabaseMetadata   `json:"metadata"`
}

// DatabaseMetadata summarizes a recompute.
type DatabaseMetadata struct {
	YearsIncluded       []int `json:"years_included"`
	TotalRunners        int   `json:"total_runners"`
	TotalParticipations int   `json:"total_participations"`
	UnassignedResults   int   `json:"unassigned_results"`
	CanonicalConflicts  int   `json:"canonical_conflicts"`
}
