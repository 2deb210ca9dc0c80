package crawl

import "time"

// RawRecord maps field names to the text pulled off one catalog item.
// Absent keys mean the field was not found on the page. Immutable once
// produced by the extractor.
type RawRecord map[string]string

// Raw field keys produced by the extractor and consumed by the normalizer.
const (
	FieldTitle     = "title_text"
	FieldPrice     = "price_text"
	FieldSoldDate  = "sold_date"
	FieldHours     = "hours_text"
	FieldCondition = "condition"
	FieldSpecs     = "specs"
	FieldLocation  = "location"
)

// Listing is one normalized auction result.
type Listing struct {
	Brand     string   `json:"brand,omitempty"`
	Model     string   `json:"model,omitempty"`
	Price     *float64 `json:"price"`
	SoldDate  string   `json:"sold_date,omitempty"`
	Hours     *float64 `json:"hours"`
	Condition string   `json:"condition,omitempty"`
	Specs     string   `json:"specs,omitempty"`
	Location  string   `json:"location,omitempty"`
}

// JobState is the lifecycle state of a page fetch job.
type JobState string

// Page fetch job states.
const (
	JobPending    JobState = "pending"
	JobAttempting JobState = "attempting"
	JobSucceeded  JobState = "succeeded"
	JobFailed     JobState = "failed"
)

// Egress is one outbound identity: a proxy endpoint plus the client headers
// a session should present. A zero ProxyURL means "go direct".
type Egress struct {
	ProxyURL    string
	UserAgent   string
	Headers     map[string]string
	ValidatedAt time.Time
}

// SessionConfig is the configuration applied when opening a browser session.
// Anti-detection measures are open-time configuration, not runtime state.
type SessionConfig struct {
	UserAgent   string
	Headers     map[string]string
	ProxyServer string
	WindowW     int
	WindowH     int
	InitTimeout time.Duration
	NavTimeout  time.Duration
}

// TargetConfig describes how page numbers map onto catalog URLs and how long
// a job waits for the item list to render.
type TargetConfig struct {
	BaseURL      string
	Category     string
	SortTerm     string
	PageLimit    int
	ItemSelector string
	WaitTimeout  time.Duration
}
