package homework

// Record is one submission's review state as returned by the API.
type Record struct {
	ID              int64  `json:"id,omitempty"`
	HomeworkName    string `json:"homework_name"`
	Status          Status `json:"status"`
	LessonName      string `json:"lesson_name,omitempty"`
	ReviewerComment string `json:"reviewer_comment,omitempty"`
	DateUpdated     string `json:"date_updated,omitempty"`
}

// Response is the body of a successful homework_statuses call.
//
// Homeworks is ordered newest first. CurrentDate is the server clock in unix
// seconds and may be zero when the API omits it.
type Response struct {
	Homeworks   []Record `json:"homeworks"`
	CurrentDate int64    `json:"current_date,omitempty"`
}

// Result is the outcome of a successful validation: either the most recent
// record, or nothing to report this cycle.
type Result struct {
	Record Record
	Found  bool
}

// NoUpdate is the result for an empty homework list.
func NoUpdate() Result { return Result{} }
