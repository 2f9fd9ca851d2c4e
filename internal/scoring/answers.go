package scoring

// ValueKind tags the shape of a raw answer value.
type ValueKind string

const (
	// ValueText holds free text (short/long text, email, phone, date).
	ValueText ValueKind = "text"
	// ValueOption holds an MCQ selection, optionally with free text when
	// the selected option is the "other" choice.
	ValueOption ValueKind = "option"
)

// AnswerValue is the tagged union the scorer matches on, replacing the
// loosely-typed payloads the wire carries.
type AnswerValue struct {
	Kind      ValueKind `json:"kind"`
	Text      string    `json:"text,omitempty"`
	OptionID  string    `json:"option_id,omitempty"`
	OtherText string    `json:"other_text,omitempty"`
}

// Answered reports whether the value carries any respondent input.
func (v AnswerValue) Answered() bool {
	switch v.Kind {
	case ValueText:
		return v.Text != ""
	case ValueOption:
		return v.OptionID != ""
	}
	return false
}

// Respondent identifies who is submitting. An empty Email marks an
// anonymous respondent.
type Respondent struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

func (r Respondent) Anonymous() bool { return r.UserID == "" && r.Email == "" }

// ID returns the stable identifier recorded on a scored response.
func (r Respondent) ID() string {
	if r.UserID != "" {
		return r.UserID
	}
	if r.Email != "" {
		return r.Email
	}
	return "anonymous"
}

// Submission is the raw, unvalidated input for one attempt. It exists only
// as engine input and is never persisted as-is.
type Submission struct {
	FormID     string                 `json:"form_id"`
	Respondent Respondent             `json:"respondent"`
	Answers    map[string]AnswerValue `json:"answers"` // field id -> value
	// FurthestPage is the highest page index the respondent reached,
	// monotonically increasing within a session.
	FurthestPage int `json:"furthest_page"`
	// SessionToken is a client-chosen opaque token identifying an anonymous
	// respondent's in-progress session. Ignored when the respondent is
	// identified; without it, anonymous progress is not tracked.
	SessionToken string `json:"session_token,omitempty"`
}

// AIEvaluation is the supplemental grade attached by the AI stage.
type AIEvaluation struct {
	Marks  float64 `json:"marks"`
	Reason string  `json:"reason"`
	Tag    string  `json:"tag"`
}

// Answer is the scored record for one answered field.
type Answer struct {
	FieldID      string        `json:"field_id"`
	Value        AnswerValue   `json:"value"`
	PointsEarned float64       `json:"points_earned"`
	AIEvaluation *AIEvaluation `json:"ai_evaluation,omitempty"`
}
