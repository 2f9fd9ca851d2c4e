package form

// Status is the publication state of a form.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusLive    Status = "live"
	StatusPaused  Status = "paused"
	StatusExpired Status = "expired"
)

// FieldType enumerates the field palette.
type FieldType string

const (
	FieldMCQ       FieldType = "mcq"
	FieldShortText FieldType = "short_text"
	FieldLongText  FieldType = "long_text"
	FieldEmail     FieldType = "email"
	FieldPhone     FieldType = "phone"
	FieldDate      FieldType = "date"
	FieldInfo      FieldType = "info" // display-only, never scored
)

// AIMode controls whether a field receives supplemental AI grading.
type AIMode string

const (
	AIModeNone     AIMode = "none"
	AIModeEvaluate AIMode = "evaluate"
)

// AccessMode restricts who may submit against a live form.
type AccessMode string

const (
	AccessNone      AccessMode = "none"
	AccessWhitelist AccessMode = "whitelist"
	AccessBlacklist AccessMode = "blacklist"
)

// RevealPolicy governs when a respondent may see their own score.
type RevealPolicy string

const (
	RevealInstant   RevealPolicy = "instant"
	RevealScheduled RevealPolicy = "scheduled"
	RevealApproval  RevealPolicy = "approval"
)

type Option struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	IsCorrect bool    `json:"is_correct"`
	Points    float64 `json:"points"`
	IsOther   bool    `json:"is_other,omitempty"`
}

type AISettings struct {
	Mode    AIMode `json:"mode"`
	Prompt  string `json:"prompt,omitempty"`  // custom rubric; empty means auto eval
	Tagging bool   `json:"tagging,omitempty"` // long-text metadata tagging
}

type NegativeMarking struct {
	Enabled bool    `json:"enabled"`
	Value   float64 `json:"value"`
	// AllowNegativeTotal lets an incorrect selection push the field
	// contribution below zero. Off by default: contributions floor at 0.
	AllowNegativeTotal bool `json:"allow_negative_total,omitempty"`
}

type Field struct {
	ID       string    `json:"id"`
	Type     FieldType `json:"type"`
	Title    string    `json:"title"`
	Required bool      `json:"required"`
	// Points is the base contribution for non-MCQ gradable types.
	Points float64 `json:"points,omitempty"`
	// TotalPoints, when set on an MCQ field, must equal the sum of points
	// over the correct options. Checked by ValidateDefinition.
	TotalPoints     float64         `json:"total_points,omitempty"`
	CharLimit       int             `json:"char_limit,omitempty"`
	Options         []Option        `json:"options,omitempty"`
	CorrectAnswers  []string        `json:"correct_answers,omitempty"`
	AI              AISettings      `json:"ai_settings"`
	NegativeMarking NegativeMarking `json:"negative_marking"`
}

type Page struct {
	ID              string  `json:"id"`
	Title           string  `json:"title,omitempty"`
	AllowRevisiting bool    `json:"allow_revisiting"`
	Fields          []Field `json:"fields"`
}

type Settings struct {
	AccessMode     AccessMode   `json:"access_mode"`
	Whitelist      []string     `json:"whitelist,omitempty"`
	Blacklist      []string     `json:"blacklist,omitempty"`
	ResultReveal   RevealPolicy `json:"result_reveal"`
	RevealAt       int64        `json:"reveal_at,omitempty"` // unix, scheduled reveal
	AllowCopyPaste bool         `json:"allow_copy_paste"`
}

// Definition is the owner-authored schema of one form.
type Definition struct {
	ID       string   `json:"id"`
	OwnerID  string   `json:"owner_id"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Status   Status   `json:"status"`
	Pages    []Page   `json:"pages"`
	Settings Settings `json:"settings"`
	// ResultsReleased is flipped once by the owner under the approval
	// reveal policy; un-releasing is not supported.
	ResultsReleased bool `json:"results_released,omitempty"`
	// CostPerResponse is derived; recomputed whenever the definition changes.
	CostPerResponse int   `json:"cost_per_response"`
	ResponseCount   int64 `json:"response_count"`
	CreatedAt       int64 `json:"created_at,omitempty"`
}

// FieldByID scans pages in order. Returns the page index the field sits on.
func (d *Definition) FieldByID(id string) (Field, int, bool) {
	for pi, p := range d.Pages {
		for _, f := range p.Fields {
			if f.ID == id {
				return f, pi, true
			}
		}
	}
	return Field{}, -1, false
}

// Fields flattens pages preserving definition order.
func (d *Definition) Fields() []Field {
	out := make([]Field, 0, 8)
	for _, p := range d.Pages {
		out = append(out, p.Fields...)
	}
	return out
}

// Option looks up an option on an MCQ field.
func (f Field) Option(id string) (Option, bool) {
	for _, o := range f.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Gradable reports whether the field can ever contribute points.
func (f Field) Gradable() bool {
	switch f.Type {
	case FieldInfo:
		return false
	default:
		return true
	}
}

// AIEligible reports whether an answer to this field is routed to the
// AI grading service. For MCQ the "other" selection is decided per answer,
// so this only states that the field can be eligible.
func (f Field) AIEligible() bool {
	if f.AI.Mode != AIModeEvaluate {
		return false
	}
	switch f.Type {
	case FieldShortText, FieldLongText:
		return true
	case FieldMCQ:
		for _, o := range f.Options {
			if o.IsOther {
				return true
			}
		}
	}
	return false
}
