package models

// Dunning stages in escalation order. StageNone means "no action this cycle"
// and is re-evaluated every cycle, it is not a terminal state.
type Stage int

const (
	StageNone Stage = iota
	StageFirstReminder
	StageFirstDunning
	StageSecondDunning
)

// Order custom field keys carrying the per-stage sent-at unix timestamps and
// the ignore flag. Once a timestamp is written it is never cleared by this
// system (forward-only progression).
const (
	MarkerKeyStage1 = "junu_dunning_stage1_sent_at"
	MarkerKeyStage2 = "junu_dunning_stage2_sent_at"
	MarkerKeyStage3 = "junu_dunning_stage3_sent_at"

	IgnoreFlagKey = "junu_dunning_ignore"
)

func (s Stage) String() string {
	switch s {
	case StageFirstReminder:
		return "Zahlungserinnerung"
	case StageFirstDunning:
		return "Mahnung 1"
	case StageSecondDunning:
		return "Mahnung 2"
	default:
		return "NONE"
	}
}

// StageInfo binds a stage to its side-effect ingredients: which tenant
// template renders the mail, which custom field records the send, and the
// subject line pattern (order number substituted).
type StageInfo struct {
	Name          string
	MarkerKey     string
	TemplateIndex int
	SubjectFormat string
}

var stageTable = map[Stage]StageInfo{
	StageFirstReminder: {
		Name:          "Zahlungserinnerung",
		MarkerKey:     MarkerKeyStage1,
		TemplateIndex: 0,
		SubjectFormat: "Zahlungserinnerung zu Bestellung %s",
	},
	StageFirstDunning: {
		Name:          "Mahnung 1",
		MarkerKey:     MarkerKeyStage2,
		TemplateIndex: 1,
		SubjectFormat: "1. Mahnung zu Bestellung %s",
	},
	StageSecondDunning: {
		Name:          "Mahnung 2",
		MarkerKey:     MarkerKeyStage3,
		TemplateIndex: 2,
		SubjectFormat: "2. Mahnung zu Bestellung %s",
	},
}

// Info returns the metadata for a non-NONE stage.
func (s Stage) Info() (StageInfo, bool) {
	info, ok := stageTable[s]
	return info, ok
}
