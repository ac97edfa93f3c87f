package model

import "time"

type AnswerSource string

const (
	SourceRemote AnswerSource = "remote"
	SourceLocal  AnswerSource = "local"
)

// ArchivedAnswer is one answered question as shipped to the archive topic and
// indexed for history search.
type ArchivedAnswer struct {
	Timestamp   time.Time    `json:"@timestamp"`
	SessionID   string       `json:"session_id"`
	MessageID   string       `json:"message_id"`
	DatasetName string       `json:"dataset_name"`
	Question    string       `json:"question"`
	Answer      string       `json:"answer"`
	Source      AnswerSource `json:"source"`
	Insights    []string     `json:"insights,omitempty"`
	ChartTypes  []string     `json:"chart_types,omitempty"`
}
