package models

import (
	"encoding/json"
	"time"
)

// Envelope is the wire shape of every broker message. Requests carry a
// correlation ID plus the logical event to reply on; responses echo the
// correlation ID and either a payload or an error marker.
type Envelope struct {
	EventName     string          `json:"event_name"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	PublishedAt   time.Time       `json:"published_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ReplyTo       string          `json:"reply_to,omitempty"`
	Error         string          `json:"error,omitempty"`
}

func NewEvent(name string, payload interface{}) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventName:   name,
		Payload:     body,
		PublishedAt: time.Now().UTC(),
	}, nil
}

func NewRequest(name string, payload interface{}, correlationID, replyTo string) (Envelope, error) {
	env, err := NewEvent(name, payload)
	if err != nil {
		return Envelope{}, err
	}
	env.CorrelationID = correlationID
	env.ReplyTo = replyTo
	return env, nil
}

func NewResponse(name, correlationID string, payload interface{}, respErr error) (Envelope, error) {
	if respErr != nil {
		return Envelope{
			EventName:     name,
			PublishedAt:   time.Now().UTC(),
			CorrelationID: correlationID,
			Error:         respErr.Error(),
		}, nil
	}
	env, err := NewEvent(name, payload)
	if err != nil {
		return Envelope{}, err
	}
	env.CorrelationID = correlationID
	return env, nil
}

type CandidateApprovedEvent struct {
	CandidateID    string     `json:"candidate_id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	EducationLevel string     `json:"education_level"`
	JobPosition    string     `json:"job_position"`
	DecidedBy      string     `json:"decided_by"`
	ExamDate       *time.Time `json:"exam_date,omitempty"`
}

type CandidateRejectedEvent struct {
	CandidateID string `json:"candidate_id"`
	DecidedBy   string `json:"decided_by"`
	Status      string `json:"status"`
}

type TestListRequest struct {
	Filter TestFilter `json:"filter"`
}

type TestListResponse struct {
	Tests []TestSummary `json:"tests"`
}

type AssignmentCompletedEvent struct {
	CandidateID     string     `json:"candidate_id"`
	AssignedTestIDs []string   `json:"assigned_test_ids"`
	AssignedBy      string     `json:"assigned_by"`
	ExamDate        *time.Time `json:"exam_date,omitempty"`
	StatusUpdate    string     `json:"status_update,omitempty"`
	CompletedAt     time.Time  `json:"completed_at"`
}
