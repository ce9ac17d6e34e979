package core

import "time"

// DeliverableType tags the concrete artifact kind a task produced.
type DeliverableType string

const (
	// DeliverablePost is social or blog content.
	DeliverablePost DeliverableType = "post"
	// DeliverableEmail is an outbound email draft.
	DeliverableEmail DeliverableType = "email"
	// DeliverableReport is an analysis or summary report.
	DeliverableReport DeliverableType = "report"
	// DeliverableMessage is a short outbound message (SMS, chat).
	DeliverableMessage DeliverableType = "message"
	// DeliverableDocument is any other long-form document.
	DeliverableDocument DeliverableType = "document"
)

// ParseDeliverableType maps free text to a known type, defaulting to
// DeliverableDocument for anything outside the closed set.
func ParseDeliverableType(s string) DeliverableType {
	switch DeliverableType(s) {
	case DeliverablePost, DeliverableEmail, DeliverableReport, DeliverableMessage:
		return DeliverableType(s)
	default:
		return DeliverableDocument
	}
}

// DeliverableStatus tracks the approval workflow state of an artifact. The
// engine creates deliverables as drafts; an external approval workflow moves
// them onward. Shipping is gated by the policy guard.
type DeliverableStatus string

const (
	// DeliverableDraft is the initial state of every created artifact.
	DeliverableDraft DeliverableStatus = "draft"
	// DeliverableApproved means an external reviewer accepted the artifact.
	DeliverableApproved DeliverableStatus = "approved"
	// DeliverableShipped means the artifact went out via a dispatch channel.
	DeliverableShipped DeliverableStatus = "shipped"
	// DeliverableRejected means an external reviewer declined the artifact.
	DeliverableRejected DeliverableStatus = "rejected"
)

// Dimension names one axis of the verifier's fixed scoring rubric.
type Dimension string

// The scoring rubric is small, closed and identical for every agent type.
const (
	DimRelevance       Dimension = "relevance"
	DimSpecificity     Dimension = "specificity"
	DimCorrectness     Dimension = "correctness"
	DimClarity         Dimension = "clarity"
	DimPersuasion      Dimension = "persuasion"
	DimBrandVoice      Dimension = "brand_voice"
	DimPersonalization Dimension = "personalization"
	DimCompliance      Dimension = "compliance"
)

// Dimensions returns the full rubric in stable order.
func Dimensions() []Dimension {
	return []Dimension{
		DimRelevance, DimSpecificity, DimCorrectness, DimClarity,
		DimPersuasion, DimBrandVoice, DimPersonalization, DimCompliance,
	}
}

// Deliverable is one concrete artifact produced by a task. Each verification
// retry produces fresh deliverable rows referencing the same task; stale rows
// are superseded, never overwritten.
type Deliverable struct {
	ID           string                `json:"id"`
	GoalID       string                `json:"goal_id"`
	TaskID       string                `json:"task_id"`
	TenantID     string                `json:"tenant_id"`
	Agent        AgentID               `json:"agent"`
	Type         DeliverableType       `json:"type"`
	Title        string                `json:"title"`
	Body         string                `json:"body"`
	Scores       map[Dimension]float64 `json:"scores,omitempty"`
	QualityScore float64               `json:"quality_score"`
	Status       DeliverableStatus     `json:"status"`
	ShippedVia   string                `json:"shipped_via,omitempty"`
	ShippedAt    *time.Time            `json:"shipped_at,omitempty"`
	Metadata     map[string]string     `json:"metadata,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

// NewDeliverable creates a draft deliverable attached to the given task.
func NewDeliverable(goalID, taskID, tenantID string, agent AgentID, typ DeliverableType, title, body string) *Deliverable {
	return &Deliverable{
		ID:        NewID(),
		GoalID:    goalID,
		TaskID:    taskID,
		TenantID:  tenantID,
		Agent:     agent,
		Type:      typ,
		Title:     title,
		Body:      body,
		Status:    DeliverableDraft,
		CreatedAt: time.Now().UTC(),
	}
}

// MeanScore computes the overall quality as the arithmetic mean of the
// per-dimension score map. Returns 0 for an empty map.
func MeanScore(scores map[Dimension]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores))
}
