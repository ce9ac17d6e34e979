package core

import "fmt"

// AgentID identifies one of the closed set of agent capability profiles.
// Free-form identifiers coming back from the completion service are validated
// at the planner boundary via ParseAgentID; nothing past the planner ever
// sees an unknown agent.
type AgentID string

const (
	// AgentStrategist plans campaigns and positioning.
	AgentStrategist AgentID = "strategist"
	// AgentCopywriter drafts content (posts, documents, copy).
	AgentCopywriter AgentID = "copywriter"
	// AgentOutreach drafts customer-facing messages and email sequences.
	AgentOutreach AgentID = "outreach"
	// AgentAnalyst produces research and analysis reports.
	AgentAnalyst AgentID = "analyst"
	// AgentScheduler produces plans, calendars and schedules.
	AgentScheduler AgentID = "scheduler"
	// AgentGeneralist handles anything the planner could not place; also the
	// fallback assignee when decomposition fails.
	AgentGeneralist AgentID = "generalist"
)

// AgentProfile carries the identifying details for one agent capability:
// its display name and the default mission text fed to the prompt builder.
type AgentProfile struct {
	ID          AgentID `json:"id"`
	DisplayName string  `json:"display_name"`
	Mission     string  `json:"mission"`
}

// agentProfiles is the closed registry mapping each AgentID to its profile.
var agentProfiles = map[AgentID]AgentProfile{
	AgentStrategist: {
		ID:          AgentStrategist,
		DisplayName: "Strategist",
		Mission:     "You develop marketing strategy: positioning, campaign structure, audience segmentation and channel selection.",
	},
	AgentCopywriter: {
		ID:          AgentCopywriter,
		DisplayName: "Copywriter",
		Mission:     "You write polished marketing content: social posts, landing copy and long-form documents in the brand voice.",
	},
	AgentOutreach: {
		ID:          AgentOutreach,
		DisplayName: "Outreach Specialist",
		Mission:     "You draft personalized outbound messages and email sequences that re-engage and convert customers.",
	},
	AgentAnalyst: {
		ID:          AgentAnalyst,
		DisplayName: "Analyst",
		Mission:     "You analyze business data and produce concise, decision-ready reports with concrete recommendations.",
	},
	AgentScheduler: {
		ID:          AgentScheduler,
		DisplayName: "Scheduler",
		Mission:     "You turn objectives into concrete schedules: content calendars, send plans and follow-up cadences.",
	},
	AgentGeneralist: {
		ID:          AgentGeneralist,
		DisplayName: "Generalist",
		Mission:     "You handle broad business requests end to end, producing whatever artifact best answers the ask.",
	},
}

// ParseAgentID validates a free-form identifier against the closed agent set.
// Unknown identifiers are rejected with an error so callers can apply their
// own fallback policy.
func ParseAgentID(s string) (AgentID, error) {
	id := AgentID(s)
	if _, ok := agentProfiles[id]; !ok {
		return "", fmt.Errorf("unknown agent identifier: %q", s)
	}
	return id, nil
}

// Profile returns the capability profile for this agent. The zero profile is
// returned for identifiers outside the closed set; use ParseAgentID first.
func (a AgentID) Profile() AgentProfile { return agentProfiles[a] }

// DisplayName returns the human-readable name for this agent.
func (a AgentID) DisplayName() string {
	if p, ok := agentProfiles[a]; ok {
		return p.DisplayName
	}
	return string(a)
}

// Agents returns the closed set of agent identifiers in stable order.
func Agents() []AgentID {
	return []AgentID{
		AgentStrategist, AgentCopywriter, AgentOutreach,
		AgentAnalyst, AgentScheduler, AgentGeneralist,
	}
}
