// Package prompt builds system prompts for agent capabilities. Building is a
// pure function of the agent identity and the goal's context snapshot; the
// engine never caches results, so a Builder must be cheap to call.
package prompt

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/goalmesh/goalmesh/core"
)

// systemTemplate renders the full system prompt from an agent profile and a
// context snapshot. Kept as one template so the prompt shape is auditable in
// a single place.
const systemTemplate = `You are {{.DisplayName}}, an autonomous {{.AgentID}} agent working for a small business.

MISSION:
{{.Mission}}
{{- if .Extra}}

ADDITIONAL GUIDANCE:
{{.Extra}}
{{- end}}

CURRENT GOAL ({{.Intent}} / {{.Priority}} priority):
{{.Command}}
{{- if .Business}}

BUSINESS PROFILE:
{{- range .Business}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Completed}}

WORK ALREADY COMPLETED BY OTHER AGENTS:
{{- range .Completed}}
- {{.}}
{{- end}}
{{- end}}

OUTPUT FORMAT:
Respond with a single JSON object:
{"summary": "<one-sentence summary of what you produced>", "outputs": [{"type": "post|email|report|message|document", "title": "<title>", "content": "<full content>"}]}
Return only the JSON object.`

// Options configures a Builder.
type Options struct {
	// Business is a static profile (name, industry, tone, audience) included
	// in every prompt so agents write in the right voice.
	Business map[string]string

	// AgentExtras appends per-agent guidance after the default mission text.
	AgentExtras map[core.AgentID]string
}

// Builder renders system prompts from agent profiles. It implements
// core.PromptBuilder and is safe for concurrent use; all fields are
// immutable after construction.
type Builder struct {
	tmpl *template.Template
	opts Options
}

// NewBuilder constructs a Builder. The prompt template is parsed once here;
// parse failure is a programming error and panics at construction time.
func NewBuilder(optFns ...func(o *Options)) *Builder {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Builder{
		tmpl: template.Must(template.New("system").Parse(systemTemplate)),
		opts: opts,
	}
}

// WithBusiness sets the static business profile lines.
func WithBusiness(business map[string]string) func(o *Options) {
	return func(o *Options) { o.Business = business }
}

// WithAgentExtras sets per-agent guidance appended after the mission text.
func WithAgentExtras(extras map[core.AgentID]string) func(o *Options) {
	return func(o *Options) { o.AgentExtras = extras }
}

// BuildPrompt implements core.PromptBuilder.
func (b *Builder) BuildPrompt(agent core.AgentID, snapshot core.ContextSnapshot) (string, error) {
	profile := agent.Profile()
	if profile.ID == "" {
		return "", fmt.Errorf("prompt: unknown agent %q", agent)
	}

	business := make([]string, 0, len(b.opts.Business)+len(snapshot.Business))
	for k, v := range b.opts.Business {
		business = append(business, k+": "+v)
	}
	for k, v := range snapshot.Business {
		business = append(business, k+": "+v)
	}
	sort.Strings(business)

	completed := make([]string, 0, len(snapshot.Completed))
	for _, d := range snapshot.Completed {
		completed = append(completed, d.Agent.DisplayName()+": "+d.Summary)
	}

	data := struct {
		DisplayName string
		AgentID     core.AgentID
		Mission     string
		Extra       string
		Intent      core.IntentTag
		Priority    core.Priority
		Command     string
		Business    []string
		Completed   []string
	}{
		DisplayName: profile.DisplayName,
		AgentID:     profile.ID,
		Mission:     profile.Mission,
		Extra:       strings.TrimSpace(b.opts.AgentExtras[agent]),
		Intent:      snapshot.Intent,
		Priority:    snapshot.Priority,
		Command:     snapshot.Command,
		Business:    business,
		Completed:   completed,
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompt: render system prompt: %w", err)
	}
	return buf.String(), nil
}
