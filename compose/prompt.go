package compose

import (
	"fmt"
	"strings"
	"time"

	"github.com/closeloop/actionpipe/model"
)

// SubOutput is the recorded outcome of a completed sub-action, fed into a
// dependent action's synthesis.
type SubOutput struct {
	ActionId string
	Type     model.ActionType
	Content  string
}

type PromptInput struct {
	Action     *model.ProposedAction
	Parent     *model.ProposedAction
	Context    *model.PipelineContext
	SubOutputs []SubOutput
}

// BuildPrompt assembles the structured prompt sent to the composition
// workflow: opportunity identity, the proposer's reasoning, the source
// activities that justify the action, dependency listings, and, when
// completed sub-action outputs are present, a synthesis instruction that
// restricts factual claims to those outputs.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder
	opp := in.Context.Opportunity

	fmt.Fprintf(&b, "Opportunity: %s (stage: %s, value: %.0f)\n", opp.Name, opp.Stage, opp.Value)
	if opp.CustomerSummary != "" {
		fmt.Fprintf(&b, "Customer: %s\n", opp.CustomerSummary)
	}

	fmt.Fprintf(&b, "\nAction type: %s\n", in.Action.Type)
	fmt.Fprintf(&b, "Reasoning: %s\n", in.Action.Reasoning)
	if in.Parent != nil {
		fmt.Fprintf(&b, "Parent action reasoning: %s\n", in.Parent.Reasoning)
	}

	sourceActivities := filterActivities(in.Context.RecentActivities, in.Action.SourceActivityIds)
	if len(sourceActivities) > 0 {
		b.WriteString("\nSource activities:\n")
		for _, act := range sourceActivities {
			summary := act.Summary
			if summary == "" {
				summary = string(act.Type)
			}
			fmt.Fprintf(&b, "- [%s] %s\n", act.Timestamp.UTC().Format(time.RFC3339), summary)
		}
	}

	if len(in.Action.DependsOn) > 0 {
		b.WriteString("\nDepends on:\n")
		for _, dep := range in.Action.DependsOn {
			fmt.Fprintf(&b, "- %s\n", dep)
		}
	}

	if len(in.SubOutputs) > 0 {
		b.WriteString("\nCompleted sub-action outputs:\n")
		for _, out := range in.SubOutputs {
			fmt.Fprintf(&b, "--- %s (%s) ---\n%s\n", out.ActionId, out.Type, out.Content)
		}
		b.WriteString("\nSynthesize the content from the sub-action outputs above. ")
		b.WriteString("They are the sole source of factual claims; consult playbook material only for structure and tone.\n")
	}

	if in.Parent != nil {
		b.WriteString("\nReuse and derive from the completed sibling results above; use playbook material strictly for tone and structure, never to re-derive facts.\n")
	}

	return b.String()
}

// BuildEnvelope derives the typed context envelope for a composition call.
// The audience type comes from the primary recipient's derived role when one
// is known.
func BuildEnvelope(contentType string, audienceEmail string, pctx *model.PipelineContext) ContextEnvelope {
	audience := "unknown"
	if contact := pctx.ContactByEmail(audienceEmail); contact != nil && contact.Role != "" {
		audience = contact.Role
	}
	return ContextEnvelope{
		ContentType:  contentType,
		AudienceType: audience,
		DealStage:    pctx.Opportunity.Stage,
		CustomerInfo: pctx.Opportunity.CustomerSummary,
	}
}

func filterActivities(activities []model.Activity, ids []string) []model.Activity {
	if len(ids) == 0 {
		return nil
	}
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	filtered := make([]model.Activity, 0, len(ids))
	for _, act := range activities {
		if idSet[act.Id] {
			filtered = append(filtered, act)
		}
	}
	return filtered
}
