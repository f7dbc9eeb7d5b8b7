package model

import "time"

type Opportunity struct {
	Id              string         `json:"id"`
	OrganizationId  string         `json:"organizationId"`
	Name            string         `json:"name"`
	Stage           string         `json:"stage"`
	Value           float64        `json:"value"`
	CustomerSummary string         `json:"customerSummary,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
}

type Contact struct {
	Id            string `json:"id"`
	OpportunityId string `json:"opportunityId"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role,omitempty"`
	Engagement    string `json:"engagement,omitempty"`
	Relationship  string `json:"relationship,omitempty"`
}

type Activity struct {
	Id            string         `json:"id"`
	OpportunityId string         `json:"opportunityId"`
	Type          ActionType     `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	Summary       string         `json:"summary,omitempty"`
	ScheduledFor  string         `json:"scheduledFor,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	// Provenance links the record back to the pipeline action that created it.
	SourceActionId   string     `json:"sourceActionId,omitempty"`
	SourceActionType ActionType `json:"sourceActionType,omitempty"`
}

type EmailActivity struct {
	Id            string    `json:"id"`
	OpportunityId string    `json:"opportunityId"`
	MessageId     string    `json:"messageId"`
	ThreadId      string    `json:"threadId"`
	From          string    `json:"from"`
	To            []string  `json:"to"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	SourceActionId   string     `json:"sourceActionId,omitempty"`
	SourceActionType ActionType `json:"sourceActionType,omitempty"`
}

// PipelineContext is the read-only bundle every stage receives: the owning
// opportunity, its contacts and a bounded window of recent activity.
type PipelineContext struct {
	Opportunity      *Opportunity    `json:"opportunity"`
	Contacts         []Contact       `json:"contacts"`
	RecentActivities []Activity      `json:"recentActivities,omitempty"`
	RecentEmails     []EmailActivity `json:"recentEmails,omitempty"`
}

// ContactEmails returns the set of emails considered valid recipients for the
// opportunity.
func (p *PipelineContext) ContactEmails() map[string]bool {
	emails := make(map[string]bool, len(p.Contacts))
	for _, c := range p.Contacts {
		if c.Email != "" {
			emails[c.Email] = true
		}
	}
	return emails
}

func (p *PipelineContext) ContactByEmail(email string) *Contact {
	for i := range p.Contacts {
		if p.Contacts[i].Email == email {
			return &p.Contacts[i]
		}
	}
	return nil
}
