package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ActionType string

const ACTION_TYPE_EMAIL ActionType = "EMAIL"
const ACTION_TYPE_CALL ActionType = "CALL"
const ACTION_TYPE_TASK ActionType = "TASK"
const ACTION_TYPE_LINKEDIN_MESSAGE ActionType = "LINKEDIN_MESSAGE"
const ACTION_TYPE_MEETING ActionType = "MEETING"
const ACTION_TYPE_LOOKUP ActionType = "LOOKUP"
const ACTION_TYPE_NO_ACTION ActionType = "NO_ACTION"
const ACTION_TYPE_UPDATE_PIPELINE_STAGE ActionType = "UPDATE_PIPELINE_STAGE"

var allActionTypes = []ActionType{
	ACTION_TYPE_EMAIL,
	ACTION_TYPE_CALL,
	ACTION_TYPE_TASK,
	ACTION_TYPE_LINKEDIN_MESSAGE,
	ACTION_TYPE_MEETING,
	ACTION_TYPE_LOOKUP,
	ACTION_TYPE_NO_ACTION,
	ACTION_TYPE_UPDATE_PIPELINE_STAGE,
}

func ToActionType(at string) (ActionType, error) {
	for _, t := range allActionTypes {
		if strings.EqualFold(string(t), at) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown action type %s", at)
}

type ActionStatus string

const STATUS_PROPOSED ActionStatus = "PROPOSED"
const STATUS_COMPLETED ActionStatus = "COMPLETED"
const STATUS_CANCELLED ActionStatus = "CANCELLED"

func (s ActionStatus) Terminal() bool {
	return s == STATUS_COMPLETED || s == STATUS_CANCELLED
}

// ProposedAction is a main action proposed by the upstream agent, together
// with its sub-actions. Sub-actions reuse the same shape but may not nest
// further; the orchestrator rejects a second level of nesting.
type ProposedAction struct {
	Id                string            `json:"id"`
	Type              ActionType        `json:"type"`
	OpportunityId     string            `json:"opportunityId"`
	Details           json.RawMessage   `json:"details"`
	Reasoning         string            `json:"reasoning"`
	SourceActivityIds []string          `json:"sourceActivityIds,omitempty"`
	DependsOn         []string          `json:"dependsOn,omitempty"`
	SubActions        []*ProposedAction `json:"subActions,omitempty"`
	Priority          int               `json:"priority"`
	Status            ActionStatus      `json:"status"`
}

// Identity is the principal on whose behalf actions are executed. Created
// domain records are attributed to it.
type Identity struct {
	UserId         string `json:"userId"`
	OrganizationId string `json:"organizationId"`
}

type PipelineRequest struct {
	Action   *ProposedAction  `json:"action"`
	Context  *PipelineContext `json:"context"`
	Identity Identity         `json:"identity"`
}
