package handler

import (
	"context"

	"github.com/closeloop/actionpipe/compose"
	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const taskSchema = `{
	"type": "object",
	"properties": {
		"assigneeEmail": {"type": "string"},
		"dueDate": {"type": "string"},
		"title": {"type": ["string", "null"]},
		"description": {"type": ["string", "null"]}
	}
}`

var _ Handler = new(TaskHandler)

type TaskHandler struct {
	baseHandler
}

func NewTaskHandler(deps Deps) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(model.ACTION_TYPE_TASK, taskSchema, deps),
	}
}

func (h *TaskHandler) ValidateDetails(ctx context.Context, action *model.ProposedAction, pctx *model.PipelineContext) model.Result[model.Details] {
	if err := h.validateSchema(action.Details); err != nil {
		logger.Debug("task details failed schema validation", zap.String("action", action.Id), zap.Error(err))
		return model.Skipped[model.Details](err.Error())
	}
	decoded, err := model.DecodeDetails(model.ACTION_TYPE_TASK, action.Details)
	if err != nil {
		return model.Skipped[model.Details](err.Error())
	}
	details := decoded.(*model.TaskDetails)

	dueDate, err := normalizeDueDate(details.DueDate, h.now())
	if err != nil {
		return model.Skipped[model.Details](err.Error())
	}
	details.DueDate = dueDate
	// Tasks are internal, so an assignee outside the contact list is fine;
	// an unknown email is just dropped.
	if details.AssigneeEmail != "" && !pctx.ContactEmails()[details.AssigneeEmail] {
		details.AssigneeEmail = ""
	}
	return model.Ok[model.Details](details)
}

func (h *TaskHandler) ComposeContent(ctx context.Context, action *model.ProposedAction, details model.Details, pctx *model.PipelineContext, in *ComposeInput) model.Result[model.Details] {
	d := details.(*model.TaskDetails)
	prompt := compose.BuildPrompt(compose.PromptInput{
		Action:     action,
		Parent:     in.parent(),
		Context:    pctx,
		SubOutputs: in.subOutputs(),
	})
	env := compose.BuildEnvelope("task", d.AssigneeEmail, pctx)
	content, err := h.composeRaw(ctx, action.Id, prompt, env, in.mode(), pctx.Opportunity.OrganizationId)
	if err != nil {
		return model.Failed[model.Details](err)
	}
	title, okTitle := stringField(content, "title")
	description, okDescription := stringField(content, "description")
	if !okTitle || !okDescription {
		return model.Failed[model.Details](errMissingContent("title, description"))
	}
	d.Title = &title
	d.Description = &description
	return model.Ok[model.Details](d)
}

func (h *TaskHandler) Execute(ctx context.Context, action *model.ProposedAction, details model.Details, identity model.Identity, tx persistence.Tx) (*model.ExecutionResult, error) {
	if h.isDisabled() {
		return h.disabledResult(action), nil
	}
	d := details.(*model.TaskDetails)
	if !d.ContentReady() {
		return nil, errContentNotComposed(action)
	}
	opp, err := tx.GetOpportunity(ctx, action.OpportunityId)
	if err != nil {
		return nil, err
	}

	record := &model.Activity{
		Id:            uuid.New().String(),
		OpportunityId: opp.Id,
		Type:          model.ACTION_TYPE_TASK,
		Timestamp:     h.now().UTC(),
		Summary:       *d.Title,
		ScheduledFor:  d.DueDate,
		Data: map[string]any{
			"description":   *d.Description,
			"assigneeEmail": d.AssigneeEmail,
			"dueDate":       d.DueDate,
		},
		SourceActionId:   action.Id,
		SourceActionType: model.ACTION_TYPE_TASK,
	}
	if err := tx.InsertActivity(ctx, record); err != nil {
		return nil, err
	}
	return &model.ExecutionResult{
		ActionId:        action.Id,
		ActionType:      model.ACTION_TYPE_TASK,
		Outcome:         model.EXEC_CREATED,
		CreatedRecordId: record.Id,
		ScheduledFor:    d.DueDate,
	}, nil
}
