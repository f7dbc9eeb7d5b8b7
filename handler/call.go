package handler

import (
	"context"
	"fmt"

	"github.com/closeloop/actionpipe/compose"
	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const callSchema = `{
	"type": "object",
	"properties": {
		"contactEmail": {"type": "string", "format": "email"},
		"scheduledFor": {"type": "string"},
		"purpose": {"type": ["string", "null"]}
	},
	"required": ["contactEmail"]
}`

var _ Handler = new(CallHandler)

type CallHandler struct {
	baseHandler
}

func NewCallHandler(deps Deps) *CallHandler {
	return &CallHandler{
		baseHandler: newBaseHandler(model.ACTION_TYPE_CALL, callSchema, deps),
	}
}

func (h *CallHandler) ValidateDetails(ctx context.Context, action *model.ProposedAction, pctx *model.PipelineContext) model.Result[model.Details] {
	if err := h.validateSchema(action.Details); err != nil {
		logger.Debug("call details failed schema validation", zap.String("action", action.Id), zap.Error(err))
		return model.Skipped[model.Details](err.Error())
	}
	decoded, err := model.DecodeDetails(model.ACTION_TYPE_CALL, action.Details)
	if err != nil {
		return model.Skipped[model.Details](err.Error())
	}
	details := decoded.(*model.CallDetails)

	if !pctx.ContactEmails()[details.ContactEmail] {
		return model.Skipped[model.Details](fmt.Sprintf("contact %s is not valid for this opportunity", details.ContactEmail))
	}
	scheduledFor, err := normalizeSchedule(details.ScheduledFor, h.now())
	if err != nil {
		return model.Skipped[model.Details](err.Error())
	}
	details.ScheduledFor = scheduledFor
	return model.Ok[model.Details](details)
}

func (h *CallHandler) ComposeContent(ctx context.Context, action *model.ProposedAction, details model.Details, pctx *model.PipelineContext, in *ComposeInput) model.Result[model.Details] {
	d := details.(*model.CallDetails)
	prompt := compose.BuildPrompt(compose.PromptInput{
		Action:     action,
		Parent:     in.parent(),
		Context:    pctx,
		SubOutputs: in.subOutputs(),
	})
	env := compose.BuildEnvelope("call", d.ContactEmail, pctx)
	content, err := h.composeRaw(ctx, action.Id, prompt, env, in.mode(), pctx.Opportunity.OrganizationId)
	if err != nil {
		return model.Failed[model.Details](err)
	}
	purpose, ok := stringField(content, "purpose")
	if !ok {
		return model.Failed[model.Details](errMissingContent("purpose"))
	}
	d.Purpose = &purpose
	return model.Ok[model.Details](d)
}

func (h *CallHandler) Execute(ctx context.Context, action *model.ProposedAction, details model.Details, identity model.Identity, tx persistence.Tx) (*model.ExecutionResult, error) {
	if h.isDisabled() {
		return h.disabledResult(action), nil
	}
	d := details.(*model.CallDetails)
	if !d.ContentReady() {
		return nil, errContentNotComposed(action)
	}
	opp, err := tx.GetOpportunity(ctx, action.OpportunityId)
	if err != nil {
		return nil, err
	}
	contact, err := tx.GetContactByEmail(ctx, opp.Id, d.ContactEmail)
	if err != nil {
		return nil, err
	}

	record := &model.Activity{
		Id:            uuid.New().String(),
		OpportunityId: opp.Id,
		Type:          model.ACTION_TYPE_CALL,
		Timestamp:     h.now().UTC(),
		Summary:       *d.Purpose,
		ScheduledFor:  d.ScheduledFor,
		Data: map[string]any{
			"contactId":    contact.Id,
			"contactEmail": contact.Email,
		},
		SourceActionId:   action.Id,
		SourceActionType: model.ACTION_TYPE_CALL,
	}
	if err := tx.InsertActivity(ctx, record); err != nil {
		return nil, err
	}
	return &model.ExecutionResult{
		ActionId:        action.Id,
		ActionType:      model.ACTION_TYPE_CALL,
		Outcome:         model.EXEC_CREATED,
		CreatedRecordId: record.Id,
		ScheduledFor:    d.ScheduledFor,
	}, nil
}
