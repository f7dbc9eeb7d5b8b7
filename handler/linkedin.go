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

const linkedInSchema = `{
	"type": "object",
	"properties": {
		"contactEmail": {"type": "string", "format": "email"},
		"profileUrl": {"type": "string"},
		"message": {"type": ["string", "null"]}
	},
	"required": ["contactEmail"]
}`

var _ Handler = new(LinkedInMessageHandler)

type LinkedInMessageHandler struct {
	baseHandler
}

func NewLinkedInMessageHandler(deps Deps) *LinkedInMessageHandler {
	return &LinkedInMessageHandler{
		baseHandler: newBaseHandler(model.ACTION_TYPE_LINKEDIN_MESSAGE, linkedInSchema, deps),
	}
}

func (h *LinkedInMessageHandler) ValidateDetails(ctx context.Context, action *model.ProposedAction, pctx *model.PipelineContext) model.Result[model.Details] {
	if err := h.validateSchema(action.Details); err != nil {
		logger.Debug("linkedin details failed schema validation", zap.String("action", action.Id), zap.Error(err))
		return model.Skipped[model.Details](err.Error())
	}
	decoded, err := model.DecodeDetails(model.ACTION_TYPE_LINKEDIN_MESSAGE, action.Details)
	if err != nil {
		return model.Skipped[model.Details](err.Error())
	}
	details := decoded.(*model.LinkedInMessageDetails)

	if !pctx.ContactEmails()[details.ContactEmail] {
		return model.Skipped[model.Details](fmt.Sprintf("contact %s is not valid for this opportunity", details.ContactEmail))
	}
	return model.Ok[model.Details](details)
}

func (h *LinkedInMessageHandler) ComposeContent(ctx context.Context, action *model.ProposedAction, details model.Details, pctx *model.PipelineContext, in *ComposeInput) model.Result[model.Details] {
	d := details.(*model.LinkedInMessageDetails)
	prompt := compose.BuildPrompt(compose.PromptInput{
		Action:     action,
		Parent:     in.parent(),
		Context:    pctx,
		SubOutputs: in.subOutputs(),
	})
	env := compose.BuildEnvelope("linkedin_message", d.ContactEmail, pctx)
	content, err := h.composeRaw(ctx, action.Id, prompt, env, in.mode(), pctx.Opportunity.OrganizationId)
	if err != nil {
		return model.Failed[model.Details](err)
	}
	message, ok := stringField(content, "message")
	if !ok {
		return model.Failed[model.Details](errMissingContent("message"))
	}
	d.Message = &message
	return model.Ok[model.Details](d)
}

func (h *LinkedInMessageHandler) Execute(ctx context.Context, action *model.ProposedAction, details model.Details, identity model.Identity, tx persistence.Tx) (*model.ExecutionResult, error) {
	if h.isDisabled() {
		return h.disabledResult(action), nil
	}
	d := details.(*model.LinkedInMessageDetails)
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
		Type:          model.ACTION_TYPE_LINKEDIN_MESSAGE,
		Timestamp:     h.now().UTC(),
		Summary:       *d.Message,
		Data: map[string]any{
			"contactId":  contact.Id,
			"profileUrl": d.ProfileUrl,
		},
		SourceActionId:   action.Id,
		SourceActionType: model.ACTION_TYPE_LINKEDIN_MESSAGE,
	}
	if err := tx.InsertActivity(ctx, record); err != nil {
		return nil, err
	}
	return &model.ExecutionResult{
		ActionId:        action.Id,
		ActionType:      model.ACTION_TYPE_LINKEDIN_MESSAGE,
		Outcome:         model.EXEC_CREATED,
		CreatedRecordId: record.Id,
	}, nil
}
