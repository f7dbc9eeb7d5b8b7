package handler

import (
	"context"
	"fmt"

	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const updatePipelineStageSchema = `{
	"type": "object",
	"properties": {
		"targetStage": {
			"type": "string",
			"enum": ["prospecting", "qualification", "proposal", "negotiation", "closed_won", "closed_lost"]
		},
		"note": {"type": "string"}
	},
	"required": ["targetStage"]
}`

var _ Handler = new(UpdatePipelineStageHandler)

type UpdatePipelineStageHandler struct {
	baseHandler
}

func NewUpdatePipelineStageHandler(deps Deps) *UpdatePipelineStageHandler {
	return &UpdatePipelineStageHandler{
		baseHandler: newBaseHandler(model.ACTION_TYPE_UPDATE_PIPELINE_STAGE, updatePipelineStageSchema, deps),
	}
}

func (h *UpdatePipelineStageHandler) ValidateDetails(ctx context.Context, action *model.ProposedAction, pctx *model.PipelineContext) model.Result[model.Details] {
	if err := h.validateSchema(action.Details); err != nil {
		logger.Debug("stage details failed schema validation", zap.String("action", action.Id), zap.Error(err))
		return model.Skipped[model.Details](err.Error())
	}
	decoded, err := model.DecodeDetails(model.ACTION_TYPE_UPDATE_PIPELINE_STAGE, action.Details)
	if err != nil {
		return model.Skipped[model.Details](err.Error())
	}
	details := decoded.(*model.UpdatePipelineStageDetails)

	if pctx.Opportunity != nil && details.TargetStage == pctx.Opportunity.Stage {
		return model.Skipped[model.Details](fmt.Sprintf("opportunity already in stage %s", details.TargetStage))
	}
	return model.Ok[model.Details](details)
}

func (h *UpdatePipelineStageHandler) ComposeContent(ctx context.Context, action *model.ProposedAction, details model.Details, pctx *model.PipelineContext, in *ComposeInput) model.Result[model.Details] {
	return model.Ok(details)
}

func (h *UpdatePipelineStageHandler) Execute(ctx context.Context, action *model.ProposedAction, details model.Details, identity model.Identity, tx persistence.Tx) (*model.ExecutionResult, error) {
	if h.isDisabled() {
		return h.disabledResult(action), nil
	}
	d := details.(*model.UpdatePipelineStageDetails)
	opp, err := tx.GetOpportunity(ctx, action.OpportunityId)
	if err != nil {
		return nil, err
	}

	if err := tx.UpdateOpportunityStage(ctx, opp.Id, d.TargetStage); err != nil {
		return nil, err
	}
	record := &model.Activity{
		Id:            uuid.New().String(),
		OpportunityId: opp.Id,
		Type:          model.ACTION_TYPE_UPDATE_PIPELINE_STAGE,
		Timestamp:     h.now().UTC(),
		Summary:       d.Summary(),
		Data: map[string]any{
			"fromStage": opp.Stage,
			"toStage":   d.TargetStage,
			"note":      d.Note,
		},
		SourceActionId:   action.Id,
		SourceActionType: model.ACTION_TYPE_UPDATE_PIPELINE_STAGE,
	}
	if err := tx.InsertActivity(ctx, record); err != nil {
		return nil, err
	}
	return &model.ExecutionResult{
		ActionId:        action.Id,
		ActionType:      model.ACTION_TYPE_UPDATE_PIPELINE_STAGE,
		Outcome:         model.EXEC_CREATED,
		CreatedRecordId: record.Id,
	}, nil
}
