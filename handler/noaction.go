package handler

import (
	"context"

	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"go.uber.org/zap"
)

const noActionSchema = `{
	"type": "object",
	"properties": {
		"reason": {"type": "string"}
	}
}`

var _ Handler = new(NoActionHandler)

// NoActionHandler records the deliberate choice to do nothing. It writes no
// domain record.
type NoActionHandler struct {
	baseHandler
}

func NewNoActionHandler(deps Deps) *NoActionHandler {
	return &NoActionHandler{
		baseHandler: newBaseHandler(model.ACTION_TYPE_NO_ACTION, noActionSchema, deps),
	}
}

func (h *NoActionHandler) ValidateDetails(ctx context.Context, action *model.ProposedAction, pctx *model.PipelineContext) model.Result[model.Details] {
	if err := h.validateSchema(action.Details); err != nil {
		logger.Debug("no-action details failed schema validation", zap.String("action", action.Id), zap.Error(err))
		return model.Skipped[model.Details](err.Error())
	}
	decoded, err := model.DecodeDetails(model.ACTION_TYPE_NO_ACTION, action.Details)
	if err != nil {
		return model.Skipped[model.Details](err.Error())
	}
	return model.Ok(decoded)
}

func (h *NoActionHandler) ComposeContent(ctx context.Context, action *model.ProposedAction, details model.Details, pctx *model.PipelineContext, in *ComposeInput) model.Result[model.Details] {
	return model.Ok(details)
}

func (h *NoActionHandler) Execute(ctx context.Context, action *model.ProposedAction, details model.Details, identity model.Identity, tx persistence.Tx) (*model.ExecutionResult, error) {
	if h.isDisabled() {
		return h.disabledResult(action), nil
	}
	return &model.ExecutionResult{
		ActionId:   action.Id,
		ActionType: model.ACTION_TYPE_NO_ACTION,
		Outcome:    model.EXEC_NOOP,
	}, nil
}
