package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/google/uuid"
	"github.com/oliveagle/jsonpath"
	"go.uber.org/zap"
)

const lookupSchema = `{
	"type": "object",
	"properties": {
		"source": {"type": "string", "enum": ["opportunity", "activities"]},
		"path": {"type": "string", "minLength": 1},
		"answer": {"type": ["string", "null"]}
	},
	"required": ["source", "path"]
}`

var _ Handler = new(LookupHandler)

// LookupHandler answers a fact query against CRM data with a json path
// expression, the same way flow parameters reference upstream data. The
// answer is produced at execution time, so composition is a pass-through.
type LookupHandler struct {
	baseHandler
}

func NewLookupHandler(deps Deps) *LookupHandler {
	return &LookupHandler{
		baseHandler: newBaseHandler(model.ACTION_TYPE_LOOKUP, lookupSchema, deps),
	}
}

func (h *LookupHandler) ValidateDetails(ctx context.Context, action *model.ProposedAction, pctx *model.PipelineContext) model.Result[model.Details] {
	if err := h.validateSchema(action.Details); err != nil {
		logger.Debug("lookup details failed schema validation", zap.String("action", action.Id), zap.Error(err))
		return model.Skipped[model.Details](err.Error())
	}
	decoded, err := model.DecodeDetails(model.ACTION_TYPE_LOOKUP, action.Details)
	if err != nil {
		return model.Skipped[model.Details](err.Error())
	}
	details := decoded.(*model.LookupDetails)

	if !strings.HasPrefix(details.Path, "$") {
		return model.Skipped[model.Details](fmt.Sprintf("lookup path %q must start with $", details.Path))
	}
	return model.Ok[model.Details](details)
}

func (h *LookupHandler) ComposeContent(ctx context.Context, action *model.ProposedAction, details model.Details, pctx *model.PipelineContext, in *ComposeInput) model.Result[model.Details] {
	return model.Ok[model.Details](details)
}

func (h *LookupHandler) Execute(ctx context.Context, action *model.ProposedAction, details model.Details, identity model.Identity, tx persistence.Tx) (*model.ExecutionResult, error) {
	if h.isDisabled() {
		return h.disabledResult(action), nil
	}
	d := details.(*model.LookupDetails)
	opp, err := tx.GetOpportunity(ctx, action.OpportunityId)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	switch d.Source {
	case model.LOOKUP_SOURCE_OPPORTUNITY:
		data = opp.Data
	case model.LOOKUP_SOURCE_ACTIVITIES:
		activities, err := h.store.ListActivities(ctx, opp.Id)
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, len(activities))
		for _, act := range activities {
			items = append(items, map[string]any{
				"id":        act.Id,
				"type":      string(act.Type),
				"summary":   act.Summary,
				"timestamp": act.Timestamp,
				"data":      act.Data,
			})
		}
		data = map[string]any{"activities": items}
	default:
		return nil, fmt.Errorf("unknown lookup source %s", d.Source)
	}

	value, err := jsonpath.JsonPathLookup(data, d.Path)
	if err != nil {
		return nil, fmt.Errorf("lookup path %s failed: %w", d.Path, err)
	}
	answer := fmt.Sprintf("%v", value)
	d.Answer = &answer

	record := &model.Activity{
		Id:            uuid.New().String(),
		OpportunityId: opp.Id,
		Type:          model.ACTION_TYPE_LOOKUP,
		Timestamp:     h.now().UTC(),
		Summary:       d.Summary(),
		Data: map[string]any{
			"source": d.Source,
			"path":   d.Path,
			"answer": answer,
		},
		SourceActionId:   action.Id,
		SourceActionType: model.ACTION_TYPE_LOOKUP,
	}
	if err := tx.InsertActivity(ctx, record); err != nil {
		return nil, err
	}
	return &model.ExecutionResult{
		ActionId:        action.Id,
		ActionType:      model.ACTION_TYPE_LOOKUP,
		Outcome:         model.EXEC_CREATED,
		CreatedRecordId: record.Id,
		Output:          answer,
	}, nil
}
