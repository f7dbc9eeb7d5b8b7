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

const meetingSchema = `{
	"type": "object",
	"properties": {
		"attendees": {"type": "array", "items": {"type": "string", "format": "email"}},
		"scheduledFor": {"type": "string"},
		"durationMinutes": {"type": "integer", "minimum": 0, "maximum": 480},
		"title": {"type": ["string", "null"]},
		"agenda": {"type": ["string", "null"]}
	},
	"required": ["attendees"]
}`

const defaultMeetingMinutes = 30

var _ Handler = new(MeetingHandler)

type MeetingHandler struct {
	baseHandler
}

func NewMeetingHandler(deps Deps) *MeetingHandler {
	return &MeetingHandler{
		baseHandler: newBaseHandler(model.ACTION_TYPE_MEETING, meetingSchema, deps),
	}
}

func (h *MeetingHandler) ValidateDetails(ctx context.Context, action *model.ProposedAction, pctx *model.PipelineContext) model.Result[model.Details] {
	if err := h.validateSchema(action.Details); err != nil {
		logger.Debug("meeting details failed schema validation", zap.String("action", action.Id), zap.Error(err))
		return model.Skipped[model.Details](err.Error())
	}
	decoded, err := model.DecodeDetails(model.ACTION_TYPE_MEETING, action.Details)
	if err != nil {
		return model.Skipped[model.Details](err.Error())
	}
	details := decoded.(*model.MeetingDetails)

	details.Attendees = filterValidEmails(details.Attendees, pctx.ContactEmails())
	if len(details.Attendees) == 0 {
		return model.Skipped[model.Details]("no valid attendees")
	}
	scheduledFor, err := normalizeSchedule(details.ScheduledFor, h.now())
	if err != nil {
		return model.Skipped[model.Details](err.Error())
	}
	details.ScheduledFor = scheduledFor
	if details.DurationMinutes == 0 {
		details.DurationMinutes = defaultMeetingMinutes
	}
	return model.Ok[model.Details](details)
}

func (h *MeetingHandler) ComposeContent(ctx context.Context, action *model.ProposedAction, details model.Details, pctx *model.PipelineContext, in *ComposeInput) model.Result[model.Details] {
	d := details.(*model.MeetingDetails)
	prompt := compose.BuildPrompt(compose.PromptInput{
		Action:     action,
		Parent:     in.parent(),
		Context:    pctx,
		SubOutputs: in.subOutputs(),
	})
	env := compose.BuildEnvelope("meeting", d.Attendees[0], pctx)
	content, err := h.composeRaw(ctx, action.Id, prompt, env, in.mode(), pctx.Opportunity.OrganizationId)
	if err != nil {
		return model.Failed[model.Details](err)
	}
	title, okTitle := stringField(content, "title")
	agenda, okAgenda := stringField(content, "agenda")
	if !okTitle || !okAgenda {
		return model.Failed[model.Details](errMissingContent("title, agenda"))
	}
	d.Title = &title
	d.Agenda = &agenda
	return model.Ok[model.Details](d)
}

func (h *MeetingHandler) Execute(ctx context.Context, action *model.ProposedAction, details model.Details, identity model.Identity, tx persistence.Tx) (*model.ExecutionResult, error) {
	if h.isDisabled() {
		return h.disabledResult(action), nil
	}
	d := details.(*model.MeetingDetails)
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
		Type:          model.ACTION_TYPE_MEETING,
		Timestamp:     h.now().UTC(),
		Summary:       *d.Title,
		ScheduledFor:  d.ScheduledFor,
		Data: map[string]any{
			"attendees":       d.Attendees,
			"durationMinutes": d.DurationMinutes,
			"agenda":          *d.Agenda,
		},
		SourceActionId:   action.Id,
		SourceActionType: model.ACTION_TYPE_MEETING,
	}
	if err := tx.InsertActivity(ctx, record); err != nil {
		return nil, err
	}
	return &model.ExecutionResult{
		ActionId:        action.Id,
		ActionType:      model.ACTION_TYPE_MEETING,
		Outcome:         model.EXEC_CREATED,
		CreatedRecordId: record.Id,
		ScheduledFor:    d.ScheduledFor,
	}, nil
}
