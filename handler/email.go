package handler

import (
	"context"

	"github.com/closeloop/actionpipe/cache"
	"github.com/closeloop/actionpipe/compose"
	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const emailSchema = `{
	"type": "object",
	"properties": {
		"to": {"type": "array", "items": {"type": "string", "format": "email"}},
		"cc": {"type": "array", "items": {"type": "string", "format": "email"}},
		"replyToMessageId": {"type": ["string", "null"]},
		"threadId": {"type": ["string", "null"]},
		"subject": {"type": ["string", "null"]},
		"body": {"type": ["string", "null"]}
	},
	"required": ["to"]
}`

var _ Handler = new(EmailHandler)

type EmailHandler struct {
	baseHandler
	lookupCache *cache.EmailLookupCache
}

func NewEmailHandler(deps Deps) *EmailHandler {
	return &EmailHandler{
		baseHandler: newBaseHandler(model.ACTION_TYPE_EMAIL, emailSchema, deps),
		lookupCache: deps.EmailCache,
	}
}

func (h *EmailHandler) ValidateDetails(ctx context.Context, action *model.ProposedAction, pctx *model.PipelineContext) model.Result[model.Details] {
	if err := h.validateSchema(action.Details); err != nil {
		logger.Debug("email details failed schema validation", zap.String("action", action.Id), zap.Error(err))
		return model.Skipped[model.Details](err.Error())
	}
	decoded, err := model.DecodeDetails(model.ACTION_TYPE_EMAIL, action.Details)
	if err != nil {
		return model.Skipped[model.Details](err.Error())
	}
	details := decoded.(*model.EmailDetails)

	validEmails := pctx.ContactEmails()
	details.To = filterValidEmails(details.To, validEmails)
	details.Cc = filterValidEmails(details.Cc, validEmails)
	if len(details.To) == 0 {
		return model.Skipped[model.Details]("no valid recipients")
	}

	if res := h.reconcileThread(ctx, details, pctx); !res.IsOk() {
		return res
	}
	return model.Ok[model.Details](details)
}

// reconcileThread resolves a reply reference to a canonical message identity:
// in-memory context first, then the store by message identity, then by record
// identity. The thread id is force-corrected to the resolved message's
// thread; if nothing resolves, both fields are cleared. A thread id supplied
// without a reply reference is checked for existence on its own.
func (h *EmailHandler) reconcileThread(ctx context.Context, details *model.EmailDetails, pctx *model.PipelineContext) model.Result[model.Details] {
	if details.ReplyToMessageId != nil {
		ref := *details.ReplyToMessageId
		resolved, err := h.resolveReply(ctx, ref, pctx)
		if err != nil {
			return model.Failed[model.Details](err)
		}
		if resolved == nil {
			logger.Debug("reply reference unresolvable, clearing linkage", zap.String("replyTo", ref))
			details.ReplyToMessageId = nil
			details.ThreadId = nil
			return model.Ok[model.Details](details)
		}
		if details.ThreadId != nil && *details.ThreadId != resolved.ThreadId {
			logger.Debug("thread id corrected to match resolved message",
				zap.String("supplied", *details.ThreadId),
				zap.String("resolved", resolved.ThreadId))
		}
		details.ReplyToMessageId = &resolved.MessageId
		threadId := resolved.ThreadId
		details.ThreadId = &threadId
		return model.Ok[model.Details](details)
	}

	if details.ThreadId != nil {
		exists, err := h.threadExists(ctx, *details.ThreadId, pctx)
		if err != nil {
			return model.Failed[model.Details](err)
		}
		if !exists {
			logger.Debug("thread id not found, clearing", zap.String("threadId", *details.ThreadId))
			details.ThreadId = nil
		}
	}
	return model.Ok[model.Details](details)
}

func (h *EmailHandler) resolveReply(ctx context.Context, ref string, pctx *model.PipelineContext) (*model.EmailActivity, error) {
	for i := range pctx.RecentEmails {
		if pctx.RecentEmails[i].MessageId == ref {
			return &pctx.RecentEmails[i], nil
		}
	}
	if h.lookupCache != nil {
		if resolved, found := h.lookupCache.GetResolved(ref); found {
			return resolved, nil
		}
	}
	resolved, err := h.store.GetEmailActivityByMessageId(ctx, ref)
	if err != nil && !persistence.IsNotFound(err) {
		return nil, err
	}
	if resolved == nil {
		resolved, err = h.store.GetEmailActivity(ctx, ref)
		if err != nil {
			if persistence.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
	}
	if h.lookupCache != nil {
		h.lookupCache.SaveResolved(ref, resolved)
	}
	return resolved, nil
}

func (h *EmailHandler) threadExists(ctx context.Context, threadId string, pctx *model.PipelineContext) (bool, error) {
	for i := range pctx.RecentEmails {
		if pctx.RecentEmails[i].ThreadId == threadId {
			return true, nil
		}
	}
	return h.store.ThreadExists(ctx, threadId)
}

func (h *EmailHandler) ComposeContent(ctx context.Context, action *model.ProposedAction, details model.Details, pctx *model.PipelineContext, in *ComposeInput) model.Result[model.Details] {
	d := details.(*model.EmailDetails)
	prompt := compose.BuildPrompt(compose.PromptInput{
		Action:     action,
		Parent:     in.parent(),
		Context:    pctx,
		SubOutputs: in.subOutputs(),
	})
	env := compose.BuildEnvelope("email", d.To[0], pctx)
	content, err := h.composeRaw(ctx, action.Id, prompt, env, in.mode(), pctx.Opportunity.OrganizationId)
	if err != nil {
		return model.Failed[model.Details](err)
	}
	subject, okSubject := stringField(content, "subject")
	body, okBody := stringField(content, "body")
	if !okSubject || !okBody {
		return model.Failed[model.Details](errMissingContent("subject, body"))
	}
	d.Subject = &subject
	d.Body = &body
	return model.Ok[model.Details](d)
}

func (h *EmailHandler) Execute(ctx context.Context, action *model.ProposedAction, details model.Details, identity model.Identity, tx persistence.Tx) (*model.ExecutionResult, error) {
	if h.isDisabled() {
		return h.disabledResult(action), nil
	}
	d := details.(*model.EmailDetails)
	if !d.ContentReady() {
		return nil, errContentNotComposed(action)
	}
	opp, err := tx.GetOpportunity(ctx, action.OpportunityId)
	if err != nil {
		return nil, err
	}

	threadId := uuid.New().String()
	if d.ThreadId != nil {
		threadId = *d.ThreadId
	}
	record := &model.EmailActivity{
		Id:               uuid.New().String(),
		OpportunityId:    opp.Id,
		MessageId:        uuid.New().String(),
		ThreadId:         threadId,
		From:             identity.UserId,
		To:               d.To,
		Subject:          *d.Subject,
		Body:             *d.Body,
		Timestamp:        h.now().UTC(),
		SourceActionId:   action.Id,
		SourceActionType: model.ACTION_TYPE_EMAIL,
	}
	if err := tx.InsertEmailActivity(ctx, record); err != nil {
		return nil, err
	}
	return &model.ExecutionResult{
		ActionId:        action.Id,
		ActionType:      model.ACTION_TYPE_EMAIL,
		Outcome:         model.EXEC_CREATED,
		CreatedRecordId: record.Id,
	}, nil
}
