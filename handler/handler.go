package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/closeloop/actionpipe/cache"
	"github.com/closeloop/actionpipe/compose"
	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

// Handler is the per-type capability bundle: a structural schema for the
// details payload, business-rule validation, content composition and
// transactional execution.
type Handler interface {
	Type() model.ActionType
	Schema() *jsonschema.Schema
	// ValidateDetails runs schema validation and then the type's business
	// rules. Skipped means the action is dropped, not escalated.
	ValidateDetails(ctx context.Context, action *model.ProposedAction, pctx *model.PipelineContext) model.Result[model.Details]
	// ComposeContent fills the content fields of details. A non-nil parent in
	// the input selects lookup mode; composition mode otherwise.
	ComposeContent(ctx context.Context, action *model.ProposedAction, details model.Details, pctx *model.PipelineContext, in *ComposeInput) model.Result[model.Details]
	// Execute creates the side-effecting domain record inside the supplied
	// transaction scope. It never mutates the action's status.
	Execute(ctx context.Context, action *model.ProposedAction, details model.Details, identity model.Identity, tx persistence.Tx) (*model.ExecutionResult, error)
}

// ComposeInput carries the dependency context for a composition call.
type ComposeInput struct {
	Parent     *model.ProposedAction
	SubOutputs []compose.SubOutput
}

func (in *ComposeInput) mode() compose.Mode {
	if in != nil && in.Parent != nil {
		return compose.MODE_LOOKUP
	}
	return compose.MODE_COMPOSITION
}

func (in *ComposeInput) parent() *model.ProposedAction {
	if in == nil {
		return nil
	}
	return in.Parent
}

func (in *ComposeInput) subOutputs() []compose.SubOutput {
	if in == nil {
		return nil
	}
	return in.SubOutputs
}

// Deps bundles the collaborators shared by all handlers.
type Deps struct {
	Store      persistence.Store
	Workflow   compose.WorkflowClient
	Disabled   map[model.ActionType]bool
	EmailCache *cache.EmailLookupCache
	// Now is the clock used for schedule normalization. Defaults to time.Now.
	Now func() time.Time
}

type baseHandler struct {
	actionType model.ActionType
	schema     *jsonschema.Schema
	store      persistence.Store
	workflow   compose.WorkflowClient
	disabled   map[model.ActionType]bool
	now        func() time.Time
}

func newBaseHandler(actionType model.ActionType, schemaDoc string, deps Deps) baseHandler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return baseHandler{
		actionType: actionType,
		schema:     mustCompileSchema(actionType, schemaDoc),
		store:      deps.Store,
		workflow:   deps.Workflow,
		disabled:   deps.Disabled,
		now:        now,
	}
}

func mustCompileSchema(actionType model.ActionType, doc string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	// format keywords are annotation-only under 2020-12 unless asserted
	c.AssertFormat = true
	schemaURL := fmt.Sprintf("https://closeloop.schemas.local/actions/%s.schema.json", strings.ToLower(string(actionType)))
	if err := c.AddResource(schemaURL, strings.NewReader(doc)); err != nil {
		panic(fmt.Sprintf("schema load failed for %s: %v", actionType, err))
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("schema compile failed for %s: %v", actionType, err))
	}
	return compiled
}

func (b *baseHandler) Type() model.ActionType { return b.actionType }

func (b *baseHandler) Schema() *jsonschema.Schema { return b.schema }

func (b *baseHandler) isDisabled() bool { return b.disabled[b.actionType] }

// validateSchema checks the raw details payload against the type's schema.
func (b *baseHandler) validateSchema(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("details payload is empty")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("details payload is not valid json: %w", err)
	}
	return b.schema.Validate(v)
}

// composeRaw calls the composition workflow. Transport failures are logged
// and returned as-is; the caller turns them into a Failed stage result.
func (b *baseHandler) composeRaw(ctx context.Context, actionId string, prompt string, env compose.ContextEnvelope, mode compose.Mode, orgId string) (map[string]any, error) {
	content, err := b.workflow.Compose(ctx, compose.Request{
		OrganizationId: orgId,
		Prompt:         prompt,
		Context:        env,
		ActionMode:     mode,
	})
	if err != nil {
		logger.Error("composition workflow call failed",
			zap.String("action", actionId),
			zap.String("type", string(b.actionType)),
			zap.Error(err))
		return nil, err
	}
	return content, nil
}

func (b *baseHandler) disabledResult(action *model.ProposedAction) *model.ExecutionResult {
	logger.Info("action type disabled, skipping execution",
		zap.String("action", action.Id),
		zap.String("type", string(b.actionType)))
	return &model.ExecutionResult{
		ActionId:   action.Id,
		ActionType: b.actionType,
		Outcome:    model.EXEC_DISABLED,
	}
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func filterValidEmails(in []string, valid map[string]bool) []string {
	out := make([]string, 0, len(in))
	for _, email := range in {
		if valid[email] {
			out = append(out, email)
		}
	}
	return out
}

// normalizeSchedule defaults a missing schedule to now and clamps a past one
// to the next calendar day, keeping the wall-clock time. Output is UTC,
// whole-second, RFC 3339.
func normalizeSchedule(scheduledFor string, now time.Time) (string, error) {
	now = now.UTC().Truncate(time.Second)
	if scheduledFor == "" {
		return now.Format(time.RFC3339), nil
	}
	t, err := time.Parse(time.RFC3339, scheduledFor)
	if err != nil {
		return "", fmt.Errorf("invalid schedule %q: %w", scheduledFor, err)
	}
	t = t.UTC().Truncate(time.Second)
	if t.Before(now) {
		tomorrow := now.AddDate(0, 0, 1)
		t = time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	}
	return t.Format(time.RFC3339), nil
}

const dateLayout = "2006-01-02"

// normalizeDueDate clamps any due date before tomorrow to tomorrow's calendar
// date; a missing one defaults to now, which the clamp then moves to
// tomorrow as well.
func normalizeDueDate(dueDate string, now time.Time) (string, error) {
	now = now.UTC()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	if dueDate == "" {
		return tomorrow.Format(dateLayout), nil
	}
	d, err := time.Parse(dateLayout, dueDate)
	if err != nil {
		return "", fmt.Errorf("invalid due date %q: %w", dueDate, err)
	}
	if d.Before(tomorrow) {
		return tomorrow.Format(dateLayout), nil
	}
	return d.Format(dateLayout), nil
}
