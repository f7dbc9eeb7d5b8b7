package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Details is the typed payload of a proposed action, one concrete struct per
// action type. Content fields start nil and are filled by composition;
// ContentReady reports whether every required content field is set, and
// execution is gated on it.
type Details interface {
	ActionType() ActionType
	ContentReady() bool
	// Summary renders the composed content as plain text. It feeds the
	// synthesis step of a dependent action's composition.
	Summary() string
}

func DecodeDetails(t ActionType, raw json.RawMessage) (Details, error) {
	var (
		d   Details
		err error
	)
	switch t {
	case ACTION_TYPE_EMAIL:
		v := &EmailDetails{}
		err = json.Unmarshal(raw, v)
		d = v
	case ACTION_TYPE_CALL:
		v := &CallDetails{}
		err = json.Unmarshal(raw, v)
		d = v
	case ACTION_TYPE_TASK:
		v := &TaskDetails{}
		err = json.Unmarshal(raw, v)
		d = v
	case ACTION_TYPE_LINKEDIN_MESSAGE:
		v := &LinkedInMessageDetails{}
		err = json.Unmarshal(raw, v)
		d = v
	case ACTION_TYPE_MEETING:
		v := &MeetingDetails{}
		err = json.Unmarshal(raw, v)
		d = v
	case ACTION_TYPE_LOOKUP:
		v := &LookupDetails{}
		err = json.Unmarshal(raw, v)
		d = v
	case ACTION_TYPE_NO_ACTION:
		v := &NoActionDetails{}
		err = json.Unmarshal(raw, v)
		d = v
	case ACTION_TYPE_UPDATE_PIPELINE_STAGE:
		v := &UpdatePipelineStageDetails{}
		err = json.Unmarshal(raw, v)
		d = v
	default:
		return nil, fmt.Errorf("no details payload registered for action type %s", t)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

type EmailDetails struct {
	To               []string `json:"to"`
	Cc               []string `json:"cc,omitempty"`
	ReplyToMessageId *string  `json:"replyToMessageId,omitempty"`
	ThreadId         *string  `json:"threadId,omitempty"`
	Subject          *string  `json:"subject"`
	Body             *string  `json:"body"`
}

func (d *EmailDetails) ActionType() ActionType { return ACTION_TYPE_EMAIL }

func (d *EmailDetails) ContentReady() bool {
	return d.Subject != nil && d.Body != nil
}

func (d *EmailDetails) Summary() string {
	if !d.ContentReady() {
		return ""
	}
	return fmt.Sprintf("Subject: %s\n%s", *d.Subject, *d.Body)
}

type CallDetails struct {
	ContactEmail string  `json:"contactEmail"`
	ScheduledFor string  `json:"scheduledFor,omitempty"`
	Purpose      *string `json:"purpose"`
}

func (d *CallDetails) ActionType() ActionType { return ACTION_TYPE_CALL }

func (d *CallDetails) ContentReady() bool { return d.Purpose != nil }

func (d *CallDetails) Summary() string {
	if d.Purpose == nil {
		return ""
	}
	return *d.Purpose
}

type TaskDetails struct {
	AssigneeEmail string  `json:"assigneeEmail,omitempty"`
	DueDate       string  `json:"dueDate,omitempty"`
	Title         *string `json:"title"`
	Description   *string `json:"description"`
}

func (d *TaskDetails) ActionType() ActionType { return ACTION_TYPE_TASK }

func (d *TaskDetails) ContentReady() bool {
	return d.Title != nil && d.Description != nil
}

func (d *TaskDetails) Summary() string {
	if !d.ContentReady() {
		return ""
	}
	return fmt.Sprintf("%s\n%s", *d.Title, *d.Description)
}

type LinkedInMessageDetails struct {
	ContactEmail string  `json:"contactEmail"`
	ProfileUrl   string  `json:"profileUrl,omitempty"`
	Message      *string `json:"message"`
}

func (d *LinkedInMessageDetails) ActionType() ActionType { return ACTION_TYPE_LINKEDIN_MESSAGE }

func (d *LinkedInMessageDetails) ContentReady() bool { return d.Message != nil }

func (d *LinkedInMessageDetails) Summary() string {
	if d.Message == nil {
		return ""
	}
	return *d.Message
}

type MeetingDetails struct {
	Attendees       []string `json:"attendees"`
	ScheduledFor    string   `json:"scheduledFor,omitempty"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	Title           *string  `json:"title"`
	Agenda          *string  `json:"agenda"`
}

func (d *MeetingDetails) ActionType() ActionType { return ACTION_TYPE_MEETING }

func (d *MeetingDetails) ContentReady() bool {
	return d.Title != nil && d.Agenda != nil
}

func (d *MeetingDetails) Summary() string {
	if !d.ContentReady() {
		return ""
	}
	return fmt.Sprintf("%s\n%s", *d.Title, *d.Agenda)
}

// LookupDetails carries a fact query against CRM data. The answer is produced
// at execution time, not by composition, so there are no content fields to
// gate on.
type LookupDetails struct {
	Source string  `json:"source"`
	Path   string  `json:"path"`
	Answer *string `json:"answer,omitempty"`
}

const LOOKUP_SOURCE_OPPORTUNITY string = "opportunity"
const LOOKUP_SOURCE_ACTIVITIES string = "activities"

func (d *LookupDetails) ActionType() ActionType { return ACTION_TYPE_LOOKUP }

func (d *LookupDetails) ContentReady() bool { return true }

func (d *LookupDetails) Summary() string {
	if d.Answer == nil {
		return ""
	}
	return fmt.Sprintf("%s = %s", d.Path, *d.Answer)
}

type NoActionDetails struct {
	Reason string `json:"reason,omitempty"`
}

func (d *NoActionDetails) ActionType() ActionType { return ACTION_TYPE_NO_ACTION }

func (d *NoActionDetails) ContentReady() bool { return true }

func (d *NoActionDetails) Summary() string { return d.Reason }

type UpdatePipelineStageDetails struct {
	TargetStage string `json:"targetStage"`
	Note        string `json:"note,omitempty"`
}

func (d *UpdatePipelineStageDetails) ActionType() ActionType {
	return ACTION_TYPE_UPDATE_PIPELINE_STAGE
}

func (d *UpdatePipelineStageDetails) ContentReady() bool { return true }

func (d *UpdatePipelineStageDetails) Summary() string {
	return strings.TrimSpace(fmt.Sprintf("move to stage %s %s", d.TargetStage, d.Note))
}
