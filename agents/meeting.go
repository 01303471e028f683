package agents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/careflow-systems/hospital-core/domain/meeting"
	"github.com/careflow-systems/hospital-core/runtime/agent/toolerrors"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

// MeetingAgent owns the Meeting bounded context (spec.md §4.5): scheduled
// care-team discussions, distinct from a patient Appointment.
type MeetingAgent struct {
	meetings meeting.Repository
}

// NewMeetingAgent constructs a MeetingAgent.
func NewMeetingAgent(meetings meeting.Repository) *MeetingAgent {
	return &MeetingAgent{meetings: meetings}
}

// Register adds every Meeting agent tool to reg.
func (a *MeetingAgent) Register(reg *toolregistry.Registry) error {
	specs := []tools.ToolSpec{
		{
			Name:        "meeting.create_meeting",
			OwningAgent: "meeting",
			Description: "Schedule a care-team meeting.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"subject": {"type": "string"},
					"patient_id": {"type": "string"},
					"staff_ids": {"type": "array", "items": {"type": "string"}},
					"start_at": {"type": "string", "format": "date-time"},
					"duration_minutes": {"type": "integer", "minimum": 1},
					"notes": {"type": "string"}
				},
				"required": ["subject", "staff_ids", "start_at", "duration_minutes"]
			}`),
			SideEffecting: true,
			Idempotent:    true,
			Handler:       a.createMeeting,
		},
		{
			Name:        "meeting.get_meeting",
			OwningAgent: "meeting",
			Description: "Fetch a meeting by id.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"id": {"type": "string"}},
				"required": ["id"]
			}`),
			Handler: a.getMeeting,
		},
		{
			Name:        "meeting.list_meetings_by_staff",
			OwningAgent: "meeting",
			Description: "List meetings a staff member is party to.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {"staff_id": {"type": "string"}},
				"required": ["staff_id"]
			}`),
			Handler: a.listMeetingsByStaff,
		},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

type createMeetingArgs struct {
	Subject         string    `json:"subject"`
	PatientID       string    `json:"patient_id"`
	StaffIDs        []string  `json:"staff_ids"`
	StartAt         time.Time `json:"start_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes"`
}

func (a *MeetingAgent) createMeeting(ctx context.Context, raw json.RawMessage) (any, error) {
	var args createMeetingArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	m, err := a.meetings.Create(ctx, meeting.Meeting{
		ID:        uuid.NewString(),
		Subject:   args.Subject,
		PatientID: args.PatientID,
		StaffIDs:  args.StaffIDs,
		StartAt:   args.StartAt,
		Duration:  time.Duration(args.DurationMinutes) * time.Minute,
		Notes:     args.Notes,
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return m, nil
}

type getMeetingArgs struct {
	ID string `json:"id"`
}

func (a *MeetingAgent) getMeeting(ctx context.Context, raw json.RawMessage) (any, error) {
	var args getMeetingArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	m, err := a.meetings.Get(ctx, args.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return m, nil
}

type listMeetingsByStaffArgs struct {
	StaffID string `json:"staff_id"`
}

func (a *MeetingAgent) listMeetingsByStaff(ctx context.Context, raw json.RawMessage) (any, error) {
	var args listMeetingsByStaffArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindInvalidArguments, "malformed arguments", err)
	}
	results, err := a.meetings.ListByStaff(ctx, args.StaffID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return results, nil
}
