package workflows

import (
	"fmt"
	"time"

	"github.com/careflow-systems/hospital-core/domain/bed"
	"github.com/careflow-systems/hospital-core/domain/document"
	"github.com/careflow-systems/hospital-core/domain/equipment"
	"github.com/careflow-systems/hospital-core/domain/equipmentusage"
	"github.com/careflow-systems/hospital-core/domain/patient"
	"github.com/careflow-systems/hospital-core/domain/staff"
	"github.com/careflow-systems/hospital-core/domain/staffassignment"
	"github.com/careflow-systems/hospital-core/runtime/engine"
	"github.com/careflow-systems/hospital-core/runtime/workflow"
)

// AdmissionKind is the graph name registered with the workflow engine and
// the workflow_kind half of every admission run's checkpoint key.
const AdmissionKind = "admission"

// AdmissionOptions configures the bounded wait for a bed in the admission
// graph's wait_or_fail node (spec.md §4.4: "configurable attempts,
// default 1").
type AdmissionOptions struct {
	// MaxBedWaitAttempts caps how many times find_bed is retried after an
	// empty candidate list before the run terminates with
	// no_bed_available. Zero uses the spec default of 1.
	MaxBedWaitAttempts int
	// BedWaitDelay is how long wait_or_fail sleeps before re-running
	// find_bed. Zero uses a 5 second default.
	BedWaitDelay time.Duration
}

const defaultBedWaitDelay = 5 * time.Second

// AdmissionInput is the caller-supplied patient draft that starts an
// admission run.
type AdmissionInput struct {
	Name                string
	DateOfBirth         time.Time
	RoomID              string
	StaffRole           staff.Role
	EquipmentCategoryID string
}

// AdmissionState is the typed state threaded through the admission graph
// (spec.md §4.4).
type AdmissionState struct {
	Input AdmissionInput

	ValidationResult    string
	PatientID           string
	CandidateBedIDs     []string
	SelectedBedID       string
	AssignedStaffID     string
	AssignedEquipmentID string
	Reports             []string
	Status              string
	Errors              []string

	bedWaitAttempts int
}

// BuildAdmissionGraph compiles the admission graph: validate_patient ->
// find_bed -> create_patient -> assign_bed -> assign_staff ->
// assign_equipment -> generate_reports -> finalize, with find_bed routing to
// wait_or_fail when no candidate bed is available. find_bed runs before
// create_patient, not after, so a run that exhausts wait_or_fail and
// terminates with no_bed_available never created a patient in the first
// place (spec.md §8 seed scenario S2: "no patient created, all beds
// unchanged") — no compensating delete is needed because nothing has been
// persisted yet to compensate.
func BuildAdmissionGraph(opts AdmissionOptions) workflow.Graph[AdmissionState] {
	maxWait := opts.MaxBedWaitAttempts
	if maxWait <= 0 {
		maxWait = 1
	}
	delay := opts.BedWaitDelay
	if delay <= 0 {
		delay = defaultBedWaitDelay
	}

	b := &admissionBuilder{maxBedWaitAttempts: maxWait, bedWaitDelay: delay}
	return workflow.Graph[AdmissionState]{
		Kind:  AdmissionKind,
		Start: "validate_patient",
		Nodes: map[string]workflow.Node[AdmissionState]{
			"validate_patient": {Name: "validate_patient", Run: validatePatientNode},
			"find_bed":         {Name: "find_bed", Run: findBedNode},
			"wait_or_fail":     {Name: "wait_or_fail", Run: b.waitOrFailNode},
			"create_patient":   {Name: "create_patient", Run: createPatientNode},
			"assign_bed":       {Name: "assign_bed", Run: assignBedNode},
			"assign_staff":     {Name: "assign_staff", Run: assignStaffNode},
			"assign_equipment": {Name: "assign_equipment", Run: assignEquipmentNode},
			"generate_reports": {Name: "generate_reports", Run: generateReportsNode},
			"finalize":         {Name: "finalize", Run: finalizeAdmissionNode},
		},
	}
}

// admissionBuilder closes the wait_or_fail node over its configured bound
// and delay, since NodeFunc takes no constructor arguments of its own.
type admissionBuilder struct {
	maxBedWaitAttempts int
	bedWaitDelay       time.Duration
}

func validatePatientNode(_ engine.WorkflowContext, state *AdmissionState) (string, error) {
	if state.Input.Name == "" {
		state.ValidationResult = "patient name is required"
		return "", workflow.Permanent(fmt.Errorf("admission: %s", state.ValidationResult))
	}
	if state.Input.DateOfBirth.IsZero() {
		state.ValidationResult = "date_of_birth is required"
		return "", workflow.Permanent(fmt.Errorf("admission: %s", state.ValidationResult))
	}
	state.ValidationResult = "ok"
	return "find_bed", nil
}

func findBedNode(wc engine.WorkflowContext, state *AdmissionState) (string, error) {
	beds, err := callTool[[]bed.Bed](wc, "bed.list_beds", map[string]any{
		"room_id": state.Input.RoomID,
		"status":  bed.StatusAvailable,
	})
	if err != nil {
		return "", err
	}
	state.CandidateBedIDs = make([]string, 0, len(beds))
	for _, b := range beds {
		state.CandidateBedIDs = append(state.CandidateBedIDs, b.ID)
	}
	if len(state.CandidateBedIDs) == 0 {
		return "wait_or_fail", nil
	}
	state.SelectedBedID = state.CandidateBedIDs[0]
	return "create_patient", nil
}

func createPatientNode(wc engine.WorkflowContext, state *AdmissionState) (string, error) {
	p, err := callTool[patient.Patient](wc, "patient.create_patient", map[string]any{
		"name":          state.Input.Name,
		"date_of_birth": state.Input.DateOfBirth,
	})
	if err != nil {
		return "", err
	}
	state.PatientID = p.ID
	return "assign_bed", nil
}

// waitOrFailNode either sleeps and retries find_bed, or terminates the run
// with no_bed_available once maxBedWaitAttempts is exhausted (spec.md
// §4.4).
func (b *admissionBuilder) waitOrFailNode(wc engine.WorkflowContext, state *AdmissionState) (string, error) {
	state.bedWaitAttempts++
	if state.bedWaitAttempts > b.maxBedWaitAttempts {
		state.Status = "no_bed_available"
		state.Errors = append(state.Errors, "no_bed_available")
		return "", workflow.Permanent(fmt.Errorf("admission: no_bed_available"))
	}
	if err := wc.ExecuteActivity(wc.Context(), engine.ActivityRequest{
		Name:  sleepActivityName,
		Input: sleepInput{Milliseconds: b.bedWaitDelay.Milliseconds()},
	}, nil); err != nil {
		return "", workflow.Permanent(fmt.Errorf("admission: wait_or_fail sleep: %w", err))
	}
	return "find_bed", nil
}

func assignBedNode(wc engine.WorkflowContext, state *AdmissionState) (string, error) {
	_, err := callTool[bed.Bed](wc, "bed.assign_bed_to_patient", map[string]any{
		"bed_id":     state.SelectedBedID,
		"patient_id": state.PatientID,
	})
	if err != nil {
		return "", err
	}
	return "assign_staff", nil
}

func assignStaffNode(wc engine.WorkflowContext, state *AdmissionState) (string, error) {
	candidates, err := callTool[[]staff.Staff](wc, "staff.list_staff", map[string]any{})
	if err != nil {
		return "", err
	}
	var chosen staff.Staff
	found := false
	for _, s := range candidates {
		if !s.Active {
			continue
		}
		if state.Input.StaffRole != "" && s.Role != state.Input.StaffRole {
			continue
		}
		chosen = s
		found = true
		break
	}
	if !found {
		state.Errors = append(state.Errors, "no eligible staff available")
		return "", workflow.Permanent(fmt.Errorf("admission: no eligible staff available"))
	}

	if _, err := callTool[staffassignment.StaffAssignment](wc, "staff.assign_staff_to_patient_simple", map[string]any{
		"patient_id":   state.PatientID,
		"staff_id":     chosen.ID,
		"role_on_case": "attending",
	}); err != nil {
		return "", err
	}
	state.AssignedStaffID = chosen.ID
	return "assign_equipment", nil
}

// assignEquipmentNode is a no-op when the admission draft names no
// equipment category: not every admission requires equipment reserved up
// front.
func assignEquipmentNode(wc engine.WorkflowContext, state *AdmissionState) (string, error) {
	if state.Input.EquipmentCategoryID == "" {
		return "generate_reports", nil
	}
	available, err := callTool[[]equipment.Equipment](wc, "equipment.list_equipment", map[string]any{
		"status": equipment.StatusAvailable,
	})
	if err != nil {
		return "", err
	}
	var chosen equipment.Equipment
	found := false
	for _, e := range available {
		if e.CategoryID == state.Input.EquipmentCategoryID {
			chosen = e
			found = true
			break
		}
	}
	if !found {
		// Equipment is optional context, not a hard admission requirement;
		// record the gap but keep the run moving.
		state.Errors = append(state.Errors, "no equipment available in category "+state.Input.EquipmentCategoryID)
		return "generate_reports", nil
	}

	if _, err := callTool[equipmentusage.EquipmentUsage](wc, "equipment.add_equipment_usage_simple", map[string]any{
		"equipment_id": chosen.ID,
		"patient_id":   state.PatientID,
		"operator_id":  state.AssignedStaffID,
		"purpose":      "admission",
	}); err != nil {
		return "", err
	}
	state.AssignedEquipmentID = chosen.ID
	return "generate_reports", nil
}

func generateReportsNode(wc engine.WorkflowContext, state *AdmissionState) (string, error) {
	summary := fmt.Sprintf(
		"Admission summary for patient %s: bed %s, attending staff %s, equipment %s.",
		state.PatientID, state.SelectedBedID, state.AssignedStaffID, state.AssignedEquipmentID,
	)
	doc, err := callTool[document.Document](wc, "document.create_document", map[string]any{
		"name":       "admission-summary",
		"format":     "text",
		"text":       summary,
		"patient_id": state.PatientID,
	})
	if err != nil {
		return "", err
	}
	state.Reports = append(state.Reports, doc.ID)
	return "finalize", nil
}

func finalizeAdmissionNode(_ engine.WorkflowContext, state *AdmissionState) (string, error) {
	state.Status = "admitted"
	return workflow.End, nil
}
