// Package discharge implements the Discharge Aggregator (spec.md §4.3): it
// produces a single DischargeReport for a patient's episode by reading
// across repositories, then commits the report, the Bed Lifecycle
// Manager's discharge transition, and the patient's status flip as one
// logical unit — rolling back the report and, where the failure is on the
// patient-status step, the bed transition too, since DischargeReport
// storage supports a direct compensating delete and the Bed Lifecycle
// Manager exposes enough public transitions (ForceComplete then Assign) to
// undo a Discharge without a bespoke undo method of its own.
package discharge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/careflow-systems/hospital-core/bedlifecycle"
	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/appointment"
	"github.com/careflow-systems/hospital-core/domain/bed"
	"github.com/careflow-systems/hospital-core/domain/dischargereport"
	"github.com/careflow-systems/hospital-core/domain/equipmentusage"
	"github.com/careflow-systems/hospital-core/domain/inventory"
	"github.com/careflow-systems/hospital-core/domain/patient"
	"github.com/careflow-systems/hospital-core/domain/staffassignment"
)

// Errors reported by Discharge.
var (
	ErrPatientNotActive  = errors.New("patient_not_active")
	ErrNoOccupiedBed     = errors.New("no_occupied_bed")
	ErrReportMissingForDischargedPatient = errors.New("discharged_patient_missing_report")
)

// Input requests a discharge for one patient.
type Input struct {
	PatientID    string
	BedID        string // optional; derived from current occupancy if empty
	EpisodeStart time.Time
	EpisodeEnd   time.Time // zero means "now"
}

// Aggregator produces DischargeReports and drives the bed/patient mutations
// that complete a discharge.
type Aggregator struct {
	reports   dischargereport.Repository
	staff     staffassignment.Repository
	equipment equipmentusage.Repository
	supplies  inventory.UsageRepository
	appts     appointment.Repository
	patients  patient.Repository
	beds      bed.Repository
	bedMgr    *bedlifecycle.Manager
	now       func() time.Time
}

// New constructs an Aggregator over the given repositories and the shared
// Bed Lifecycle Manager.
func New(
	reports dischargereport.Repository,
	staff staffassignment.Repository,
	equipment equipmentusage.Repository,
	supplies inventory.UsageRepository,
	appts appointment.Repository,
	patients patient.Repository,
	beds bed.Repository,
	bedMgr *bedlifecycle.Manager,
) *Aggregator {
	return &Aggregator{
		reports:   reports,
		staff:     staff,
		equipment: equipment,
		supplies:  supplies,
		appts:     appts,
		patients:  patients,
		beds:      beds,
		bedMgr:    bedMgr,
		now:       time.Now,
	}
}

// Discharge runs the full discharge algorithm (spec.md §4.3). If a report
// for this patient's episode already exists and the patient is already in
// terminal (discharged) state, it returns the existing report without
// re-running side effects.
func (a *Aggregator) Discharge(ctx context.Context, in Input) (dischargereport.DischargeReport, error) {
	p, err := a.patients.Get(ctx, in.PatientID)
	if err != nil {
		return dischargereport.DischargeReport{}, fmt.Errorf("resolve patient: %w", err)
	}

	if p.Status == patient.StatusDischarged {
		existing, err := a.reports.GetLatestForPatient(ctx, in.PatientID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return dischargereport.DischargeReport{}, ErrReportMissingForDischargedPatient
			}
			return dischargereport.DischargeReport{}, err
		}
		return existing, nil
	}
	if p.Status != patient.StatusActive {
		return dischargereport.DischargeReport{}, ErrPatientNotActive
	}

	bedID := in.BedID
	if bedID == "" {
		bedID, err = a.findOccupiedBed(ctx, in.PatientID)
		if err != nil {
			return dischargereport.DischargeReport{}, err
		}
	}

	window := domain.TimeWindow{Start: in.EpisodeStart, End: in.EpisodeEnd}
	if window.Start.IsZero() {
		window.Start = p.CreatedAt
	}
	if window.End.IsZero() {
		window.End = a.now()
	}

	records, err := a.collectEpisode(ctx, in.PatientID, window)
	if err != nil {
		return dischargereport.DischargeReport{}, err
	}

	report := dischargereport.DischargeReport{
		ID:               uuid.NewString(),
		PatientID:        in.PatientID,
		BedIDAtDischarge: bedID,
		GeneratedAt:      a.now(),
		Sections:         buildSections(p, records),
	}
	report.RenderedText = renderText(report.Sections)

	report, err = a.reports.Create(ctx, report)
	if err != nil {
		return dischargereport.DischargeReport{}, fmt.Errorf("persist report: %w", err)
	}

	if _, err := a.bedMgr.Discharge(ctx, bedID, 0); err != nil {
		_ = a.reports.Delete(ctx, report.ID)
		return dischargereport.DischargeReport{}, fmt.Errorf("discharge bed: %w", err)
	}

	p.Status = patient.StatusDischarged
	if _, err := a.patients.Update(ctx, p); err != nil {
		_ = a.reports.Delete(ctx, report.ID)
		a.revertBedDischarge(ctx, bedID, in.PatientID)
		return dischargereport.DischargeReport{}, fmt.Errorf("mark patient discharged: %w", err)
	}

	return report, nil
}

// revertBedDischarge undoes bedMgr.Discharge's occupied-to-cleaning
// transition when a later saga step fails, so property 6 ("none of the
// three is mutated" on failure) holds for this interleaving too. It goes
// through ForceComplete (cleaning -> available) then Assign
// (available -> occupied) rather than writing the bed row directly, since
// those are the only state changes the Bed Lifecycle Manager exposes.
// Best-effort: if either step fails the bed is left in whatever state the
// first successful step reached, which is still safer than silently
// leaving it in cleaning.
func (a *Aggregator) revertBedDischarge(ctx context.Context, bedID, patientID string) {
	if _, err := a.bedMgr.ForceComplete(ctx, bedID); err != nil {
		return
	}
	_, _ = a.bedMgr.Assign(ctx, bedID, patientID)
}

func (a *Aggregator) findOccupiedBed(ctx context.Context, patientID string) (string, error) {
	occupied, err := a.beds.ListByStatus(ctx, bed.StatusOccupied)
	if err != nil {
		return "", fmt.Errorf("list occupied beds: %w", err)
	}
	for _, b := range occupied {
		if b.CurrentPatientID != nil && *b.CurrentPatientID == patientID {
			return b.ID, nil
		}
	}
	return "", ErrNoOccupiedBed
}

// episodeRecords holds everything the report sections are built from.
type episodeRecords struct {
	staff     []staffassignment.StaffAssignment
	equipment []equipmentusage.EquipmentUsage
	supplies  []inventory.PatientSupplyUsage
	appts     []appointment.Appointment
}

// collectEpisode fetches every record kind for the patient up to
// window.End with no lower bound, and if any record predates the
// configured start it widens the window to the earliest record's
// timestamp (returning that full set); otherwise it re-fetches within
// window — compensating for clock drift and late-written records
// (spec.md §4.3 Date windows).
func (a *Aggregator) collectEpisode(ctx context.Context, patientID string, window domain.TimeWindow) (episodeRecords, error) {
	all, err := a.fetchAll(ctx, patientID, domain.TimeWindow{End: window.End})
	if err != nil {
		return episodeRecords{}, err
	}

	earliest := earliestTimestamp(all, window.Start)
	if earliest.Before(window.Start) {
		return all, nil
	}
	return a.fetchAll(ctx, patientID, window)
}

func (a *Aggregator) fetchAll(ctx context.Context, patientID string, window domain.TimeWindow) (episodeRecords, error) {
	staff, err := a.staff.ListByPatient(ctx, patientID, window)
	if err != nil {
		return episodeRecords{}, fmt.Errorf("list staff assignments: %w", err)
	}
	equip, err := a.equipment.ListByPatient(ctx, patientID, window)
	if err != nil {
		return episodeRecords{}, fmt.Errorf("list equipment usage: %w", err)
	}
	supplies, err := a.supplies.ListByPatient(ctx, patientID, window)
	if err != nil {
		return episodeRecords{}, fmt.Errorf("list supply usage: %w", err)
	}
	appts, err := a.appts.ListByPatient(ctx, patientID, window)
	if err != nil {
		return episodeRecords{}, fmt.Errorf("list appointments: %w", err)
	}
	return episodeRecords{staff: staff, equipment: equip, supplies: supplies, appts: appts}, nil
}

func earliestTimestamp(records episodeRecords, fallback time.Time) time.Time {
	earliest := fallback
	consider := func(t time.Time) {
		if t.Before(earliest) {
			earliest = t
		}
	}
	for _, s := range records.staff {
		consider(s.StartedAt)
	}
	for _, e := range records.equipment {
		consider(e.StartedAt)
	}
	for _, u := range records.supplies {
		consider(u.AdministeredAt)
	}
	for _, ap := range records.appts {
		consider(ap.StartAt)
	}
	return earliest
}

func buildSections(p patient.Patient, r episodeRecords) []dischargereport.Section {
	sort.Slice(r.staff, func(i, j int) bool { return r.staff[i].StartedAt.Before(r.staff[j].StartedAt) })
	sort.Slice(r.equipment, func(i, j int) bool { return r.equipment[i].StartedAt.Before(r.equipment[j].StartedAt) })
	sort.Slice(r.supplies, func(i, j int) bool { return r.supplies[i].AdministeredAt.Before(r.supplies[j].AdministeredAt) })
	sort.Slice(r.appts, func(i, j int) bool { return r.appts[i].StartAt.Before(r.appts[j].StartAt) })

	return []dischargereport.Section{
		identificationSection(p),
		admissionDischargeSection(p),
		careTeamSection(r.staff),
		treatmentsSection(r.equipment, r.supplies),
		equipmentUsedSection(r.equipment),
		suppliesUsedSection(r.supplies),
		appointmentsSection(r.appts),
		freeTextSummarySection(p, r),
	}
}
