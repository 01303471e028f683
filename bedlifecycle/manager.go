// Package bedlifecycle implements the Bed Lifecycle Manager (spec.md §4.2):
// the exclusive owner of Bed.Status, CurrentPatientID and CleaningStartedAt.
// Every transition is serialized per bed via a per-id lock; the background
// sweep acquires each bed's lock in turn and skips any it cannot take
// immediately, so a slow caller never blocks the sweep.
package bedlifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/bed"
	"github.com/careflow-systems/hospital-core/domain/patient"
)

// Error kinds reported by transition operations (spec.md §4.2 Failure
// semantics). Callers map these onto the uniform tool error taxonomy.
var (
	ErrBedNotFound       = errors.New("bed_not_found")
	ErrIllegalTransition = errors.New("illegal_transition")
	ErrBedUnavailable    = errors.New("bed_unavailable")
	ErrPatientInactive   = errors.New("patient_inactive")
)

// DefaultCleaningDurationMinutes is used when a discharge does not specify
// an override (spec.md §4.2).
const DefaultCleaningDurationMinutes = 30

// BedStatus reports a bed's lifecycle position and, for cleaning beds, its
// progress toward availability.
type BedStatus struct {
	Status             bed.Status
	TimeRemainingMins  int
	ProgressPercent    int
}

// Manager is the Bed Lifecycle Manager. It is safe for concurrent use.
type Manager struct {
	beds     bed.Repository
	patients patient.Repository
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New constructs a Manager over the given repositories.
func New(beds bed.Repository, patients patient.Repository) *Manager {
	return &Manager{
		beds:     beds,
		patients: patients,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lockFor(bedID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[bedID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[bedID] = l
	}
	return l
}

// Assign transitions a bed from available or reserved to occupied for the
// given patient. The patient must be active.
func (m *Manager) Assign(ctx context.Context, bedID, patientID string) (bed.Bed, error) {
	lock := m.lockFor(bedID)
	lock.Lock()
	defer lock.Unlock()

	b, err := m.beds.Get(ctx, bedID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return bed.Bed{}, ErrBedNotFound
		}
		return bed.Bed{}, err
	}
	if b.Status != bed.StatusAvailable && b.Status != bed.StatusReserved {
		return bed.Bed{}, ErrBedUnavailable
	}

	p, err := m.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return bed.Bed{}, ErrPatientInactive
		}
		return bed.Bed{}, err
	}
	if p.Status != patient.StatusActive {
		return bed.Bed{}, ErrPatientInactive
	}

	b.Status = bed.StatusOccupied
	b.CurrentPatientID = &patientID
	b.CleaningStartedAt = nil

	return m.beds.Update(ctx, b)
}

// Discharge transitions an occupied bed to cleaning, starting its timer.
// durationMinutes <= 0 uses DefaultCleaningDurationMinutes. It returns the
// updated bed, from which the caller can compute the cleaning ETA.
func (m *Manager) Discharge(ctx context.Context, bedID string, durationMinutes int) (bed.Bed, error) {
	lock := m.lockFor(bedID)
	lock.Lock()
	defer lock.Unlock()

	b, err := m.beds.Get(ctx, bedID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return bed.Bed{}, ErrBedNotFound
		}
		return bed.Bed{}, err
	}
	if b.Status != bed.StatusOccupied {
		return bed.Bed{}, ErrIllegalTransition
	}
	if durationMinutes <= 0 {
		durationMinutes = DefaultCleaningDurationMinutes
	}

	startedAt := m.now()
	b.Status = bed.StatusCleaning
	b.CurrentPatientID = nil
	b.CleaningStartedAt = &startedAt
	b.CleaningDurationMinutes = durationMinutes

	return m.beds.Update(ctx, b)
}

// ForceComplete transitions a cleaning bed straight to available, bypassing
// the remainder of its timer.
func (m *Manager) ForceComplete(ctx context.Context, bedID string) (bed.Bed, error) {
	lock := m.lockFor(bedID)
	lock.Lock()
	defer lock.Unlock()

	b, err := m.beds.Get(ctx, bedID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return bed.Bed{}, ErrBedNotFound
		}
		return bed.Bed{}, err
	}
	if b.Status != bed.StatusCleaning {
		return bed.Bed{}, ErrIllegalTransition
	}
	return m.completeCleaning(ctx, b)
}

func (m *Manager) completeCleaning(ctx context.Context, b bed.Bed) (bed.Bed, error) {
	b.Status = bed.StatusAvailable
	b.CleaningStartedAt = nil
	return m.beds.Update(ctx, b)
}

// MarkMaintenance transitions any bed into maintenance.
func (m *Manager) MarkMaintenance(ctx context.Context, bedID string) (bed.Bed, error) {
	lock := m.lockFor(bedID)
	lock.Lock()
	defer lock.Unlock()

	b, err := m.beds.Get(ctx, bedID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return bed.Bed{}, ErrBedNotFound
		}
		return bed.Bed{}, err
	}
	b.Status = bed.StatusMaintenance
	b.CurrentPatientID = nil
	b.CleaningStartedAt = nil
	return m.beds.Update(ctx, b)
}

// ClearMaintenance transitions a bed out of maintenance back to available.
func (m *Manager) ClearMaintenance(ctx context.Context, bedID string) (bed.Bed, error) {
	lock := m.lockFor(bedID)
	lock.Lock()
	defer lock.Unlock()

	b, err := m.beds.Get(ctx, bedID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return bed.Bed{}, ErrBedNotFound
		}
		return bed.Bed{}, err
	}
	if b.Status != bed.StatusMaintenance {
		return bed.Bed{}, ErrIllegalTransition
	}
	b.Status = bed.StatusAvailable
	return m.beds.Update(ctx, b)
}

// Reserve transitions an available bed to reserved.
func (m *Manager) Reserve(ctx context.Context, bedID string) (bed.Bed, error) {
	lock := m.lockFor(bedID)
	lock.Lock()
	defer lock.Unlock()

	b, err := m.beds.Get(ctx, bedID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return bed.Bed{}, ErrBedNotFound
		}
		return bed.Bed{}, err
	}
	if b.Status != bed.StatusAvailable {
		return bed.Bed{}, ErrIllegalTransition
	}
	b.Status = bed.StatusReserved
	return m.beds.Update(ctx, b)
}

// Release transitions a reserved bed back to available.
func (m *Manager) Release(ctx context.Context, bedID string) (bed.Bed, error) {
	lock := m.lockFor(bedID)
	lock.Lock()
	defer lock.Unlock()

	b, err := m.beds.Get(ctx, bedID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return bed.Bed{}, ErrBedNotFound
		}
		return bed.Bed{}, err
	}
	if b.Status != bed.StatusReserved {
		return bed.Bed{}, ErrIllegalTransition
	}
	b.Status = bed.StatusAvailable
	return m.beds.Update(ctx, b)
}

// Status reports a bed's current position and, for cleaning beds, its
// progress toward availability (spec.md §4.2).
func (m *Manager) Status(ctx context.Context, bedID string) (BedStatus, error) {
	b, err := m.beds.Get(ctx, bedID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return BedStatus{}, ErrBedNotFound
		}
		return BedStatus{}, err
	}
	return m.statusOf(b), nil
}

func (m *Manager) statusOf(b bed.Bed) BedStatus {
	if b.Status != bed.StatusCleaning || b.CleaningStartedAt == nil {
		return BedStatus{Status: b.Status, TimeRemainingMins: 0, ProgressPercent: 100}
	}

	duration := b.CleaningDurationMinutes
	if duration <= 0 {
		duration = DefaultCleaningDurationMinutes
	}
	elapsed := m.now().Sub(*b.CleaningStartedAt)
	totalMins := time.Duration(duration) * time.Minute
	remaining := totalMins - elapsed
	if remaining < 0 {
		remaining = 0
	}

	progress := 100
	if totalMins > 0 {
		progress = int((elapsed.Seconds() / totalMins.Seconds()) * 100)
		if progress > 100 {
			progress = 100
		}
		if progress < 0 {
			progress = 0
		}
	}

	return BedStatus{
		Status:            b.Status,
		TimeRemainingMins: int(remaining.Minutes()),
		ProgressPercent:   progress,
	}
}

// SweepExpired scans beds in cleaning status and transitions every eligible
// one to available, returning the ids it changed. It acquires each bed's
// lock in turn and skips any bed it cannot lock immediately, so a
// concurrent transition on that bed is never blocked by the sweep.
func (m *Manager) SweepExpired(ctx context.Context) ([]string, error) {
	cleaning, err := m.beds.ListByStatus(ctx, bed.StatusCleaning)
	if err != nil {
		return nil, fmt.Errorf("list cleaning beds: %w", err)
	}

	var updated []string
	for _, b := range cleaning {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}
		if !m.eligibleForCompletion(b) {
			continue
		}

		lock := m.lockFor(b.ID)
		if !lock.TryLock() {
			continue
		}
		changed, err := m.completeIfStillCleaning(ctx, b.ID)
		lock.Unlock()
		if err != nil {
			continue
		}
		if changed {
			updated = append(updated, b.ID)
		}
	}
	return updated, nil
}

func (m *Manager) eligibleForCompletion(b bed.Bed) bool {
	if b.Status != bed.StatusCleaning || b.CleaningStartedAt == nil {
		return false
	}
	duration := b.CleaningDurationMinutes
	if duration <= 0 {
		duration = DefaultCleaningDurationMinutes
	}
	return m.now().Sub(*b.CleaningStartedAt) >= time.Duration(duration)*time.Minute
}

// completeIfStillCleaning re-reads the bed under its lock before completing
// it, since a caller could have transitioned it between ListByStatus and the
// lock acquisition above.
func (m *Manager) completeIfStillCleaning(ctx context.Context, bedID string) (bool, error) {
	b, err := m.beds.Get(ctx, bedID)
	if err != nil {
		return false, err
	}
	if !m.eligibleForCompletion(b) {
		return false, nil
	}
	if _, err := m.completeCleaning(ctx, b); err != nil {
		return false, err
	}
	return true, nil
}
