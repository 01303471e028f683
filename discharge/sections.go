package discharge

import (
	"fmt"
	"strings"

	"github.com/careflow-systems/hospital-core/domain/appointment"
	"github.com/careflow-systems/hospital-core/domain/dischargereport"
	"github.com/careflow-systems/hospital-core/domain/equipmentusage"
	"github.com/careflow-systems/hospital-core/domain/inventory"
	"github.com/careflow-systems/hospital-core/domain/patient"
	"github.com/careflow-systems/hospital-core/domain/staffassignment"
)

func identificationSection(p patient.Patient) dischargereport.Section {
	body := fmt.Sprintf("Patient %s (code %s), date of birth %s.",
		p.Name, p.PatientCode, p.DateOfBirth.Format("2006-01-02"))
	return dischargereport.Section{Title: "Identification", Body: body}
}

func admissionDischargeSection(p patient.Patient) dischargereport.Section {
	body := fmt.Sprintf("Admitted %s.", p.CreatedAt.Format("2006-01-02 15:04"))
	return dischargereport.Section{Title: "Admission/Discharge dates", Body: body}
}

func careTeamSection(assignments []staffassignment.StaffAssignment) dischargereport.Section {
	if len(assignments) == 0 {
		return dischargereport.Section{Title: "Care Team", Body: "No staff assignments recorded."}
	}
	var lines []string
	for _, a := range assignments {
		status := "ongoing"
		if a.EndedAt != nil {
			status = fmt.Sprintf("ended %s", a.EndedAt.Format("2006-01-02 15:04"))
		}
		lines = append(lines, fmt.Sprintf("- %s as %s (since %s, %s)", a.StaffID, a.RoleOnCase, a.StartedAt.Format("2006-01-02 15:04"), status))
	}
	return dischargereport.Section{Title: "Care Team", Body: strings.Join(lines, "\n")}
}

func treatmentsSection(equipment []equipmentusage.EquipmentUsage, supplies []inventory.PatientSupplyUsage) dischargereport.Section {
	if len(equipment) == 0 && len(supplies) == 0 {
		return dischargereport.Section{Title: "Treatments", Body: "No treatments recorded."}
	}
	body := fmt.Sprintf("%d equipment episode(s) and %d supply administration(s) recorded during this stay.", len(equipment), len(supplies))
	return dischargereport.Section{Title: "Treatments", Body: body}
}

func equipmentUsedSection(usages []equipmentusage.EquipmentUsage) dischargereport.Section {
	if len(usages) == 0 {
		return dischargereport.Section{Title: "Equipment Used", Body: "No equipment usage recorded."}
	}
	var lines []string
	for _, u := range usages {
		duration := "ongoing"
		if u.EndedAt != nil {
			duration = fmt.Sprintf("until %s", u.EndedAt.Format("2006-01-02 15:04"))
		}
		lines = append(lines, fmt.Sprintf("- %s (%s) from %s %s", u.EquipmentID, u.Purpose, u.StartedAt.Format("2006-01-02 15:04"), duration))
	}
	return dischargereport.Section{Title: "Equipment Used", Body: strings.Join(lines, "\n")}
}

func suppliesUsedSection(usages []inventory.PatientSupplyUsage) dischargereport.Section {
	if len(usages) == 0 {
		return dischargereport.Section{Title: "Supplies Used", Body: "No supply usage recorded."}
	}
	var lines []string
	for _, u := range usages {
		lines = append(lines, fmt.Sprintf("- %s x%d administered %s by %s", u.SupplyID, u.Quantity, u.AdministeredAt.Format("2006-01-02 15:04"), u.AdministeredBy))
	}
	return dischargereport.Section{Title: "Supplies Used", Body: strings.Join(lines, "\n")}
}

func appointmentsSection(appts []appointment.Appointment) dischargereport.Section {
	if len(appts) == 0 {
		return dischargereport.Section{Title: "Appointments", Body: "No appointments recorded."}
	}
	var lines []string
	for _, a := range appts {
		lines = append(lines, fmt.Sprintf("- with %s at %s (%s, %s)", a.DoctorID, a.StartAt.Format("2006-01-02 15:04"), a.Duration, a.Status))
	}
	return dischargereport.Section{Title: "Appointments", Body: strings.Join(lines, "\n")}
}

func freeTextSummarySection(p patient.Patient, r episodeRecords) dischargereport.Section {
	body := fmt.Sprintf(
		"%s's stay included %d care team assignment(s), %d equipment episode(s), %d supply administration(s), and %d appointment(s).",
		p.Name, len(r.staff), len(r.equipment), len(r.supplies), len(r.appts),
	)
	return dischargereport.Section{Title: "Free-text Summary", Body: body}
}

func renderText(sections []dischargereport.Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.Title)
		b.WriteString("\n")
		b.WriteString(s.Body)
	}
	return b.String()
}
