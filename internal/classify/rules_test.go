package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskLabel(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
		task  string
		want  string
	}{
		{"billing", ServiceNowTasks, "Look up billing for PAT-2847", "Billing Lookup"},
		{"first match wins", ServiceNowTasks, "Fix the bill BILL-90421", "Billing Lookup"},
		{"correction", ServiceNowTasks, "Submit a correction for the modifier", "Billing Correction"},
		{"ticket", ServiceNowTasks, "Open a TICKET for follow-up", "Create Ticket"},
		{"schedule", ServiceNowTasks, "Schedule a cardiology visit", "Schedule Appointment"},
		{"servicenow default", ServiceNowTasks, "Say hello", DefaultTaskLabel},
		{"insurance", SalesforceTasks, "Verify insurance coverage", "Insurance Verification"},
		{"patient record needs both", SalesforceTasks, "Pull the patient record", "Patient Lookup"},
		{"patient alone", SalesforceTasks, "Greet the patient", DefaultTaskLabel},
		{"case", SalesforceTasks, "Create a case for the dispute", "Create Case"},
		{"history", SalesforceTasks, "Show care history", "Care History"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TaskLabel(tt.rules, tt.task))
		})
	}
}

func TestThink(t *testing.T) {
	th, ok := Think("Why is there an extra CHARGE on my account?")
	assert.True(t, ok)
	assert.Equal(t, "Gathering context", th.Title)

	th, ok = Think("Please fix it")
	assert.True(t, ok)
	assert.Equal(t, "Planning correction", th.Title)

	th, ok = Think("Does my plan have coverage for this?")
	assert.True(t, ok)
	assert.Equal(t, "Verifying coverage", th.Title)

	th, ok = Think("I need to schedule a follow-up")
	assert.True(t, ok)
	assert.Equal(t, "Checking availability", th.Title)

	_, ok = Think("hello there")
	assert.False(t, ok)
}

func TestPatientID(t *testing.T) {
	assert.Equal(t, "PAT-2847", PatientID("I'm patient PAT-2847, and PAT-1 is my son"))
	assert.Empty(t, PatientID("no id here, PAT-x"))
}
