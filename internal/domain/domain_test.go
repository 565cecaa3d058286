package domain

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedID(prefix string) string { return prefix + "-ABC123" }

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func TestNewRef(t *testing.T) {
	re := regexp.MustCompile(`^CORR-[0-9A-F]{6}$`)
	for range 20 {
		assert.Regexp(t, re, NewRef("CORR"))
	}
}

func TestBillingLookup(t *testing.T) {
	sn, err := NewServiceNow(fixedID)
	require.NoError(t, err)
	ctx := context.Background()

	out, err := sn.BillingLookup(ctx, BillingLookupArgs{PatientID: "PAT-2847"})
	require.NoError(t, err)
	got := decode(t, out)
	assert.Equal(t, "found", got["status"])
	assert.NotEmpty(t, got["instruction"])
	records := got["billing_records"].([]any)
	require.NotEmpty(t, records)
	first := records[0].(map[string]any)
	assert.Equal(t, "BILL-90421", first["bill_id"])
	assert.Equal(t, "99214", first["procedure_code"])
	assert.EqualValues(t, 2400, first["billed_amount"])

	out, err = sn.BillingLookup(ctx, BillingLookupArgs{PatientID: "PAT-0000"})
	require.NoError(t, err)
	got = decode(t, out)
	assert.Equal(t, "error", got["status"])
	assert.Contains(t, got["instruction"], "PAT-0000")
}

func TestBillingCorrect(t *testing.T) {
	sn, err := NewServiceNow(fixedID)
	require.NoError(t, err)

	out, err := sn.BillingCorrect(context.Background(), BillingCorrectArgs{
		PatientID: "PAT-2847", BillID: "BILL-90421", CorrectionType: "procedure_code",
	})
	require.NoError(t, err)
	got := decode(t, out)
	assert.Equal(t, "ready", got["status"])
	assert.Equal(t, "CORR-ABC123", got["correction_id"])
	assert.Contains(t, got["instruction"], "CORR-ABC123")

	out, err = sn.BillingCorrect(context.Background(), BillingCorrectArgs{PatientID: "PAT-2847", BillID: "BILL-1"})
	require.NoError(t, err)
	assert.Equal(t, "error", decode(t, out)["status"])
}

func TestTicketCreateDefaultsPriority(t *testing.T) {
	sn, err := NewServiceNow(fixedID)
	require.NoError(t, err)

	out, err := sn.TicketCreate(context.Background(), TicketCreateArgs{PatientID: "PAT-1093", Category: "general", Summary: "Call back"})
	require.NoError(t, err)
	got := decode(t, out)
	ticket := got["new_ticket"].(map[string]any)
	assert.Equal(t, "TKT-ABC123", ticket["ticket_id"])
	assert.Equal(t, "medium", ticket["priority"])
	assert.Equal(t, []any{}, got["existing_tickets"])
}

func TestAppointmentSchedule(t *testing.T) {
	sn, err := NewServiceNow(fixedID)
	require.NoError(t, err)

	out, err := sn.AppointmentSchedule(context.Background(), AppointmentScheduleArgs{PatientID: "PAT-2847", Department: "Cardiology"})
	require.NoError(t, err)
	got := decode(t, out)
	assert.NotEmpty(t, got["available_slots"])
	assert.Equal(t, "Cardiology", got["request"].(map[string]any)["department"])
}

func TestInsuranceVerify(t *testing.T) {
	sf, err := NewSalesforce(fixedID)
	require.NoError(t, err)

	out, err := sf.InsuranceVerify(context.Background(), InsuranceVerifyArgs{PatientID: "PAT-2847"})
	require.NoError(t, err)
	got := decode(t, out)
	rec := got["insurance_record"].(map[string]any)
	assert.Equal(t, "BCBS", rec["carrier"])
	assert.Equal(t, "PPO", rec["plan"])
	assert.Equal(t, "90%", rec["coverage_rate"])
	assert.Equal(t, true, rec["deductible_met"])

	out, err = sf.InsuranceVerify(context.Background(), InsuranceVerifyArgs{PatientID: "PAT-9"})
	require.NoError(t, err)
	assert.Equal(t, "error", decode(t, out)["status"])
}

func TestPatientLookup(t *testing.T) {
	sf, err := NewSalesforce(fixedID)
	require.NoError(t, err)

	out, err := sf.PatientLookup(context.Background(), PatientLookupArgs{PatientID: "PAT-2847"})
	require.NoError(t, err)
	got := decode(t, out)
	assert.Equal(t, "Maria Santos", got["patient_record"].(map[string]any)["patient_name"])
}

func TestCareHistoryDateFilter(t *testing.T) {
	sf, err := NewSalesforce(fixedID)
	require.NoError(t, err)
	ctx := context.Background()

	out, err := sf.CareHistory(ctx, CareHistoryArgs{PatientID: "PAT-2847"})
	require.NoError(t, err)
	assert.Len(t, decode(t, out)["care_records"], 3)

	out, err = sf.CareHistory(ctx, CareHistoryArgs{PatientID: "PAT-2847", DateRangeStart: "2026-01-01"})
	require.NoError(t, err)
	assert.Len(t, decode(t, out)["care_records"], 2)

	out, err = sf.CareHistory(ctx, CareHistoryArgs{PatientID: "PAT-2847", DateRangeEnd: "2025-01-01"})
	require.NoError(t, err)
	got := decode(t, out)
	assert.Equal(t, "empty", got["status"])
	assert.Equal(t, []any{}, got["care_records"])
}

func TestCaseCreate(t *testing.T) {
	sf, err := NewSalesforce(fixedID)
	require.NoError(t, err)

	out, err := sf.CaseCreate(context.Background(), CaseCreateArgs{PatientID: "PAT-2847", CaseType: "billing_dispute", Subject: "Missing modifier"})
	require.NoError(t, err)
	got := decode(t, out)
	assert.Equal(t, "CASE-ABC123", got["new_case"].(map[string]any)["case_id"])
	assert.Len(t, got["existing_cases"], 1)
	assert.Equal(t, "Maria Santos", got["patient_context"].(map[string]any)["patient_name"])
}

func TestAgentDefinitions(t *testing.T) {
	sn, err := NewServiceNow(nil)
	require.NoError(t, err)
	sf, err := NewSalesforce(nil)
	require.NoError(t, err)

	assert.Equal(t, ServiceNowName, sn.Agent().Name)
	assert.Len(t, sn.Agent().Tools, 4)
	assert.Equal(t, SalesforceName, sf.Agent().Name)
	assert.Len(t, sf.Agent().Tools, 4)
	assert.NotEmpty(t, sf.Agent().Instructions)
}
