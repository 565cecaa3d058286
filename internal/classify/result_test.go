package classify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceNowResultModifier(t *testing.T) {
	out := ServiceNowResult("Bill BILL-90421 for PAT-2847: $2,400 charged for 99214. The modifier is missing.")

	assert.Equal(t, "Found coding error", out.Summary)
	assert.Equal(t, []string{
		"Bill: BILL-90421",
		"Amount: $2,400",
		"Code: 99214 → 99214-25",
		"Missing modifier -25",
	}, out.Details)
	assert.Equal(t, "coding_error", out.Context["issue_type"])
	assert.Equal(t, "PAT-2847", out.Context["patient_id"])

	v, ok := out.Visual.(BillingVisual)
	require.True(t, ok)
	assert.Equal(t, "BILL-90421", v.BillID)
	assert.Equal(t, "$2,400", v.Amount)
	assert.Equal(t, "99214", v.ProcedureCode)
	assert.Equal(t, "99214-25", v.CorrectCode)
}

func TestServiceNowResultCorrection(t *testing.T) {
	out := ServiceNowResult("Correction CORR-1A2B3C submitted for BILL-90421. Original $2,400, corrected $240. Processing takes 3-5 business days.")

	assert.Equal(t, "CORR-1A2B3C", out.Context["correction_id"])
	assert.Contains(t, out.Details, "Reference: CORR-1A2B3C")

	v, ok := out.Visual.(CorrectionVisual)
	require.True(t, ok, "correction wins over billing")
	assert.Equal(t, "$2,400", v.OriginalAmount)
	assert.Equal(t, "$240", v.CorrectedAmount)
	assert.Equal(t, "$2,160", v.Savings)
	assert.Equal(t, "3-5 business days", v.Timeline)
}

func TestServiceNowResultTicket(t *testing.T) {
	out := ServiceNowResult(`{"status":"created","ticket_id":"TKT-00FF12"}`)
	assert.Equal(t, "Ticket created", out.Summary)
	assert.Equal(t, "Ticket: TKT-00FF12", out.DetailText())
	assert.Nil(t, out.Visual)
}

func TestServiceNowResultNothing(t *testing.T) {
	out := ServiceNowResult("All good.")
	assert.Equal(t, DefaultSummary, out.Summary)
	assert.Equal(t, DefaultDetail, out.DetailText())
	assert.Nil(t, out.Visual)
	assert.Empty(t, out.Context)
}

func TestSalesforceResultCase(t *testing.T) {
	out := SalesforceResult("Created CASE-AB12CD for PAT-2847 with high priority.")

	assert.Equal(t, "Case created", out.Summary)
	assert.Equal(t, "Case: CASE-AB12CD", out.DetailText())
	assert.Equal(t, "CASE-AB12CD", out.Context["case_id"])

	v, ok := out.Visual.(CaseVisual)
	require.True(t, ok)
	assert.Equal(t, CaseVisual{Type: KindCase, CaseID: "CASE-AB12CD", Status: "Open", Priority: "High"}, v)
}

func TestSalesforceResultCaseDefaultPriority(t *testing.T) {
	v, ok := SalesforceResult("CASE-000001 opened").Visual.(CaseVisual)
	require.True(t, ok)
	assert.Equal(t, "Medium", v.Priority)
}

func TestSalesforceResultInsurance(t *testing.T) {
	text := `{"patient_name": "Maria Santos", "patient_id": "PAT-2847"} Insurance is active with Blue Cross Blue Shield PPO. ` +
		`Coverage 90%. Deductible met. Patient owes $240.`
	out := SalesforceResult(text)

	assert.Equal(t, "Insurance verified", out.Summary)
	assert.Equal(t, "Status: Active | Carrier: BCBS PPO | Deductible: Met | Coverage: 90% | Patient owes: $240 | Patient: Maria Santos",
		out.DetailText())
	assert.Equal(t, "Maria Santos", out.Context["patient_name"])
	assert.Equal(t, "PAT-2847", out.Context["patient_id"])

	v, ok := out.Visual.(InsuranceVisual)
	require.True(t, ok)
	assert.Equal(t, "BCBS", v.Carrier)
	assert.Equal(t, "PPO", v.Plan)
	assert.Equal(t, "90%", v.CoverageRate)
	assert.True(t, v.DeductibleMet)
}

func TestSalesforceResultDeductibleNotMet(t *testing.T) {
	out := SalesforceResult("Insurance active. Deductible not met.")
	assert.Contains(t, out.Details, "Deductible: Not met")
	v, ok := out.Visual.(InsuranceVisual)
	require.True(t, ok)
	assert.False(t, v.DeductibleMet)
}

func TestVisualJSONIsFlatAndTagged(t *testing.T) {
	b, err := json.Marshal(Visual(CaseVisual{Type: KindCase, CaseID: "CASE-AB12CD", Status: "Open", Priority: "High"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"case","case_id":"CASE-AB12CD","status":"Open","priority":"High"}`, string(b))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$0", formatMoney(0))
	assert.Equal(t, "$999", formatMoney(999))
	assert.Equal(t, "$1,234", formatMoney(1234))
	assert.Equal(t, "$1,234,567.50", formatMoney(1234567.5))
	assert.Equal(t, "-$12.05", formatMoney(-12.05))
}
