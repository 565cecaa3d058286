package classify

import (
	"regexp"
	"strings"
)

// DefaultSummary and DefaultDetail describe a result nothing matched.
const (
	DefaultSummary = "Completed"
	DefaultDetail  = "Task completed successfully"
)

// Outcome is what a raw agent result was classified into.
type Outcome struct {
	Summary string
	Details []string
	Visual  Visual
	// Context holds patient context updates keyed by session context key.
	Context map[string]string
}

// DetailText joins the details for display.
func (o Outcome) DetailText() string {
	if len(o.Details) == 0 {
		return DefaultDetail
	}
	return strings.Join(o.Details, " | ")
}

func (o *Outcome) add(detail string) { o.Details = append(o.Details, detail) }

func (o *Outcome) set(key, value string) {
	if value == "" {
		return
	}
	if o.Context == nil {
		o.Context = make(map[string]string)
	}
	o.Context[key] = value
}

// Classifier maps a raw agent result to an Outcome.
type Classifier func(result string) Outcome

var (
	correctionRe = regexp.MustCompile(`CORR-[A-Z0-9]+`)
	billRe       = regexp.MustCompile(`BILL-[A-Z0-9]+`)
	ticketRe     = regexp.MustCompile(`TKT-[A-Z0-9]+`)
	caseRe       = regexp.MustCompile(`CASE-[A-Z0-9]+`)
	procedureRe  = regexp.MustCompile(`\b99\d{3}\b`)
	percentRe    = regexp.MustCompile(`\b\d{1,3}%`)
	timelineRe   = regexp.MustCompile(`(?i)\b\d+\s*(?:-|to)\s*\d+\s+(?:business\s+)?(?:hours|days)\b`)
	priorityRe   = regexp.MustCompile(`(?i)\b(critical|high|medium|low)\b`)
	planRe       = regexp.MustCompile(`\b(PPO|HMO|EPO|POS|HDHP)\b`)
	owesRe       = regexp.MustCompile(`(?i)patient\s+(?:owes|responsibility|will\s+owe|pays)[^$\n]{0,60}(\$\d[\d,]*(?:\.\d{2})?)`)
	nameFieldRe  = regexp.MustCompile(`"(?:patient_name|name)"\s*:\s*"([A-Z][a-zA-Z'-]+(?: [A-Z][a-zA-Z'-]+)+)"`)
	nameProseRe  = regexp.MustCompile(`\bPatient(?: name)?:\s*([A-Z][a-zA-Z'-]+ [A-Z][a-zA-Z'-]+)`)
)

// Patient context keys, as stored on the session.
const (
	ctxPatientID    = "patient_id"
	ctxPatientName  = "patient_name"
	ctxIssueType    = "issue_type"
	ctxCorrectionID = "correction_id"
	ctxCaseID       = "case_id"
)

// ServiceNowResult classifies billing, ticketing and scheduling results.
// Checks run in a fixed order; later matches may replace the summary while
// every matched detail is kept.
func ServiceNowResult(result string) Outcome {
	o := Outcome{Summary: DefaultSummary}
	lower := strings.ToLower(result)
	money := amounts(result)

	correctionID := correctionRe.FindString(result)
	if correctionID != "" {
		o.Summary = "Correction submitted"
		o.add("Reference: " + correctionID)
		o.set(ctxCorrectionID, correctionID)
	}
	billID := billRe.FindString(result)
	if billID != "" {
		o.add("Bill: " + billID)
		o.Summary = "Found billing issue"
		o.set(ctxIssueType, "billing_error")
	}
	if ticketID := ticketRe.FindString(result); ticketID != "" {
		o.Summary = "Ticket created"
		o.add("Ticket: " + ticketID)
	}
	if len(money) > 0 {
		o.add("Amount: " + money[0])
	}
	code := procedureRe.FindString(result)
	if code != "" {
		o.add("Code: " + code + " → " + code + "-25")
	}
	modifier := strings.Contains(lower, "modifier")
	if modifier {
		o.Summary = "Found coding error"
		o.add("Missing modifier -25")
		o.set(ctxIssueType, "coding_error")
	}
	o.set(ctxPatientID, PatientID(result))

	switch {
	case correctionID != "":
		o.Visual = correctionVisual(correctionID, money, result)
	case billID != "":
		correct := code
		if code != "" && modifier {
			correct = code + "-25"
		}
		o.Visual = BillingVisual{
			Type:          KindBilling,
			BillID:        billID,
			Amount:        nth(money, 0),
			CorrectAmount: nth(money, 1),
			ProcedureCode: code,
			CorrectCode:   correct,
		}
	}
	return o
}

func correctionVisual(id string, money []string, result string) CorrectionVisual {
	v := CorrectionVisual{
		Type:            KindCorrection,
		CorrectionID:    id,
		OriginalAmount:  nth(money, 0),
		CorrectedAmount: nth(money, 1),
		Timeline:        timelineRe.FindString(result),
	}
	orig, ok1 := parseMoney(v.OriginalAmount)
	corrected, ok2 := parseMoney(v.CorrectedAmount)
	if ok1 && ok2 {
		v.Savings = formatMoney(orig - corrected)
	}
	return v
}

// SalesforceResult classifies patient, insurance and case results.
func SalesforceResult(result string) Outcome {
	o := Outcome{Summary: DefaultSummary}
	lower := strings.ToLower(result)

	caseID := caseRe.FindString(result)
	if caseID != "" {
		o.Summary = "Case created"
		o.add("Case: " + caseID)
		o.set(ctxCaseID, caseID)
	}
	verified := strings.Contains(lower, "active") && strings.Contains(lower, "insurance")
	if verified {
		o.Summary = "Insurance verified"
		o.add("Status: Active")
	}
	carrier := carrierName(result)
	plan := planRe.FindString(result)
	if carrier != "" {
		o.add("Carrier: " + strings.TrimSpace(carrier+" "+plan))
	}
	deductibleMet := false
	if strings.Contains(lower, "deductible") && strings.Contains(lower, "met") {
		deductibleMet = !strings.Contains(lower, "not met") && !strings.Contains(lower, "not been met")
		if deductibleMet {
			o.add("Deductible: Met")
		} else {
			o.add("Deductible: Not met")
		}
	}
	coverage := percentRe.FindString(result)
	if coverage != "" {
		o.add("Coverage: " + coverage)
	}
	if m := owesRe.FindStringSubmatch(result); m != nil {
		o.add("Patient owes: " + strings.TrimRight(m[1], ","))
	}
	if name := patientName(result); name != "" {
		o.add("Patient: " + name)
		o.set(ctxPatientName, name)
	}
	o.set(ctxPatientID, PatientID(result))

	switch {
	case caseID != "":
		o.Visual = CaseVisual{
			Type:     KindCase,
			CaseID:   caseID,
			Status:   "Open",
			Priority: casePriority(result),
		}
	case verified:
		o.Visual = InsuranceVisual{
			Type:          KindInsurance,
			Carrier:       carrier,
			Plan:          plan,
			Status:        "Active",
			CoverageRate:  coverage,
			DeductibleMet: deductibleMet,
		}
	}
	return o
}

var carriers = []struct{ match, name string }{
	{"BCBS", "BCBS"},
	{"Blue Cross", "BCBS"},
	{"Aetna", "Aetna"},
	{"Cigna", "Cigna"},
	{"UnitedHealthcare", "UnitedHealthcare"},
	{"Humana", "Humana"},
	{"Kaiser", "Kaiser Permanente"},
}

func carrierName(result string) string {
	for _, c := range carriers {
		if strings.Contains(result, c.match) {
			return c.name
		}
	}
	return ""
}

func patientName(result string) string {
	if m := nameFieldRe.FindStringSubmatch(result); m != nil {
		return m[1]
	}
	if m := nameProseRe.FindStringSubmatch(result); m != nil {
		return m[1]
	}
	return ""
}

func casePriority(result string) string {
	idx := strings.Index(strings.ToLower(result), "priority")
	if idx < 0 {
		return "Medium"
	}
	lo := idx - 20
	if lo < 0 {
		lo = 0
	}
	hi := idx + 30
	if hi > len(result) {
		hi = len(result)
	}
	m := priorityRe.FindString(result[lo:hi])
	if m == "" {
		return "Medium"
	}
	return strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
}

func nth(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
