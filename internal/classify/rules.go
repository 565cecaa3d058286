package classify

import (
	"regexp"
	"strings"
)

// Rule matches text by case-insensitive substring containment.
// All keywords in All must appear; if Any is set at least one of them must too.
type Rule struct {
	Label string
	Any   []string
	All   []string
}

func (r Rule) match(lower string) bool {
	for _, kw := range r.All {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return len(r.All) > 0
	}
	for _, kw := range r.Any {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DefaultTaskLabel is used when no rule matches.
const DefaultTaskLabel = "Processing"

// ServiceNowTasks labels billing, ticketing and scheduling requests.
var ServiceNowTasks = []Rule{
	{Label: "Billing Lookup", Any: []string{"billing", "bill"}},
	{Label: "Billing Correction", Any: []string{"correct", "fix"}},
	{Label: "Create Ticket", Any: []string{"ticket"}},
	{Label: "Schedule Appointment", Any: []string{"appointment", "schedule"}},
}

// SalesforceTasks labels patient, insurance and case requests.
var SalesforceTasks = []Rule{
	{Label: "Insurance Verification", Any: []string{"insurance", "coverage"}},
	{Label: "Patient Lookup", All: []string{"patient", "record"}},
	{Label: "Create Case", Any: []string{"case"}},
	{Label: "Care History", Any: []string{"history"}},
}

// TaskLabel returns the label of the first rule matching task, or DefaultTaskLabel.
func TaskLabel(rules []Rule, task string) string {
	lower := strings.ToLower(task)
	for _, r := range rules {
		if r.match(lower) {
			return r.Label
		}
	}
	return DefaultTaskLabel
}

// Thought is the reasoning note shown before the orchestrator calls out.
type Thought struct {
	Title  string
	Detail string
}

var thoughtRules = []struct {
	rule    Rule
	thought Thought
}{
	{
		Rule{Any: []string{"billing", "charge"}},
		Thought{"Gathering context", "Billing question: pulling charges and insurance details before answering"},
	},
	{
		Rule{Any: []string{"fix", "correct"}},
		Thought{"Planning correction", "Correction requested: submit the fix and open a tracking case"},
	},
	{
		Rule{Any: []string{"insurance", "coverage"}},
		Thought{"Verifying coverage", "Coverage question: checking policy status, deductible and patient responsibility"},
	},
	{
		Rule{Any: []string{"appointment", "schedule"}},
		Thought{"Checking availability", "Scheduling request: looking for open slots that fit"},
	},
}

// Think picks at most one thought for an incoming message.
func Think(message string) (Thought, bool) {
	lower := strings.ToLower(message)
	for _, tr := range thoughtRules {
		if tr.rule.match(lower) {
			return tr.thought, true
		}
	}
	return Thought{}, false
}

var patientIDRe = regexp.MustCompile(`\bPAT-\d+\b`)

// PatientID returns the first patient identifier in text, or "".
func PatientID(text string) string {
	return patientIDRe.FindString(text)
}
