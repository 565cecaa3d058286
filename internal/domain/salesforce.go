package domain

import (
	"context"
	"fmt"

	"github.com/nlpodyssey/openai-agents-go/agents"

	"github.com/hubenschmidt/cx-gateway/internal/prompts"
)

// SalesforceName is the display name used in traces.
const SalesforceName = "Salesforce"

type salesforceData struct {
	Patients    map[string]Record   `json:"patients"`
	Insurance   map[string]Record   `json:"insurance"`
	CareHistory map[string][]Record `json:"care_history"`
	Cases       map[string][]Record `json:"cases"`
}

// Salesforce answers patient, insurance, care history and case tasks.
type Salesforce struct {
	data  salesforceData
	newID IDFunc
}

// NewSalesforce loads the embedded records. newID may be nil.
func NewSalesforce(newID IDFunc) (*Salesforce, error) {
	s := &Salesforce{newID: newID}
	if s.newID == nil {
		s.newID = NewRef
	}
	if err := loadJSON("salesforce.json", &s.data); err != nil {
		return nil, fmt.Errorf("salesforce: %w", err)
	}
	return s, nil
}

type PatientLookupArgs struct {
	PatientID string `json:"patient_id" jsonschema_description:"Patient identifier, e.g. PAT-2847"`
}

// PatientLookup returns demographics, contact details and preferences.
func (s *Salesforce) PatientLookup(_ context.Context, args PatientLookupArgs) (string, error) {
	patient, ok := s.data.Patients[args.PatientID]
	if !ok {
		return reply(map[string]any{
			"status":      "error",
			"instruction": fmt.Sprintf("Patient %s not found in the system.", args.PatientID),
		})
	}
	return reply(map[string]any{
		"status":         "found",
		"patient_record": patient,
		"instruction":    "Provide relevant demographic and preference information.",
	})
}

type InsuranceVerifyArgs struct {
	PatientID    string `json:"patient_id" jsonschema_description:"Patient identifier"`
	PolicyNumber string `json:"policy_number" jsonschema_description:"Policy number, may be empty"`
}

// InsuranceVerify returns the policy for a coverage determination.
func (s *Salesforce) InsuranceVerify(_ context.Context, args InsuranceVerifyArgs) (string, error) {
	insurance, ok := s.data.Insurance[args.PatientID]
	if !ok {
		return reply(map[string]any{
			"status":      "error",
			"instruction": fmt.Sprintf("No insurance record found for patient %s.", args.PatientID),
		})
	}
	return reply(map[string]any{
		"status":           "found",
		"insurance_record": insurance,
		"instruction": "Verify this insurance coverage. Confirm the policy is active, check whether the deductible " +
			"has been met, calculate the expected patient responsibility for a cardiology E&M visit (99214) " +
			"and give a clear coverage determination with copay, coinsurance percentage and total expected cost.",
	})
}

type CareHistoryArgs struct {
	PatientID      string `json:"patient_id" jsonschema_description:"Patient identifier"`
	DateRangeStart string `json:"date_range_start" jsonschema_description:"YYYY-MM-DD, may be empty"`
	DateRangeEnd   string `json:"date_range_end" jsonschema_description:"YYYY-MM-DD, may be empty"`
}

// CareHistory returns visits, procedures and diagnoses, filtered by date when given.
func (s *Salesforce) CareHistory(_ context.Context, args CareHistoryArgs) (string, error) {
	var history []Record
	for _, rec := range s.data.CareHistory[args.PatientID] {
		date, _ := rec["date"].(string)
		if args.DateRangeStart != "" && date < args.DateRangeStart {
			continue
		}
		if args.DateRangeEnd != "" && date > args.DateRangeEnd {
			continue
		}
		history = append(history, rec)
	}
	status := "found"
	if len(history) == 0 {
		status = "empty"
	}
	return reply(map[string]any{
		"status":       status,
		"care_records": orEmpty(history),
		"instruction": "Summarize the relevant care history. Flag anything pertinent to the current inquiry " +
			"and include dates, providers and key findings.",
	})
}

type CaseCreateArgs struct {
	PatientID   string `json:"patient_id" jsonschema_description:"Patient identifier"`
	CaseType    string `json:"case_type" jsonschema_description:"billing_dispute, appointment_issue or general"`
	Subject     string `json:"subject" jsonschema_description:"Brief subject line"`
	Description string `json:"description" jsonschema_description:"Detailed description, may be empty"`
}

// CaseCreate drafts a tracking case with a CASE- reference.
func (s *Salesforce) CaseCreate(_ context.Context, args CaseCreateArgs) (string, error) {
	patient := s.data.Patients[args.PatientID]
	if patient == nil {
		patient = Record{}
	}
	id := s.newID("CASE")
	return reply(map[string]any{
		"status":          "ready",
		"patient_context": patient,
		"existing_cases":  orEmpty(s.data.Cases[args.PatientID]),
		"new_case": map[string]any{
			"case_id":     id,
			"patient_id":  args.PatientID,
			"case_type":   args.CaseType,
			"subject":     args.Subject,
			"description": args.Description,
		},
		"instruction": fmt.Sprintf("Create patient case %s. Route billing_dispute to the Billing Resolution Team, "+
			"appointment_issue to Patient Access and anything else to Patient Services. Set priority from the "+
			"case details and use the patient's contact preference for follow-up. Return confirmation.", id),
	})
}

// Agent returns the Salesforce agent definition.
func (s *Salesforce) Agent() Agent {
	return Agent{
		Name:         SalesforceName,
		Description:  "Patient records, insurance verification, care history and case management",
		Instructions: prompts.Salesforce,
		Tools: []agents.Tool{
			agents.NewFunctionTool("patient_lookup",
				"Retrieve patient demographics, contact details and preferences.", s.PatientLookup),
			agents.NewFunctionTool("insurance_verify",
				"Verify coverage, deductible status and expected patient responsibility.", s.InsuranceVerify),
			agents.NewFunctionTool("care_history",
				"Retrieve visits, procedures and diagnoses.", s.CareHistory),
			agents.NewFunctionTool("case_create",
				"Create a patient case for tracking issue resolution.", s.CaseCreate),
		},
	}
}
