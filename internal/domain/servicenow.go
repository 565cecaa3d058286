package domain

import (
	"context"
	"fmt"

	"github.com/nlpodyssey/openai-agents-go/agents"

	"github.com/hubenschmidt/cx-gateway/internal/prompts"
)

// ServiceNowName is the display name used in traces.
const ServiceNowName = "ServiceNow"

type serviceNowData struct {
	Bills        map[string][]Record `json:"bills"`
	Tickets      map[string][]Record `json:"tickets"`
	Appointments struct {
		AvailableSlots []Record `json:"available_slots"`
	} `json:"appointments"`
}

// ServiceNow answers billing, ticketing and scheduling tasks.
type ServiceNow struct {
	data  serviceNowData
	newID IDFunc
}

// NewServiceNow loads the embedded records. newID may be nil.
func NewServiceNow(newID IDFunc) (*ServiceNow, error) {
	s := &ServiceNow{newID: newID}
	if s.newID == nil {
		s.newID = NewRef
	}
	if err := loadJSON("servicenow.json", &s.data); err != nil {
		return nil, fmt.Errorf("servicenow: %w", err)
	}
	return s, nil
}

type BillingLookupArgs struct {
	PatientID string `json:"patient_id" jsonschema_description:"Patient identifier, e.g. PAT-2847"`
}

// BillingLookup returns the patient's bills for root cause analysis.
func (s *ServiceNow) BillingLookup(_ context.Context, args BillingLookupArgs) (string, error) {
	records := s.data.Bills[args.PatientID]
	if len(records) == 0 {
		return reply(map[string]any{
			"status": "error",
			"data":   map[string]any{},
			"instruction": fmt.Sprintf("No billing records found for patient ID %s. "+
				"Report this clearly and suggest verifying the patient ID.", args.PatientID),
		})
	}
	return reply(map[string]any{
		"status":          "found",
		"billing_records": records,
		"instruction": "Analyze these billing records. For each record identify the root cause of any error, " +
			"explain it using the procedure codes and modifiers involved, calculate the expected corrected " +
			"amount and recommend specific corrective actions. Return the analysis as a structured JSON artifact.",
	})
}

type BillingCorrectArgs struct {
	PatientID      string `json:"patient_id" jsonschema_description:"Patient identifier"`
	BillID         string `json:"bill_id" jsonschema_description:"Bill to correct, e.g. BILL-90421"`
	CorrectionType string `json:"correction_type" jsonschema_description:"One of procedure_code, insurance_reprocess, charge_dispute"`
	Details        string `json:"details" jsonschema_description:"Additional correction details, may be empty"`
}

// BillingCorrect prepares a correction for one bill and assigns its CORR- reference.
func (s *ServiceNow) BillingCorrect(_ context.Context, args BillingCorrectArgs) (string, error) {
	var bill Record
	for _, b := range s.data.Bills[args.PatientID] {
		if b["bill_id"] == args.BillID {
			bill = b
			break
		}
	}
	if bill == nil {
		return reply(map[string]any{
			"status":      "error",
			"instruction": fmt.Sprintf("Bill %s not found for patient %s.", args.BillID, args.PatientID),
		})
	}
	id := s.newID("CORR")
	return reply(map[string]any{
		"status":          "ready",
		"bill_to_correct": bill,
		"correction_type": args.CorrectionType,
		"correction_id":   id,
		"details":         args.Details,
		"instruction": fmt.Sprintf("Process this billing correction. The correction ID is %s. "+
			"Determine the corrected amount and the expected timeline (24-48 hours for code corrections, "+
			"5-7 business days for insurance reprocessing) and confirm what actions will be taken. "+
			"Return as structured JSON.", id),
	})
}

type TicketCreateArgs struct {
	PatientID string `json:"patient_id" jsonschema_description:"Patient identifier"`
	Category  string `json:"category" jsonschema_description:"billing_dispute, scheduling or general"`
	Summary   string `json:"summary" jsonschema_description:"Brief summary of the issue"`
	Priority  string `json:"priority" jsonschema_description:"low, medium, high or critical"`
	Details   string `json:"details" jsonschema_description:"Additional details, may be empty"`
}

// TicketCreate drafts a service ticket with a TKT- reference.
func (s *ServiceNow) TicketCreate(_ context.Context, args TicketCreateArgs) (string, error) {
	priority := args.Priority
	if priority == "" {
		priority = "medium"
	}
	id := s.newID("TKT")
	return reply(map[string]any{
		"status":           "ready",
		"existing_tickets": orEmpty(s.data.Tickets[args.PatientID]),
		"new_ticket": map[string]any{
			"ticket_id":  id,
			"patient_id": args.PatientID,
			"category":   args.Category,
			"summary":    args.Summary,
			"priority":   priority,
			"details":    args.Details,
		},
		"instruction": fmt.Sprintf("Create this service ticket (ID: %s). Check for duplicate tickets first. "+
			"Assign it to the team matching its category and set the SLA from its priority "+
			"(critical 4hr, high 8hr, medium 24hr, low 48hr). Return confirmation as structured JSON.", id),
	})
}

type AppointmentScheduleArgs struct {
	PatientID     string `json:"patient_id" jsonschema_description:"Patient identifier"`
	Department    string `json:"department" jsonschema_description:"Department name, e.g. Cardiology"`
	Reason        string `json:"reason" jsonschema_description:"Reason for the appointment"`
	PreferredDate string `json:"preferred_date" jsonschema_description:"YYYY-MM-DD, may be empty"`
	Facility      string `json:"facility" jsonschema_description:"Preferred facility, may be empty"`
}

// AppointmentSchedule lists open slots alongside the request.
func (s *ServiceNow) AppointmentSchedule(_ context.Context, args AppointmentScheduleArgs) (string, error) {
	return reply(map[string]any{
		"status":          "ready",
		"available_slots": orEmpty(s.data.Appointments.AvailableSlots),
		"request": map[string]any{
			"patient_id":     args.PatientID,
			"department":     args.Department,
			"reason":         args.Reason,
			"preferred_date": args.PreferredDate,
			"facility":       args.Facility,
		},
		"instruction": "Find the best available slot for this request, considering preferred date, department " +
			"and facility. If nothing matches exactly suggest the closest alternatives. " +
			"Return the selected slot and confirmation.",
	})
}

// Agent returns the ServiceNow agent definition.
func (s *ServiceNow) Agent() Agent {
	return Agent{
		Name:         ServiceNowName,
		Description:  "Billing operations, service tickets and appointment scheduling",
		Instructions: prompts.ServiceNow,
		Tools: []agents.Tool{
			agents.NewFunctionTool("billing_lookup",
				"Retrieve and analyze billing records for a patient account.", s.BillingLookup),
			agents.NewFunctionTool("billing_correct",
				"Submit a billing correction and get its reference id and timeline.", s.BillingCorrect),
			agents.NewFunctionTool("ticket_create",
				"Create a tracked service ticket with priority, routing and SLA.", s.TicketCreate),
			agents.NewFunctionTool("appointment_schedule",
				"Find available appointment slots and confirm scheduling.", s.AppointmentSchedule),
		},
	}
}
