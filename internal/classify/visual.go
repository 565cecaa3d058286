package classify

// VisualKind tags a Visual for client-side rendering.
type VisualKind string

const (
	KindBilling    VisualKind = "billing"
	KindInsurance  VisualKind = "insurance"
	KindCorrection VisualKind = "correction"
	KindCase       VisualKind = "case"
)

// Visual is a structured card derived from an agent result. The concrete
// types below serialize flat, tagged by their "type" field.
type Visual interface {
	Kind() VisualKind
}

type BillingVisual struct {
	Type          VisualKind `json:"type"`
	BillID        string     `json:"bill_id"`
	Amount        string     `json:"amount"`
	CorrectAmount string     `json:"correct_amount"`
	ProcedureCode string     `json:"procedure_code"`
	CorrectCode   string     `json:"correct_code"`
}

func (BillingVisual) Kind() VisualKind { return KindBilling }

type InsuranceVisual struct {
	Type          VisualKind `json:"type"`
	Carrier       string     `json:"carrier"`
	Plan          string     `json:"plan"`
	Status        string     `json:"status"`
	CoverageRate  string     `json:"coverage_rate"`
	DeductibleMet bool       `json:"deductible_met"`
}

func (InsuranceVisual) Kind() VisualKind { return KindInsurance }

type CorrectionVisual struct {
	Type            VisualKind `json:"type"`
	CorrectionID    string     `json:"correction_id"`
	OriginalAmount  string     `json:"original_amount"`
	CorrectedAmount string     `json:"corrected_amount"`
	Savings         string     `json:"savings"`
	Timeline        string     `json:"timeline"`
}

func (CorrectionVisual) Kind() VisualKind { return KindCorrection }

type CaseVisual struct {
	Type     VisualKind `json:"type"`
	CaseID   string     `json:"case_id"`
	Status   string     `json:"status"`
	Priority string     `json:"priority"`
}

func (CaseVisual) Kind() VisualKind { return KindCase }
