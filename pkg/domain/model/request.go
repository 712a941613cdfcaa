package model

// DocumentHeader holds the fields shared by every document request
type DocumentHeader struct {
	OrganizationName string   `json:"organizationName"`
	Title            string   `json:"title"`
	ReviewDate       string   `json:"reviewDate"`
	PreparedBy       string   `json:"preparedBy,omitempty"`
	ReferenceIDs     []string `json:"referenceIds,omitempty"`
}

// Header returns the shared header. It lets flows treat every request
// type uniformly when resolving references and naming saved documents.
func (h DocumentHeader) Header() DocumentHeader {
	return h
}

// HIRARequest is the input of the HIRA flow
type HIRARequest struct {
	DocumentHeader
	Location string         `json:"location,omitempty"`
	Hazards  []HazardRecord `json:"hazards"`
}

// SHEPlanRequest is the input of the SHE plan flow
type SHEPlanRequest struct {
	DocumentHeader
	ProjectDescription    string `json:"projectDescription"`
	Scope                 string `json:"scope"`
	Responsibilities      string `json:"responsibilities"`
	HazardsOverview       string `json:"hazardsOverview"`
	EmergencyArrangements string `json:"emergencyArrangements"`
	TrainingRequirements  string `json:"trainingRequirements,omitempty"`
	MonitoringAndReview   string `json:"monitoringAndReview,omitempty"`
}

// MethodStatementRequest is the input of the method statement flow
type MethodStatementRequest struct {
	DocumentHeader
	Location           string `json:"location,omitempty"`
	ScopeOfWork        string `json:"scopeOfWork"`
	SequenceOfWork     string `json:"sequenceOfWork"`
	PlantAndEquipment  string `json:"plantAndEquipment"`
	PPE                string `json:"ppe"`
	Personnel          string `json:"personnel,omitempty"`
	HazardsAndControls string `json:"hazardsAndControls"`
}

// SafeWorkProcedureRequest is the input of the safe-work procedure flow
type SafeWorkProcedureRequest struct {
	DocumentHeader
	TaskDescription     string `json:"taskDescription"`
	Steps               string `json:"steps"`
	PPE                 string `json:"ppe"`
	Hazards             string `json:"hazards"`
	EmergencyProcedures string `json:"emergencyProcedures"`
}

// RiskAssessmentRequest is the input of the risk assessment flow
type RiskAssessmentRequest struct {
	DocumentHeader
	Activity           string `json:"activity"`
	Hazards            string `json:"hazards"`
	ExistingControls   string `json:"existingControls"`
	AdditionalControls string `json:"additionalControls,omitempty"`
	Assessor           string `json:"assessor,omitempty"`
}

// HazardSuggestionRequest is the input of the hazard suggestion flow
type HazardSuggestionRequest struct {
	Title string `json:"title"`
}

// ArticleScrapeRequest is the input of the article scrape flow
type ArticleScrapeRequest struct {
	URL   string `json:"url"`
	Focus string `json:"focus,omitempty"`
}
