package constvars

const (
	ResourceConsent          = "Consent"
	ResourceOperationOutcome = "OperationOutcome"
)

const (
	FhirIssueSeverityError  = "error"
	FhirIssueCodeException  = "exception"
	FhirUnknownErrorMessage = "unknown error"
)

const (
	FhirConsentActionOptIn  = "OPTIN"
	FhirConsentActionOptOut = "OPTOUT"
)

const (
	FhirQueryParamPatientID = "patient_id"
)
