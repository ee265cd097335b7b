package dto

// RetrievePolicyRequest identifies a policy by what the customer knows
type RetrievePolicyRequest struct {
	PolicyNumber string `json:"policyNumber" binding:"required,max=32"`
	Email        string `json:"email" binding:"required,max=320"`
}

// ResendDocumentsResponse is returned whether or not the details matched
type ResendDocumentsResponse struct {
	Message string `json:"message"`
}

// ResendDocumentsMessage is the reply to every resend request
const ResendDocumentsMessage = "If those details match a policy, we've emailed the documents"

// VehicleLookupRequest asks for a vehicle by registration mark
type VehicleLookupRequest struct {
	Registration string `json:"registration" binding:"required,max=16"`
}
