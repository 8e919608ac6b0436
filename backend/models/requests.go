package models

// SubmitCodeRequest is the body of a graded submission. Field names match
// the client contract.
type SubmitCodeRequest struct {
	ChallengeID string `json:"challengeId"`
	Code        string `json:"userCode"`
}

// PracticeRunRequest is the body of a sandbox run.
type PracticeRunRequest struct {
	Code string `json:"code"`
}

// CreatePaymentRequest selects a shop item to buy.
type CreatePaymentRequest struct {
	ItemType string `json:"item_type"`
}
