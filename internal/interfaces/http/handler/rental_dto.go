package handler

import "github.com/shopspring/decimal"

// RejectOrderRequest carries the optional rejection reason
type RejectOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// WithdrawRequest requests a wallet withdrawal. Amount validation happens in
// the application layer so the error message matches the marketplace's.
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// OpenDisputeRequest opens a dispute against an order
type OpenDisputeRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Reason  string `json:"reason" binding:"required,max=2000"`
}

// ResolveDisputeRequest closes a dispute with a verdict
type ResolveDisputeRequest struct {
	Verdict string `json:"verdict" binding:"required,max=2000"`
}

// PresignUploadRequest asks for a presigned photo upload slot
type PresignUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

// RotateCapabilityResponse returns the fresh admin path segment
type RotateCapabilityResponse struct {
	Segment string `json:"segment"`
}
