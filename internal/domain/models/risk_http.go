package models

// Requests for risk HTTP endpoints. Defined in domain for consistency and reuse.

type RiskRequest struct {
	SessionID string `query:"sessionId" json:"sessionId" validate:"required,max=128"`
}

type RiskHistoryRequest struct {
	SessionID string `query:"sessionId" json:"sessionId" validate:"required,max=128"`
	Limit     int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=200"`
}

type RiskStreamRequest struct {
	SessionID string `query:"sessionId" json:"sessionId" validate:"required,max=128"`
}
