package models

// RecommendationPage is one page of a user's cached candidate list
type RecommendationPage struct {
	Items    []string `json:"items"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	HasMore  bool     `json:"has_more"`
	// Stale is set when the list could not be refreshed and a previous result was served.
	Stale bool `json:"stale,omitempty"`
}
