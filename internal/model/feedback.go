package model

type Feedback struct {
	ID             int64    `json:"id"`
	Text           string   `json:"text"`
	PredictedLabel *string  `json:"predicted_label"`
	UserCorrection *string  `json:"user_correction"`
	IsAccepted     *bool    `json:"is_accepted"`
	Confidence     *float64 `json:"confidence"`
	CreatedAt      int64    `json:"created_at"`
	Consumed       bool     `json:"consumed"`
}

// Correction is a rejected prediction paired with the label the user supplied.
type Correction struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Label string `json:"label"`
}

type FeedbackStats struct {
	Total                 int64 `json:"total"`
	Accepted              int64 `json:"accepted"`
	Rejected              int64 `json:"rejected"`
	UnconsumedCorrections int64 `json:"unconsumed_corrections"`
}
