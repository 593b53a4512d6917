package model

type PredictionResult struct {
	Input      string  `json:"input"`
	Label      string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
}
