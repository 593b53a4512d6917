package model

type ModelVersion struct {
	ID                  int64   `json:"id"`
	VersionNumber       int     `json:"version_number"`
	TrainingSampleCount int     `json:"training_sample_count"`
	Accuracy            float64 `json:"accuracy"`
	Notes               string  `json:"notes"`
	ArtifactKey         string  `json:"artifact_key"`
	CreatedAt           int64   `json:"created_at"`
}
