package model

// ModelInfo describes the artifact currently served.
type ModelInfo struct {
	ArtifactKey string   `json:"artifact_key"`
	Classes     []string `json:"classes"`
	Features    int      `json:"features"`
	TrainedAt   int64    `json:"trained_at"`
	LoadedAt    int64    `json:"loaded_at"`
	Generation  uint64   `json:"generation"`
}
