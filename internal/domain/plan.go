package domain

// ImagePlan describes one photographic variant to generate.
type ImagePlan struct {
	Angle       string `json:"angle"`
	Background  string `json:"background"`
	Description string `json:"description"`
}

// ModelTier selects which model family serves a request.
type ModelTier string

const (
	ModelAuto  ModelTier = "auto"
	ModelFlash ModelTier = "flash"
	ModelPro   ModelTier = "pro"
)

// ParseModelTier falls back to ModelAuto for empty or unknown values.
func ParseModelTier(v string) ModelTier {
	switch ModelTier(v) {
	case ModelFlash, ModelPro:
		return ModelTier(v)
	default:
		return ModelAuto
	}
}
