package forecast

import "FinAlloc/internal/domain/models"

// ModelOption configures AttentionLSTM.
type ModelOption func(*ModelConfig)

// ModelConfig holds predictor settings that are not part of the weights file.
type ModelConfig struct {
	Window int
}

// WithWindow sets the expected window length.
func WithWindow(n int) ModelOption {
	return func(c *ModelConfig) {
		c.Window = n
	}
}

func defaultModelConfig() ModelConfig {
	return ModelConfig{Window: models.DefaultWindow}
}
