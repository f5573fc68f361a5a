package neural

import (
	"fmt"
	"sync"

	gonnx "github.com/advancedclimatesystems/gonnx"
	"github.com/rs/zerolog/log"
	"gorgonia.org/tensor"

	"github.com/freeeve/polite-betrayal/proai/internal/bot"
	"github.com/freeeve/polite-betrayal/proai/pkg/wargame"
)

// StrengthModel scores battle sides with an ONNX regression model. Inference
// errors fall back to the heuristic estimator.
type StrengthModel struct {
	model    *gonnx.Model
	fallback bot.StrengthEstimator
	mu       sync.Mutex
}

// LoadStrengthModel loads the ONNX model at path.
func LoadStrengthModel(path string) (*StrengthModel, error) {
	m, err := gonnx.NewModelFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load strength model %s: %w", path, err)
	}
	return &StrengthModel{model: m, fallback: bot.HeuristicStrength{}}, nil
}

// NewStrengthEstimator returns the model at path, or the heuristic
// estimator when path is empty or the model cannot be loaded.
func NewStrengthEstimator(path string) bot.StrengthEstimator {
	if path == "" {
		return bot.HeuristicStrength{}
	}
	m, err := LoadStrengthModel(path)
	if err != nil {
		log.Warn().Err(err).Msg("Strength model unavailable, falling back to heuristic")
		return bot.HeuristicStrength{}
	}
	log.Info().Str("path", path).Msg("Strength model loaded")
	return m
}

// Strength implements bot.StrengthEstimator.
func (s *StrengthModel) Strength(t *wargame.Territory, units, enemies []*wargame.Unit, attacking bool, diceSides int) float64 {
	v, err := s.run(EncodeBattle(t, units, enemies, attacking, diceSides))
	if err != nil {
		log.Debug().Err(err).Msg("Strength inference failed, using heuristic")
		return s.fallback.Strength(t, units, enemies, attacking, diceSides)
	}
	return v
}

func (s *StrengthModel) run(features []float32) (float64, error) {
	in := tensor.New(
		tensor.WithShape(1, NumFeatures),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(features),
	)
	inputs := gonnx.Tensors{InputFeatures: in}

	s.mu.Lock()
	outputs, err := s.model.Run(inputs)
	s.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("strength run: %w", err)
	}

	out, ok := outputs[OutputStrength]
	if !ok {
		return 0, fmt.Errorf("output %q not found", OutputStrength)
	}
	return firstValue(out.Data())
}

func firstValue(data any) (float64, error) {
	switch d := data.(type) {
	case []float32:
		if len(d) == 0 {
			return 0, fmt.Errorf("empty strength output")
		}
		return float64(d[0]), nil
	case []float64:
		if len(d) == 0 {
			return 0, fmt.Errorf("empty strength output")
		}
		return d[0], nil
	case float32:
		return float64(d), nil
	case float64:
		return d, nil
	default:
		return 0, fmt.Errorf("unexpected strength output type %T", data)
	}
}
