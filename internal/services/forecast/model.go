package forecast

import (
	"StockBrain/internal/services/features"
	"StockBrain/internal/services/network"
)

// Model is a trained network plus everything needed to forecast from it. It is never
// mutated after Engine.Train returns it.
type Model struct {
	net        *network.Network
	params     features.NormalizationParams
	window     int
	trainError float64
	iterations int
}

func (m *Model) Params() features.NormalizationParams { return m.params }

func (m *Model) Window() int { return m.window }

// TrainingError is the mean squared error of the final epoch, in normalized units.
func (m *Model) TrainingError() float64 { return m.trainError }

// Iterations is the number of epochs actually run.
func (m *Model) Iterations() int { return m.iterations }

func (m *Model) Architecture() []network.LayerSpec { return m.net.Architecture() }
