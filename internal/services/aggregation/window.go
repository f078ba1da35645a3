package aggregation

import "GridPulse/internal/domain/models"

// DefaultCapacity is the number of (observed, forecast) pairs kept for a session.
const DefaultCapacity = 50

// HistoryWindow holds two parallel bounded series that always have the same
// length. It is owned by the tick loop and is not safe for concurrent use.
type HistoryWindow struct {
	capacity int
	observed []float64
	forecast []float64
}

func NewHistoryWindow(capacity int) *HistoryWindow {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &HistoryWindow{
		capacity: capacity,
		observed: make([]float64, 0, capacity+1),
		forecast: make([]float64, 0, capacity+1),
	}
}

// Ingest appends one result, evicting the oldest pair once over capacity.
func (w *HistoryWindow) Ingest(r models.InferenceResult) {
	w.observed = append(w.observed, r.Observed)
	w.forecast = append(w.forecast, r.Forecast)
	if len(w.observed) > w.capacity {
		w.observed = evictOldest(w.observed)
		w.forecast = evictOldest(w.forecast)
	}
}

func evictOldest(s []float64) []float64 {
	n := copy(s, s[1:])
	return s[:n]
}

// Reset empties both series. Calling it on an empty window is a no-op.
func (w *HistoryWindow) Reset() {
	w.observed = w.observed[:0]
	w.forecast = w.forecast[:0]
}

func (w *HistoryWindow) Len() int { return len(w.observed) }

func (w *HistoryWindow) Capacity() int { return w.capacity }

// Observed returns a copy of the observed series, oldest first.
func (w *HistoryWindow) Observed() []float64 { return clone(w.observed) }

// Forecast returns a copy of the forecast series, oldest first.
func (w *HistoryWindow) Forecast() []float64 { return clone(w.forecast) }

// History copies both series for the presentation layer.
func (w *HistoryWindow) History() models.History {
	return models.History{Observed: clone(w.observed), Forecast: clone(w.forecast)}
}

// Snapshot derives the KPIs for the current contents under s.
func (w *HistoryWindow) Snapshot(s models.Settings) models.Snapshot {
	return Derive(w.observed, w.forecast, s)
}

func clone(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
