package indicators

import (
	"github.com/gregtusar/papertrader/pkg/models"
)

const DefaultWindowCapacity = 200

// PriceWindow is a fixed-capacity ring buffer of price points in arrival
// order. Once full, each Add evicts the oldest point. It is not safe for
// concurrent use.
type PriceWindow struct {
	points []models.PricePoint
	start  int
	size   int
}

func NewPriceWindow(capacity int) *PriceWindow {
	if capacity <= 0 {
		capacity = DefaultWindowCapacity
	}
	return &PriceWindow{points: make([]models.PricePoint, capacity)}
}

func (w *PriceWindow) Add(p models.PricePoint) {
	capacity := len(w.points)
	if w.size < capacity {
		w.points[(w.start+w.size)%capacity] = p
		w.size++
		return
	}
	w.points[w.start] = p
	w.start = (w.start + 1) % capacity
}

func (w *PriceWindow) Len() int {
	return w.size
}

func (w *PriceWindow) Cap() int {
	return len(w.points)
}

// Ready reports whether at least n points are held.
func (w *PriceWindow) Ready(n int) bool {
	return w.size >= n
}

// Points returns the held points, oldest first.
func (w *PriceWindow) Points() []models.PricePoint {
	out := make([]models.PricePoint, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.points[(w.start+i)%len(w.points)]
	}
	return out
}

// Prices returns the held prices, oldest first.
func (w *PriceWindow) Prices() []float64 {
	out := make([]float64, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.points[(w.start+i)%len(w.points)].Price
	}
	return out
}

// Last returns the newest point.
func (w *PriceWindow) Last() (models.PricePoint, bool) {
	if w.size == 0 {
		return models.PricePoint{}, false
	}
	return w.points[(w.start+w.size-1)%len(w.points)], true
}

// Back returns the point n steps before the newest one, clamped to the oldest.
func (w *PriceWindow) Back(n int) (models.PricePoint, bool) {
	if w.size == 0 {
		return models.PricePoint{}, false
	}
	if n >= w.size {
		n = w.size - 1
	}
	if n < 0 {
		n = 0
	}
	return w.points[(w.start+w.size-1-n)%len(w.points)], true
}
