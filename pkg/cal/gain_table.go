package cal

import (
	"fmt"
	"sort"
	"time"

	"github.com/radiotree/radiotree-go/pkg/wire"
)

const gainTableVersion = 1

// GainPoint is one measured gain offset.
type GainPoint struct {
	Freq float64 `cbor:"1,keyasint"` // Hz
	Gain float64 `cbor:"2,keyasint"` // dB
}

// GainTable maps frequency to a gain correction for one device.
type GainTable struct {
	Name      string
	Serial    string
	Timestamp time.Time

	points []GainPoint
}

// NewGainTable creates an empty table.
func NewGainTable(name, serial string, timestamp time.Time) *GainTable {
	return &GainTable{Name: name, Serial: serial, Timestamp: timestamp}
}

// gainTableWire is the serialized form.
type gainTableWire struct {
	Version   int         `cbor:"1,keyasint"`
	Name      string      `cbor:"2,keyasint"`
	Serial    string      `cbor:"3,keyasint"`
	Timestamp int64       `cbor:"4,keyasint"`
	Points    []GainPoint `cbor:"5,keyasint"`
}

// Add inserts a point, replacing any point at the same frequency.
func (g *GainTable) Add(freq, gain float64) {
	i := sort.Search(len(g.points), func(i int) bool { return g.points[i].Freq >= freq })
	if i < len(g.points) && g.points[i].Freq == freq {
		g.points[i].Gain = gain
		return
	}
	g.points = append(g.points, GainPoint{})
	copy(g.points[i+1:], g.points[i:])
	g.points[i] = GainPoint{Freq: freq, Gain: gain}
}

// Points returns the points sorted by frequency.
func (g *GainTable) Points() []GainPoint {
	return append([]GainPoint(nil), g.points...)
}

// Len returns the number of points.
func (g *GainTable) Len() int { return len(g.points) }

// Gain returns the correction at freq, interpolating linearly between the
// neighbouring points. Frequencies outside the table clamp to the nearest end.
func (g *GainTable) Gain(freq float64) (float64, error) {
	n := len(g.points)
	if n == 0 {
		return 0, ErrEmpty
	}
	if freq <= g.points[0].Freq {
		return g.points[0].Gain, nil
	}
	if freq >= g.points[n-1].Freq {
		return g.points[n-1].Gain, nil
	}
	i := sort.Search(n, func(i int) bool { return g.points[i].Freq >= freq })
	hi, lo := g.points[i], g.points[i-1]
	if hi.Freq == freq {
		return hi.Gain, nil
	}
	frac := (freq - lo.Freq) / (hi.Freq - lo.Freq)
	return lo.Gain + frac*(hi.Gain-lo.Gain), nil
}

// Serialize implements Container.
func (g *GainTable) Serialize() ([]byte, error) {
	return wire.Marshal(gainTableWire{
		Version:   gainTableVersion,
		Name:      g.Name,
		Serial:    g.Serial,
		Timestamp: g.Timestamp.Unix(),
		Points:    g.points,
	})
}

// Deserialize implements Container.
func (g *GainTable) Deserialize(data []byte) error {
	var w gainTableWire
	if err := wire.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if w.Version != gainTableVersion {
		return fmt.Errorf("%w: gain table version %d", ErrFormat, w.Version)
	}
	g.Name = w.Name
	g.Serial = w.Serial
	g.Timestamp = time.Unix(w.Timestamp, 0)
	g.points = nil
	for _, p := range w.Points {
		g.Add(p.Freq, p.Gain)
	}
	return nil
}
