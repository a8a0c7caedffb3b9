// Package oracle answers travel and bed availability questions for candidate
// campuses. Absence of data is always "unknown" (a nil estimate with
// ErrOracleUnavailable), never zero.
package oracle

import (
	"context"
	"fmt"
	"math"

	"github.com/drockthedoc/transfer-center/internal/model"
)

// Oracle is the travel/bed data collaborator. Both calls may fail; callers
// proceed with unknown values and lowered confidence.
type Oracle interface {
	TravelEstimate(ctx context.Context, origin model.Location, campus model.HospitalCampus, mode model.TransportMode) (*model.TravelEstimate, error)
	BedCensus(ctx context.Context, campusID string) (*model.BedCensus, error)
}

// HaversineOracle estimates travel from great-circle distance and a per-mode
// speed table, and serves bed censuses from the loaded capability data.
type HaversineOracle struct {
	config model.OracleConfig
	census map[string]model.BedCensus
}

// NewHaversineOracle builds the default oracle over the loaded campuses.
func NewHaversineOracle(config model.OracleConfig, campuses []model.HospitalCampus) *HaversineOracle {
	census := make(map[string]model.BedCensus, len(campuses))
	for _, c := range campuses {
		census[c.CampusID] = c.BedCensus
	}
	return &HaversineOracle{config: config, census: census}
}

// TravelEstimate computes distance and duration for the requested mode. Air
// modes require a helipad at the destination; without one the estimate falls
// back to ground transport.
func (o *HaversineOracle) TravelEstimate(ctx context.Context, origin model.Location, campus model.HospitalCampus, mode model.TransportMode) (*model.TravelEstimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOracleUnavailable, err)
	}

	crow := haversineKm(origin, campus.Location)

	if mode == model.TransportHelicopter || mode == model.TransportFixedWing {
		if len(campus.Helipads) == 0 {
			mode = model.TransportGround
		}
	}

	var distance float64
	var speed float64
	switch mode {
	case model.TransportHelicopter:
		distance = crow
		speed = o.config.HeliSpeedKmh
	case model.TransportFixedWing:
		distance = crow
		speed = o.config.FixedWingKmh
	default:
		mode = model.TransportGround
		distance = crow * o.roadFactor()
		speed = o.config.GroundSpeedKmh
	}
	if speed <= 0 {
		return nil, fmt.Errorf("%w: no speed configured for mode %s", model.ErrOracleUnavailable, mode)
	}

	return &model.TravelEstimate{
		DistanceKm:  roundTenth(distance),
		DurationMin: roundTenth(distance / speed * 60),
		Mode:        mode,
	}, nil
}

// BedCensus returns the current census for a campus.
func (o *HaversineOracle) BedCensus(ctx context.Context, campusID string) (*model.BedCensus, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOracleUnavailable, err)
	}
	census, ok := o.census[campusID]
	if !ok {
		return nil, fmt.Errorf("%w: no census for campus %s", model.ErrOracleUnavailable, campusID)
	}
	out := census
	return &out, nil
}

func (o *HaversineOracle) roadFactor() float64 {
	if o.config.RoadFactor <= 0 {
		return 1.3
	}
	return o.config.RoadFactor
}

const earthRadiusKm = 6371.0

func haversineKm(a, b model.Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
