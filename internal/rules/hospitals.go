package rules

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/drockthedoc/transfer-center/internal/model"
)

// LoadCampuses reads the hospital capability file: a JSON array of campus
// objects with location, bed census, keyword exclusions and helipads.
func LoadCampuses(path string) ([]model.HospitalCampus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read campus file: %w", err)
	}
	return ParseCampuses(data)
}

// ParseCampuses parses raw hospital capability JSON.
func ParseCampuses(data []byte) ([]model.HospitalCampus, error) {
	var campuses []model.HospitalCampus
	if err := json.Unmarshal(data, &campuses); err != nil {
		return nil, fmt.Errorf("parse campus file: %w", err)
	}
	for i, c := range campuses {
		if c.CampusID == "" {
			return nil, fmt.Errorf("campus at index %d has no campus_id", i)
		}
	}
	return campuses, nil
}
