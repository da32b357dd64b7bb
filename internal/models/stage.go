package models

import "encoding/json"

// Stage is one entry of the production stage catalog. Name is the only
// identifier other records reference; renaming or deleting a stage can leave
// dangling references in orders and user assignments.
type Stage struct {
	Name                      string  `json:"name"`
	Description               string  `json:"description"`
	OrderIndex                int     `json:"order_index"`
	EstimatedTime             float64 `json:"estimated_time"`
	SetupTime                 float64 `json:"setup_time"`
	MaintenanceTime           float64 `json:"maintenance_time"`
	AssignedPeople            int     `json:"assigned_people"`
	WorkHours                 float64 `json:"work_hours"`
	ExpectedEfficiencyPercent int     `json:"expected_efficiency_percent"`

	Extra map[string]json.RawMessage `json:"-"`
}

type stageAlias Stage

func (s *Stage) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*stageAlias)(s)); err != nil {
		return err
	}
	extra, err := extraFields(data, s)
	if err != nil {
		return err
	}
	s.Extra = extra
	return nil
}

func (s Stage) MarshalJSON() ([]byte, error) {
	return mergeExtra(stageAlias(s), s.Extra)
}
