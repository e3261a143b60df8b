package model

import (
	"encoding/json"
	"fmt"
)

const (
	ReportVersion = "1.0.0"
	ReportTopic   = "dstack-gpu-monitor"
)

type Status int

const (
	StatusAvailable Status = iota + 1
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	switch s {
	case StatusAvailable, StatusUnavailable:
		return json.Marshal(s.String())
	default:
		return nil, fmt.Errorf("invalid status value %d", int(s))
	}
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw {
	case "available":
		*s = StatusAvailable
	case "unavailable":
		*s = StatusUnavailable
	default:
		return fmt.Errorf("invalid status %q", raw)
	}
	return nil
}

// HealthReport is the envelope returned to health-check clients. Pubkeys
// always holds exactly the local node's public identifier.
type HealthReport struct {
	Version   string   `json:"version"`
	Topic     string   `json:"topic"`
	Pubkeys   []string `json:"pubkeys"`
	Status    Status   `json:"status"`
	Metadata  *string  `json:"metadata"`
	IPAddress *string  `json:"ip_address"`
}
