package monitor

import "time"

// Status is the last probe result of every registered dependency.
type Status struct {
	Online    bool            `json:"online"`
	Services  map[string]bool `json:"services"`
	LastCheck time.Time       `json:"last_check"`
}

func (s Status) clone() Status {
	services := make(map[string]bool, len(s.Services))
	for name, ok := range s.Services {
		services[name] = ok
	}
	s.Services = services
	return s
}
