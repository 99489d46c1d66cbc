package model

import (
	"time"

	"salesroute/internal/opt"
)

// Core domain types shared by the API, the CLI and the store.

// Rep is the sales representative whose day is planned. Field tags accept both
// the API's camelCase JSON and the snake_case config file.
type Rep struct {
	ID             string       `json:"id,omitempty" yaml:"id"`
	Name           string       `json:"name" yaml:"name"`
	StartLocation  Place        `json:"startLocation" yaml:"start_location"`
	WorkingHours   WorkingHours `json:"workingHours" yaml:"working_hours"`
	MaxDistanceKm  float64      `json:"maxDistanceKm" yaml:"max_distance_km"`
	MaxTravelHours float64      `json:"maxTravelHours,omitempty" yaml:"max_travel_hours"`
}

type Place struct {
	Name string  `json:"name,omitempty" yaml:"name"`
	Lat  float64 `json:"lat" yaml:"latitude"`
	Lng  float64 `json:"lng" yaml:"longitude"`
}

// WorkingHours are HH:MM clock times.
type WorkingHours struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type Client struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	WindowStart    string  `json:"windowStart"`
	WindowEnd      string  `json:"windowEnd"`
	ServiceMinutes float64 `json:"serviceMinutes"`
	Priority       string  `json:"priority,omitempty"`
}

// OptimizeRequest plans either a rep's day (Rep + Clients, matrices fetched by
// the server) or a raw matrix problem.
type OptimizeRequest struct {
	PlanDate    string     `json:"planDate"`
	Rep         *Rep       `json:"rep,omitempty"`
	Clients     []Client   `json:"clients,omitempty"`
	Problem     *opt.Input `json:"problem,omitempty"`
	TimeLimitMs int        `json:"timeLimitMs,omitempty"`
	Workers     int        `json:"workers,omitempty"`
	Seed        int64      `json:"seed,omitempty"`
	MaxRounds   int        `json:"maxRounds,omitempty"`
	MaxWait     float64    `json:"maxWaitMinutes,omitempty"`
}

// Plan statuses.
const (
	PlanRunning = "running"
	PlanDone    = "done"
	PlanFailed  = "failed"
)

type Plan struct {
	ID              string        `json:"id"`
	Rep             string        `json:"rep,omitempty"`
	PlanDate        string        `json:"planDate,omitempty"`
	Status          string        `json:"status"`
	Failure         string        `json:"failure,omitempty"`
	Error           string        `json:"error,omitempty"`
	Solution        *opt.Solution `json:"solution,omitempty"`
	Schedule        []ScheduleRow `json:"schedule,omitempty"`
	TotalDistanceKm float64       `json:"totalDistanceKm,omitempty"`
	TotalMinutes    float64       `json:"totalMinutes,omitempty"`
	MatrixSource    string        `json:"matrixSource,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// ScheduleRow is one line of a rep's daily timeline.
type ScheduleRow struct {
	Sequence        int     `json:"sequence"`
	Location        string  `json:"location"`
	ClientID        string  `json:"clientId"`
	Address         string  `json:"address"`
	Arrival         string  `json:"arrival"`
	ServiceStart    string  `json:"serviceStart"`
	ServiceDuration float64 `json:"serviceDuration"`
	ServiceEnd      string  `json:"serviceEnd"`
	Activity        string  `json:"activity"`
	WaitMinutes     float64 `json:"waitMinutes"`
	CumulativeKm    float64 `json:"cumulativeKm"`
	LegKm           float64 `json:"legKm"`
	LegMinutes      float64 `json:"legMinutes"`
}
