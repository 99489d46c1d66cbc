// Package roster reads the client list a rep visits during the day.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"salesroute/internal/model"
)

var columns = []string{
	"client_id", "client_name", "latitude", "longitude",
	"time_window_start", "time_window_end", "service_duration", "priority",
}

// LoadClients reads a clients CSV file.
func LoadClients(path string) ([]model.Client, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open clients: %w", err)
	}
	defer f.Close()
	return ReadClients(f)
}

// ReadClients parses CSV with a header row. Columns are matched by name, so
// their order does not matter; priority is optional.
func ReadClients(r io.Reader) ([]model.Client, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("clients csv: empty file")
		}
		return nil, fmt.Errorf("clients csv header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range columns {
		if _, ok := idx[c]; !ok && c != "priority" {
			return nil, fmt.Errorf("clients csv: missing column %q", c)
		}
	}

	var out []model.Client
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("clients csv line %d: %w", line, err)
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		c := model.Client{
			ID:          get("client_id"),
			Name:        get("client_name"),
			WindowStart: get("time_window_start"),
			WindowEnd:   get("time_window_end"),
			Priority:    get("priority"),
		}
		if c.ID == "" {
			return nil, fmt.Errorf("clients csv line %d: empty client_id", line)
		}
		if c.Lat, err = strconv.ParseFloat(get("latitude"), 64); err != nil {
			return nil, fmt.Errorf("clients csv line %d: latitude: %w", line, err)
		}
		if c.Lng, err = strconv.ParseFloat(get("longitude"), 64); err != nil {
			return nil, fmt.Errorf("clients csv line %d: longitude: %w", line, err)
		}
		if c.ServiceMinutes, err = strconv.ParseFloat(get("service_duration"), 64); err != nil {
			return nil, fmt.Errorf("clients csv line %d: service_duration: %w", line, err)
		}
		if _, err := Clock(c.WindowStart); err != nil {
			return nil, fmt.Errorf("clients csv line %d: time_window_start: %w", line, err)
		}
		if _, err := Clock(c.WindowEnd); err != nil {
			return nil, fmt.Errorf("clients csv line %d: time_window_end: %w", line, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Clock parses an HH:MM time of day.
func Clock(hhmm string) (time.Time, error) {
	return time.Parse("15:04", strings.TrimSpace(hhmm))
}

// Minutes returns hhmm as minutes after base. Times before base are negative.
func Minutes(base, hhmm string) (float64, error) {
	b, err := Clock(base)
	if err != nil {
		return 0, fmt.Errorf("base time %q: %w", base, err)
	}
	t, err := Clock(hhmm)
	if err != nil {
		return 0, fmt.Errorf("time %q: %w", hhmm, err)
	}
	return t.Sub(b).Minutes(), nil
}

// Format renders minutes after base as HH:MM, truncating seconds.
func Format(base string, minutes float64) string {
	b, err := Clock(base)
	if err != nil {
		return "-"
	}
	return b.Add(time.Duration(int(minutes)) * time.Minute).Format("15:04")
}
