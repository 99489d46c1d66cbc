package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const clientsCSV = `client_id,client_name,latitude,longitude,time_window_start,time_window_end,service_duration,priority
C001,Acme Corp,40.7580,-73.9855,09:00,11:00,45,High
`

// withFlags points the command at a config with the given working day and
// restores the flags afterwards.
func withFlags(t *testing.T, end string) {
	t.Helper()
	dir := t.TempDir()
	cfg := `
sales_rep:
  name: Sam
  start_location: {name: HQ, latitude: 40.7128, longitude: -74.006}
  working_hours: {start: "09:00", end: "` + end + `"}
  max_distance_km: 80
  max_travel_hours: 1
`
	cfgPath := filepath.Join(dir, "config.yaml")
	csvPath := filepath.Join(dir, "clients.csv")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(csvPath, []byte(clientsCSV), 0o644))

	prevCfg, prevClients, prevCheck := *configF, *clientsF, *check
	t.Cleanup(func() { *configF, *clientsF, *check = prevCfg, prevClients, prevCheck })
	*configF, *clientsF, *check = cfgPath, csvPath, true
}

func TestRunCheckReportsInfeasibleDay(t *testing.T) {
	// 45 min of service and an hour of travel do not fit in one hour.
	withFlags(t, "10:00")
	require.ErrorIs(t, run(), errNoRoute)
}

func TestRunCheckFeasibleDay(t *testing.T) {
	withFlags(t, "18:00")
	require.NoError(t, run())
}
