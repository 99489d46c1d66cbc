package roster

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const clientsCSV = `client_id,client_name,latitude,longitude,time_window_start,time_window_end,service_duration,priority
C001,Acme Corp,40.7580,-73.9855,09:00,11:00,45,High
C002, Globex ,40.7061,-74.0087,13:30,17:00,30,Low
`

func TestReadClients(t *testing.T) {
	cs, err := ReadClients(strings.NewReader(clientsCSV))
	require.NoError(t, err)
	require.Len(t, cs, 2)
	require.Equal(t, "C001", cs[0].ID)
	require.Equal(t, 40.758, cs[0].Lat)
	require.Equal(t, 45.0, cs[0].ServiceMinutes)
	require.Equal(t, "High", cs[0].Priority)
	require.Equal(t, "Globex", cs[1].Name)
	require.Equal(t, "13:30", cs[1].WindowStart)
}

func TestReadClientsColumnOrderAndOptionalPriority(t *testing.T) {
	body := "latitude,longitude,client_id,client_name,service_duration,time_window_end,time_window_start\n" +
		"1.5,2.5,X,Shop,10,12:00,10:00\n"
	cs, err := ReadClients(strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, "X", cs[0].ID)
	require.Equal(t, 2.5, cs[0].Lng)
	require.Empty(t, cs[0].Priority)
}

func TestReadClientsErrors(t *testing.T) {
	_, err := ReadClients(strings.NewReader(""))
	require.Error(t, err)

	_, err = ReadClients(strings.NewReader("client_id,client_name\nA,B\n"))
	require.ErrorContains(t, err, "missing column")

	bad := strings.Replace(clientsCSV, "40.7580", "north", 1)
	_, err = ReadClients(strings.NewReader(bad))
	require.ErrorContains(t, err, "line 2: latitude")

	bad = strings.Replace(clientsCSV, "13:30", "1:30pm", 1)
	_, err = ReadClients(strings.NewReader(bad))
	require.ErrorContains(t, err, "line 3: time_window_start")
}

func TestLoadClients(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.csv")
	require.NoError(t, os.WriteFile(path, []byte(clientsCSV), 0o644))
	cs, err := LoadClients(path)
	require.NoError(t, err)
	require.Len(t, cs, 2)

	_, err = LoadClients(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestMinutesAndFormat(t *testing.T) {
	m, err := Minutes("09:00", "10:30")
	require.NoError(t, err)
	require.Equal(t, 90.0, m)

	m, err = Minutes("09:00", "08:00")
	require.NoError(t, err)
	require.Equal(t, -60.0, m)

	_, err = Minutes("9am", "10:00")
	require.Error(t, err)

	require.Equal(t, "10:30", Format("09:00", 90.9))
	require.Equal(t, "-", Format("bad", 5))
}
