// Package schedule turns a solved route into a rep's daily timeline.
package schedule

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"salesroute/internal/model"
	"salesroute/internal/opt"
	"salesroute/internal/roster"
)

const depotID = "DEPOT"

// Build lays out sol against the working day of rep. clients[i] is location
// i+1 of the solved problem.
func Build(sol *opt.Solution, rep model.Rep, clients []model.Client) ([]model.ScheduleRow, error) {
	base := rep.WorkingHours.Start
	depotName := rep.StartLocation.Name
	if depotName == "" {
		depotName = "Office"
	}
	rows := make([]model.ScheduleRow, 0, len(sol.Stops))
	var prevDepart, prevDist float64
	for k, st := range sol.Stops {
		arrive := st.Arrival - st.Wait
		row := model.ScheduleRow{
			Sequence:     k + 1,
			Arrival:      roster.Format(base, arrive),
			WaitMinutes:  round1(st.Wait),
			CumulativeKm: round2(st.CumulativeDistance / 1000),
		}
		if k > 0 {
			row.LegKm = round2((st.CumulativeDistance - prevDist) / 1000)
			row.LegMinutes = math.Max(0, math.Round(arrive-prevDepart))
		}
		switch {
		case st.Location == 0 && k == 0:
			row.Location, row.ClientID, row.Address = depotName, depotID, "Office"
			row.ServiceStart, row.ServiceEnd = row.Arrival, row.Arrival
			row.Activity = "Depart Office"
			prevDepart = st.Arrival
		case st.Location == 0:
			row.Location, row.ClientID, row.Address = depotName, depotID, "Office"
			row.ServiceStart, row.ServiceEnd = "-", "-"
			row.Activity = "Return to Office"
		default:
			if st.Location-1 >= len(clients) {
				return nil, fmt.Errorf("schedule: route visits location %d but only %d clients given", st.Location, len(clients))
			}
			c := clients[st.Location-1]
			row.Location = c.Name
			row.ClientID = c.ID
			row.Address = fmt.Sprintf("(%.4f, %.4f)", c.Lat, c.Lng)
			row.ServiceStart = roster.Format(base, st.Arrival)
			row.ServiceDuration = c.ServiceMinutes
			row.ServiceEnd = roster.Format(base, st.Arrival+c.ServiceMinutes)
			row.Activity = "Meeting"
			if c.Priority != "" {
				row.Activity = fmt.Sprintf("Meeting (%s Priority)", c.Priority)
			}
			prevDepart = st.Arrival + c.ServiceMinutes
		}
		prevDist = st.CumulativeDistance
		rows = append(rows, row)
	}
	return rows, nil
}

// Summary aggregates a timeline.
type Summary struct {
	ClientsVisited int     `json:"clientsVisited"`
	TotalKm        float64 `json:"totalKm"`
	TravelMinutes  float64 `json:"travelMinutes"`
	ServiceMinutes float64 `json:"serviceMinutes"`
	WaitMinutes    float64 `json:"waitMinutes"`
	DayStart       string  `json:"dayStart"`
	DayEnd         string  `json:"dayEnd"`
}

func Summarize(rows []model.ScheduleRow) Summary {
	var s Summary
	for _, r := range rows {
		if r.ClientID != depotID {
			s.ClientsVisited++
		}
		s.TotalKm = math.Max(s.TotalKm, r.CumulativeKm)
		s.TravelMinutes += r.LegMinutes
		s.ServiceMinutes += r.ServiceDuration
		s.WaitMinutes += r.WaitMinutes
	}
	if len(rows) > 0 {
		s.DayStart = rows[0].Arrival
		s.DayEnd = rows[len(rows)-1].Arrival
	}
	return s
}

var header = []string{
	"sequence", "location", "client_id", "address", "arrival_time", "service_start",
	"service_duration", "service_end", "activity", "wait_minutes",
	"cumulative_distance_km", "distance_from_previous_km", "travel_time_from_previous_min",
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []model.ScheduleRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Sequence), r.Location, r.ClientID, r.Address, r.Arrival, r.ServiceStart,
			num(r.ServiceDuration), r.ServiceEnd, r.Activity, num(r.WaitMinutes),
			num(r.CumulativeKm), num(r.LegKm), num(r.LegMinutes),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Print renders the timeline and a summary for terminal output.
func Print(w io.Writer, repName string, rows []model.ScheduleRow) {
	rule := "================================================================================"
	fmt.Fprintf(w, "\n%s\nDAILY SCHEDULE - %s\n%s\n", rule, repName, rule)
	for i, r := range rows {
		switch {
		case r.ClientID == depotID && i == 0:
			fmt.Fprintf(w, "\n%s | %s\n", r.Arrival, r.Activity)
		case r.ClientID == depotID:
			fmt.Fprintf(w, "\n%s | %s\n", r.Arrival, r.Activity)
			fmt.Fprintf(w, "           Distance: %.1f km | Travel Time: %.0f min\n", r.LegKm, r.LegMinutes)
		default:
			fmt.Fprintf(w, "\n%s | Arrive at %s\n", r.Arrival, r.Location)
			fmt.Fprintf(w, "           Distance from previous: %.1f km | Travel: %.0f min\n", r.LegKm, r.LegMinutes)
			if r.WaitMinutes > 0 {
				fmt.Fprintf(w, "           Wait: %.0f min\n", r.WaitMinutes)
			}
			fmt.Fprintf(w, "%s | Meeting Start (%.0f min) - %s\n", r.ServiceStart, r.ServiceDuration, r.Activity)
			fmt.Fprintf(w, "%s | Meeting End, Depart\n", r.ServiceEnd)
		}
	}
	s := Summarize(rows)
	fmt.Fprintf(w, "\n%s\nSUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(w, "Total Clients Visited: %d\n", s.ClientsVisited)
	fmt.Fprintf(w, "Total Distance: %.2f km\n", s.TotalKm)
	fmt.Fprintf(w, "Total Travel Time: %.0f minutes\n", s.TravelMinutes)
	fmt.Fprintf(w, "Total Service Time: %.0f minutes\n", s.ServiceMinutes)
	fmt.Fprintf(w, "Total Waiting: %.0f minutes\n", s.WaitMinutes)
	fmt.Fprintf(w, "Day Duration: %s - %s\n%s\n", s.DayStart, s.DayEnd, rule)
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
