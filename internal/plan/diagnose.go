package plan

import (
	"fmt"
	"io"

	"salesroute/internal/model"
	"salesroute/internal/roster"
)

// Diagnosis is a quick constraint check of a rep's day that needs no matrix.
type Diagnosis struct {
	WorkingMinutes float64  `json:"workingMinutes"`
	ServiceMinutes float64  `json:"serviceMinutes"`
	TravelCap      float64  `json:"travelCapMinutes"`
	NeededMinutes  float64  `json:"neededMinutes"`
	Feasible       bool     `json:"feasible"`
	Issues         []string `json:"issues,omitempty"`
}

// Diagnose flags days that cannot fit: total service plus the travel cap
// longer than the working day, windows outside working hours, and windows
// shorter than their service.
func Diagnose(rep model.Rep, clients []model.Client) (Diagnosis, error) {
	var d Diagnosis
	work, err := roster.Minutes(rep.WorkingHours.Start, rep.WorkingHours.End)
	if err != nil {
		return d, err
	}
	d.WorkingMinutes = work
	d.TravelCap = rep.MaxTravelHours * 60
	for _, c := range clients {
		d.ServiceMinutes += c.ServiceMinutes
	}
	d.NeededMinutes = d.ServiceMinutes + d.TravelCap
	d.Feasible = d.NeededMinutes <= work
	if !d.Feasible {
		d.Issues = append(d.Issues, fmt.Sprintf("need %.0f min (service %.0f + travel %.0f) but the working day has %.0f min",
			d.NeededMinutes, d.ServiceMinutes, d.TravelCap, work))
	}
	if d.ServiceMinutes > work {
		d.Issues = append(d.Issues, fmt.Sprintf("service alone takes %.0f min, longer than the working day", d.ServiceMinutes))
	}

	for _, c := range clients {
		lo, err := roster.Minutes(rep.WorkingHours.Start, c.WindowStart)
		if err != nil {
			return d, fmt.Errorf("client %s: %w", c.ID, err)
		}
		hi, err := roster.Minutes(rep.WorkingHours.Start, c.WindowEnd)
		if err != nil {
			return d, fmt.Errorf("client %s: %w", c.ID, err)
		}
		switch {
		case lo < 0 || hi > work:
			d.Issues = append(d.Issues, fmt.Sprintf("%s: window %s-%s outside working hours", c.ID, c.WindowStart, c.WindowEnd))
		case hi-lo < c.ServiceMinutes:
			d.Issues = append(d.Issues, fmt.Sprintf("%s: window is %.0f min but service needs %.0f min", c.ID, hi-lo, c.ServiceMinutes))
		}
	}
	return d, nil
}

func (d Diagnosis) Print(w io.Writer) {
	fmt.Fprintf(w, "Working day: %.0f min (%.1f h)\n", d.WorkingMinutes, d.WorkingMinutes/60)
	fmt.Fprintf(w, "Total service: %.0f min\n", d.ServiceMinutes)
	fmt.Fprintf(w, "Max travel: %.0f min\n", d.TravelCap)
	fmt.Fprintf(w, "Minimum needed: %.0f min\n", d.NeededMinutes)
	if d.Feasible {
		fmt.Fprintln(w, "Capacity: OK")
	} else {
		fmt.Fprintln(w, "Capacity: INFEASIBLE")
	}
	for _, is := range d.Issues {
		fmt.Fprintf(w, "  - %s\n", is)
	}
}
