package repetier

import (
	"encoding/json"
	"fmt"
)

// JobState describes what the printer is currently doing, derived from the
// most recent successful job-list poll.
type JobState string

const (
	JobReady    JobState = "ready"
	JobPrinting JobState = "printing"
	JobPaused   JobState = "paused"
	JobOffline  JobState = "offline"
)

// JobStatus is the published view of the printer's active job. Progress is
// only meaningful while State is JobPrinting.
type JobStatus struct {
	Name     string
	State    JobState
	Progress float64 // percent, 0-100
}

// Temperatures holds the latest hotend and heated-bed readings in °C.
type Temperatures struct {
	Hotend float64
	Bed    float64
}

// heaterState mirrors one heater entry in the stateList response.
type heaterState struct {
	TempRead float64 `json:"tempRead"`
	TempSet  float64 `json:"tempSet"`
}

// printerState mirrors the per-slug object in the stateList response.
type printerState struct {
	Extruders []heaterState `json:"extruder"`
	HeatedBed heaterState   `json:"heatedBed"`
}

// ParseStateList extracts hotend and bed temperatures for the given slug from
// a `?a=stateList` response body. Only the first extruder is reported; the
// server returns one entry per hotend but multi-extruder support is out of
// scope.
func ParseStateList(body []byte, slug string) (Temperatures, error) {
	var payload map[string]printerState
	if err := json.Unmarshal(body, &payload); err != nil {
		return Temperatures{}, fmt.Errorf("parse stateList: %w", err)
	}
	st, ok := payload[slug]
	if !ok {
		return Temperatures{}, fmt.Errorf("parse stateList: no state for slug %q", slug)
	}
	if len(st.Extruders) == 0 {
		return Temperatures{}, fmt.Errorf("parse stateList: no extruder data for slug %q", slug)
	}
	return Temperatures{
		Hotend: st.Extruders[0].TempRead,
		Bed:    st.HeatedBed.TempRead,
	}, nil
}

// printerJob mirrors one entry of the `?a=listPrinter` response. The server
// encodes the pause flag as the strings "true"/"false".
type printerJob struct {
	Slug   string  `json:"slug"`
	Job    string  `json:"job"`
	Paused string  `json:"paused"`
	Done   float64 `json:"done"`
}

// noJobName is the sentinel the server reports when nothing is printing.
const noJobName = "none"

// ParseJobList derives a JobStatus for the given slug from a `?a=listPrinter`
// response body. A missing record for the slug means the printer is offline.
func ParseJobList(body []byte, slug string) (JobStatus, error) {
	var printers []printerJob
	if err := json.Unmarshal(body, &printers); err != nil {
		return JobStatus{}, fmt.Errorf("parse listPrinter: %w", err)
	}
	for _, p := range printers {
		if p.Slug != slug {
			continue
		}
		status := JobStatus{Name: p.Job, State: JobOffline}
		switch {
		case p.Paused == "true":
			status.State = JobPaused
		case p.Job != noJobName:
			status.State = JobPrinting
			status.Progress = p.Done
		default:
			status.State = JobReady
		}
		return status, nil
	}
	return JobStatus{State: JobOffline}, nil
}

// modelEntry mirrors one entry of the model list an upload POST returns.
type modelEntry struct {
	ID int64 `json:"id"`
}

// ParseModelList returns the id of the last model in an upload response body
// (`{"data":[{"id":...}, ...]}`). The freshly stored model is always the
// final entry.
func ParseModelList(body []byte) (int64, error) {
	var payload struct {
		Data []modelEntry `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("parse model list: %w", err)
	}
	if len(payload.Data) == 0 {
		return 0, fmt.Errorf("parse model list: empty data array")
	}
	return payload.Data[len(payload.Data)-1].ID, nil
}
