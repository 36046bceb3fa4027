package opendtu

import "github.com/solarhook/opendtu-mcp/internal/domain"

// Wire types for the OpenDTU REST API. The firmware wraps most telemetry
// values in {"v": <value>, "u": <unit>, "d": <decimals>} objects.

type measurement struct {
	Value float64 `json:"v"`
}

type liveDataResponse struct {
	Inverters []liveInverter `json:"inverters"`
	Total     liveTotals     `json:"total"`
}

type liveTotals struct {
	Power      measurement `json:"Power"`
	YieldDay   measurement `json:"YieldDay"`
	YieldTotal measurement `json:"YieldTotal"`
}

type liveInverter struct {
	Serial        string               `json:"serial"`
	Name          string               `json:"name"`
	Reachable     bool                 `json:"reachable"`
	Producing     bool                 `json:"producing"`
	LimitRelative *float64             `json:"limit_relative"`
	LimitAbsolute *float64             `json:"limit_absolute"`
	AC            map[string]acChannel `json:"AC"`
}

type acChannel struct {
	Power *measurement `json:"Power"`
}

// acPower returns the inverter's AC power reading, or nil when the
// telemetry is missing from the payload.
func (i liveInverter) acPower() *float64 {
	ch, ok := i.AC["0"]
	if !ok || ch.Power == nil {
		return nil
	}
	return &ch.Power.Value
}

func (r liveDataResponse) toDomain() domain.LiveData {
	out := domain.LiveData{
		Inverters:     make([]domain.InverterSnapshot, 0, len(r.Inverters)),
		TotalPowerW:   r.Total.Power.Value,
		YieldDayWh:    r.Total.YieldDay.Value,
		YieldTotalKWh: r.Total.YieldTotal.Value,
	}
	for _, inv := range r.Inverters {
		snap := domain.InverterSnapshot{
			Serial:        inv.Serial,
			Name:          inv.Name,
			Reachable:     inv.Reachable,
			Producing:     inv.Producing,
			LimitAbsolute: -1,
		}
		if inv.LimitRelative != nil {
			snap.LimitRelative = *inv.LimitRelative
		}
		if inv.LimitAbsolute != nil {
			snap.LimitAbsolute = *inv.LimitAbsolute
		}
		// An inverter without power telemetry counts as unreachable
		// rather than failing the whole snapshot.
		if p := inv.acPower(); p != nil {
			snap.PowerW = *p
		} else {
			snap.PowerW = 0
			snap.Reachable = false
		}
		out.Inverters = append(out.Inverters, snap)
	}
	return out
}

type limitStatusEntry struct {
	LimitRelative float64 `json:"limit_relative"`
	MaxPower      float64 `json:"max_power"`
	SetStatus     string  `json:"limit_set_status"`
	Timestamp     int64   `json:"ts"`
}

func (e limitStatusEntry) toDomain(serial string) domain.LimitStatus {
	return domain.LimitStatus{
		Serial:        serial,
		LimitRelative: e.LimitRelative,
		MaxPowerW:     e.MaxPower,
		Status:        e.SetStatus,
		UpdatedAt:     e.Timestamp,
	}
}

// limitConfigRequest is the JSON payload POSTed (form-encoded under the
// "data" key) to /api/limit/config.
type limitConfigRequest struct {
	Serial     string  `json:"serial"`
	LimitType  int     `json:"limit_type"`
	LimitValue float64 `json:"limit_value"`
}

type limitConfigResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
