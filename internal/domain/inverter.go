package domain

// InverterSnapshot is one inverter's live state as reported by the
// appliance. Snapshots are sourced fresh on every query; nothing is
// cached locally.
type InverterSnapshot struct {
	Serial    string  `json:"serial"`
	Name      string  `json:"name"`
	PowerW    float64 `json:"power_w"`
	Reachable bool    `json:"reachable"`
	Producing bool    `json:"producing"`

	// Current limit as configured on the inverter. LimitAbsolute is -1
	// when the appliance does not know the absolute value yet.
	LimitRelative float64 `json:"limit_relative"`
	LimitAbsolute float64 `json:"limit_absolute"`
}

// LiveData is the full livedata snapshot: per-inverter state plus the
// appliance-wide totals.
type LiveData struct {
	Inverters     []InverterSnapshot `json:"inverters"`
	TotalPowerW   float64            `json:"total_power_w"`
	YieldDayWh    float64            `json:"yield_day_wh"`
	YieldTotalKWh float64            `json:"yield_total_kwh"`
}

// Limit set statuses reported by the appliance.
const (
	LimitSetOk      = "Ok"
	LimitSetPending = "Pending"
	LimitSetFailure = "Failure"
)

// LimitStatus is one inverter's current limit configuration as reported
// by GET /api/limit/status.
type LimitStatus struct {
	Serial        string  `json:"serial"`
	LimitRelative float64 `json:"limit_relative"`
	MaxPowerW     float64 `json:"max_power_w"`
	Status        string  `json:"status"`
	// UpdatedAt is the appliance's timestamp of the last limit change,
	// in epoch seconds. Zero when the firmware does not report one.
	UpdatedAt int64 `json:"updated_at,omitempty"`
}

// CurrentLimitW derives the effective limit in watts from the relative
// limit and the rated power. Returns -1 when the rated power is unknown.
func (s LimitStatus) CurrentLimitW() float64 {
	if s.MaxPowerW <= 0 {
		return -1
	}
	return s.LimitRelative / 100 * s.MaxPowerW
}

// SetLimitOutcome is the appliance's answer to a limit write.
type SetLimitOutcome struct {
	Serial  string    `json:"serial"`
	Applied float64   `json:"applied"`
	Type    LimitType `json:"type"`
	// Message is the appliance's own response text, verbatim.
	Message string `json:"message,omitempty"`
}

// Credentials holds the appliance address and the account attached to
// every outgoing request. Read-only after construction, never logged.
type Credentials struct {
	Host     string
	Username string
	Password string
}

// String redacts the password so Credentials can never leak through
// formatting or logging.
func (c Credentials) String() string {
	return c.Host + " (user " + c.Username + ")"
}
