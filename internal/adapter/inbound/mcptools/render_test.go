package mcptools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solarhook/opendtu-mcp/internal/domain"
	"github.com/solarhook/opendtu-mcp/internal/usecase"
)

func TestRenderLiveData(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		out := renderLiveData(domain.LiveData{})
		assert.Equal(t, "No inverters configured in OpenDTU.", out)
	})

	t.Run("table with totals", func(t *testing.T) {
		out := renderLiveData(domain.LiveData{
			Inverters: []domain.InverterSnapshot{
				{
					Serial: "114181800001", Name: "Balcony East",
					PowerW: 123.4, Reachable: true, Producing: true,
					LimitRelative: 70, LimitAbsolute: 1050,
				},
				{
					Serial: "114181800002", Name: "Balcony West",
					LimitRelative: 100, LimitAbsolute: -1,
				},
			},
			TotalPowerW:   123.4,
			YieldDayWh:    1560,
			YieldTotalKWh: 142.857,
		})

		assert.Contains(t, out, "## Inverter overview")
		assert.Contains(t, out, "**Total power:** 123.4 W")
		assert.Contains(t, out, "**Yield today:** 1560 Wh")
		assert.Contains(t, out, "**Total yield:** 142.857 kWh")
		assert.Contains(t, out, "| `114181800001` | Balcony East | yes | yes | 123.4 | 70 | 1050 |")
		assert.Contains(t, out, "| `114181800002` | Balcony West | no | no | 0.0 | 100 | - |")
	})
}

func TestRenderLimitStatus(t *testing.T) {
	t.Run("unknown serial", func(t *testing.T) {
		out := renderLimitStatus("999999999999", map[string]domain.LimitStatus{})
		assert.Contains(t, out, "No limit data for serial `999999999999`")
	})

	t.Run("no inverters at all", func(t *testing.T) {
		out := renderLimitStatus("", map[string]domain.LimitStatus{})
		assert.Equal(t, "No inverters found.", out)
	})

	t.Run("table sorted by serial", func(t *testing.T) {
		out := renderLimitStatus("", map[string]domain.LimitStatus{
			"114181800002": {Serial: "114181800002", LimitRelative: 100, MaxPowerW: 800, Status: domain.LimitSetPending},
			"114181800001": {Serial: "114181800001", LimitRelative: 70, MaxPowerW: 1500, Status: domain.LimitSetOk},
		})

		assert.Contains(t, out, "## Limit status")
		assert.Contains(t, out, "| `114181800001` | 70 | 1500 | 1050.0 | Ok |")
		assert.Contains(t, out, "| `114181800002` | 100 | 800 | 800.0 | Pending |")
		assert.Less(t, strings.Index(out, "`114181800001`"), strings.Index(out, "`114181800002`"))
	})

	t.Run("unknown rated power renders dash", func(t *testing.T) {
		out := renderLimitStatus("", map[string]domain.LimitStatus{
			"114181800001": {Serial: "114181800001", LimitRelative: 70, Status: domain.LimitSetOk},
		})
		assert.Contains(t, out, "| `114181800001` | 70 | 0 | - | Ok |")
	})
}

func TestRenderSetLimit(t *testing.T) {
	t.Run("temporary relative", func(t *testing.T) {
		out := renderSetLimit(usecase.SetLimitData{
			Serial: "114181800001", Applied: 70, Type: 1, Message: "Settings saved!",
		})
		assert.Contains(t, out, "Limit set successfully.")
		assert.Contains(t, out, "`114181800001`")
		assert.Contains(t, out, "**New limit:** 70 %")
		assert.Contains(t, out, "relative, temporary (%)")
		assert.Contains(t, out, "opendtu_get_limit_status")
		assert.Contains(t, out, "Settings saved!")
		assert.NotContains(t, out, "Warning")
	})

	t.Run("persistent absolute carries warning", func(t *testing.T) {
		out := renderSetLimit(usecase.SetLimitData{
			Serial: "114181800001", Applied: 300, Type: 256, Warning: domain.EEPROMWarning,
		})
		assert.Contains(t, out, "**New limit:** 300 W")
		assert.Contains(t, out, "absolute, persistent (W)")
		assert.Contains(t, out, "**Warning:** "+domain.EEPROMWarning)
	})
}
