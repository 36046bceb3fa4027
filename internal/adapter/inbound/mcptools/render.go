package mcptools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solarhook/opendtu-mcp/internal/domain"
	"github.com/solarhook/opendtu-mcp/internal/usecase"
)

// Markdown rendering of tool results for the assistant. The structured
// values live in the result envelope; this is the human-readable view.

func renderLiveData(data domain.LiveData) string {
	if len(data.Inverters) == 0 {
		return "No inverters configured in OpenDTU."
	}

	var b strings.Builder
	b.WriteString("## Inverter overview\n\n")
	fmt.Fprintf(&b, "**Total power:** %.1f W | **Yield today:** %.0f Wh | **Total yield:** %.3f kWh\n\n",
		data.TotalPowerW, data.YieldDayWh, data.YieldTotalKWh)
	b.WriteString("| Serial | Name | Reachable | Producing | Power (W) | Limit (%) | Limit (W) |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")

	for _, inv := range data.Inverters {
		limitAbs := "-"
		if inv.LimitAbsolute >= 0 {
			limitAbs = fmt.Sprintf("%.0f", inv.LimitAbsolute)
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %.1f | %g | %s |\n",
			inv.Serial, inv.Name, yesNo(inv.Reachable), yesNo(inv.Producing),
			inv.PowerW, inv.LimitRelative, limitAbs)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderLimitStatus(serial string, statuses map[string]domain.LimitStatus) string {
	if len(statuses) == 0 {
		if serial != "" {
			return fmt.Sprintf("No limit data for serial `%s`. "+
				"Check the serial with opendtu_get_inverters.", serial)
		}
		return "No inverters found."
	}

	serials := make([]string, 0, len(statuses))
	for s := range statuses {
		serials = append(serials, s)
	}
	sort.Strings(serials)

	var b strings.Builder
	b.WriteString("## Limit status\n\n")
	b.WriteString("| Serial | Limit (%) | Max power (W) | Current limit (W) | Status |\n")
	b.WriteString("|---|---|---|---|---|\n")

	for _, s := range serials {
		st := statuses[s]
		current := "-"
		if w := st.CurrentLimitW(); w >= 0 {
			current = fmt.Sprintf("%.1f", w)
		}
		fmt.Fprintf(&b, "| `%s` | %g | %g | %s | %s |\n",
			s, st.LimitRelative, st.MaxPowerW, current, st.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSetLimit(data usecase.SetLimitData) string {
	t := domain.LimitType(data.Type)

	var b strings.Builder
	b.WriteString("Limit set successfully.\n\n")
	fmt.Fprintf(&b, "- **Inverter:** `%s`\n", data.Serial)
	fmt.Fprintf(&b, "- **New limit:** %g %s\n", data.Applied, t.Unit())
	fmt.Fprintf(&b, "- **Type:** %s\n\n", t.Label())
	b.WriteString("The limit is being forwarded to the inverter. Right after setting, " +
		"the status is Pending; after a few seconds it becomes Ok. " +
		"Verify with opendtu_get_limit_status.")

	if data.Message != "" {
		fmt.Fprintf(&b, "\n\nAppliance response: %s", data.Message)
	}
	if data.Warning != "" {
		fmt.Fprintf(&b, "\n\n**Warning:** %s", data.Warning)
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
