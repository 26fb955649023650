package planner

import (
	"fmt"
	"strconv"
)

// FormattedOption is the wire form of an Option.
type FormattedOption struct {
	TransportMode      string `json:"transport_mode"`
	EstimatedTime      string `json:"estimated_time"`
	EstimatedEmissions string `json:"estimated_emissions"`
	Notes              string `json:"notes"`
}

// FormatEmissions renders kilograms as "12.3 kg CO2".
func FormatEmissions(kg float64) string {
	return fmt.Sprintf("%.1f kg CO2", kg)
}

// OptionKey returns the response key for the i-th (zero-based) option.
func OptionKey(i int) string {
	return "option_" + strconv.Itoa(i+1)
}

// Format keys options as option_1..option_N in rank order.
func Format(options []Option) map[string]FormattedOption {
	out := make(map[string]FormattedOption, len(options))
	for i, o := range options {
		out[OptionKey(i)] = FormattedOption{
			TransportMode:      o.TransportMode,
			EstimatedTime:      o.EstimatedTime,
			EstimatedEmissions: FormatEmissions(o.EstimatedEmissionsKg),
			Notes:              o.Notes,
		}
	}
	return out
}
