package pricing

// familyRates holds per-hour list rates for one machine family, used when
// the billing catalog has no usable SKU for a component.
type familyRates struct {
	CPUPerHour    float64 // per vCPU
	MemoryPerHour float64 // per GB
}

// gcpFallbackRates approximates published on-demand rates per family.
// Substituted only for a component whose catalog rate came back as zero.
var gcpFallbackRates = map[string]familyRates{
	"n1": {CPUPerHour: 0.0475, MemoryPerHour: 0.0063},
	"n2": {CPUPerHour: 0.031, MemoryPerHour: 0.0041},
	"e2": {CPUPerHour: 0.022, MemoryPerHour: 0.003},
	"c2": {CPUPerHour: 0.0441, MemoryPerHour: 0.0059},
}

// gcpDefaultRates covers families absent from the table, including custom
// machine types.
var gcpDefaultRates = familyRates{CPUPerHour: 0.035, MemoryPerHour: 0.0047}

func fallbackRatesFor(family string) familyRates {
	if rates, ok := gcpFallbackRates[family]; ok {
		return rates
	}
	return gcpDefaultRates
}
