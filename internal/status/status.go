package status

// Value is a Statuspage component status label. Probes may emit any string;
// the constants below are the labels the vendor documents.
type Value string

const (
	Operational         Value = "operational"
	DegradedPerformance Value = "degraded_performance"
	PartialOutage       Value = "partial_outage"
	MajorOutage         Value = "major_outage"
	UnderMaintenance    Value = "under_maintenance"
)

var known = map[Value]struct{}{
	Operational:         {},
	DegradedPerformance: {},
	PartialOutage:       {},
	MajorOutage:         {},
	UnderMaintenance:    {},
}

// Known reports whether v is one of the documented Statuspage labels.
func Known(v Value) bool {
	_, ok := known[v]
	return ok
}

// Label returns v for display, substituting "none" for the empty value.
func Label(v Value) string {
	if v == "" {
		return "none"
	}
	return string(v)
}
