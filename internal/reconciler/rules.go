package reconciler

import "strings"

const (
	DefaultRMAMarker = "demande de rma"
	DefaultRMAStatus = "RMA"
	DefaultNewStatus = "Nouveau"
)

// Rules configures status derivation.
type Rules struct {
	RMAMarker string // case-insensitive substring of the request text
	RMAStatus string
	NewStatus string
}

// DefaultRules returns the rules used when nothing is configured.
func DefaultRules() Rules {
	return Rules{RMAMarker: DefaultRMAMarker, RMAStatus: DefaultRMAStatus, NewStatus: DefaultNewStatus}
}

// Derive returns the canonical status of a ticket. Rules apply in order:
// a request mentioning the RMA marker forces the RMA status, a blank status
// becomes the new status, anything else is kept. Derive is idempotent.
func Derive(rules Rules, status, request string) string {
	if rules.RMAMarker != "" && status != rules.RMAStatus &&
		strings.Contains(strings.ToLower(request), strings.ToLower(rules.RMAMarker)) {
		return rules.RMAStatus
	}

	if strings.TrimSpace(status) == "" {
		return rules.NewStatus
	}

	return status
}
