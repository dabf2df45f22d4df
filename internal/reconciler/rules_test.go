package reconciler_test

import (
	"testing"

	"github.com/UnknownOlympus/compass/internal/reconciler"
	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	rules := reconciler.DefaultRules()

	tests := []struct {
		name    string
		status  string
		request string
		want    string
	}{
		{name: "rma marker forces rma status", status: "En cours", request: "Demande de RMA pour la carte mère", want: "RMA"},
		{name: "marker match is case insensitive", status: "En cours", request: "DEMANDE DE RMA", want: "RMA"},
		{name: "rma status is kept", status: "RMA", request: "demande de rma", want: "RMA"},
		{name: "marker wins over blank status", status: "", request: "demande de rma urgente", want: "RMA"},
		{name: "blank status becomes new", status: "", request: "Écran cassé", want: "Nouveau"},
		{name: "whitespace status becomes new", status: "   ", request: "", want: "Nouveau"},
		{name: "closed ticket is unchanged", status: "Terminée", request: "Remplacement effectué", want: "Terminée"},
		{name: "closed ticket with marker moves to rma", status: "Terminée", request: "suite à demande de rma", want: "RMA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconciler.Derive(rules, tt.status, tt.request))
		})
	}
}

func TestDerive_CustomRules(t *testing.T) {
	rules := reconciler.Rules{RMAMarker: "return", RMAStatus: "Returned", NewStatus: "Open"}

	assert.Equal(t, "Returned", reconciler.Derive(rules, "Closed", "Customer asked for a RETURN"))
	assert.Equal(t, "Open", reconciler.Derive(rules, "", "broken screen"))
	assert.Equal(t, "Closed", reconciler.Derive(rules, "Closed", "demande de rma"))
}

func TestDerive_EmptyMarkerNeverMatches(t *testing.T) {
	rules := reconciler.Rules{RMAStatus: "RMA", NewStatus: "Nouveau"}

	assert.Equal(t, "En cours", reconciler.Derive(rules, "En cours", "anything"))
}

func TestDerive_Idempotent(t *testing.T) {
	rules := reconciler.DefaultRules()
	statuses := []string{"", " ", "RMA", "Nouveau", "En cours", "Terminée", "rma"}
	requests := []string{"", "demande de rma", "Demande De RMA", "écran cassé", "rma"}

	for _, status := range statuses {
		for _, request := range requests {
			once := reconciler.Derive(rules, status, request)
			assert.Equal(t, once, reconciler.Derive(rules, once, request), "status=%q request=%q", status, request)
		}
	}
}
