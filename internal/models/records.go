package models

import "time"

// TicketRecord is a service ticket as stored in the document store.
type TicketRecord struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Request   string    `json:"request"` // free-text request written by the customer
	Address   string    `json:"address,omitempty"`
	Customer  string    `json:"customer,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShipmentRecord is a tracked shipment as stored in the document store.
type ShipmentRecord struct {
	ID             string    `json:"id"`
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier,omitempty"`
	Status         string    `json:"status"`
	Address        string    `json:"address,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LocationState tells presentation how a record was (or was not) placed on the map.
type LocationState string

const (
	LocationLocated    LocationState = "located"
	LocationNotLocated LocationState = "not-located"
	LocationNoAddress  LocationState = "no-address"
)

// Location is the geocoding and sector enrichment attached to a record.
type Location struct {
	Coordinates *Coordinates  `json:"coordinates,omitempty"`
	Zone        string        `json:"zone"`
	State       LocationState `json:"location_state"`
}

// ResolvedTicket is a ticket enriched for presentation. It is rebuilt on every snapshot.
type ResolvedTicket struct {
	TicketRecord
	Location
}

// ResolvedShipment is a shipment enriched for presentation.
type ResolvedShipment struct {
	ShipmentRecord
	Location
}
