package models

// CodePlaceholder is replaced by the shipment code in a carrier URL template.
const CodePlaceholder = "$$CODE$$"

// Shipment statuses as stored in shipments.STATUS.
const (
	StatusNotDelivered = 0
	StatusDelivered    = 1
)

type Carrier struct {
	ID          int64
	Name        string
	URLTemplate string
}

type Shipment struct {
	ID        string
	Code      string
	CarrierID int64
	Delivered bool
}

// ShipmentView is a shipment joined with its carrier. TrackingURL is filled
// in by the shipment registry.
type ShipmentView struct {
	Shipment
	Carrier     Carrier
	TrackingURL string
}

func (s Shipment) StatusText() string {
	if s.Delivered {
		return "Delivered"
	}
	return "Not Delivered"
}
