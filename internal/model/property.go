// internal/model/property.go
package model

type PropertyStatus string

const (
	PropertyVacant   PropertyStatus = "vacant"
	PropertyOccupied PropertyStatus = "occupied"
)

type Property struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Address string         `json:"address,omitempty"`
	Type    string         `json:"type,omitempty"`
	Rent    float64        `json:"rent"`
	Charges float64        `json:"charges"`
	Status  PropertyStatus `json:"status"`
	OwnerID string         `json:"ownerId"`
}

func (p *Property) Normalize(defaultOwner string) {
	if p.Status == "" {
		p.Status = PropertyVacant
	}
	if p.OwnerID == "" {
		p.OwnerID = defaultOwner
	}
	if p.Rent < 0 {
		p.Rent = 0
	}
	if p.Charges < 0 {
		p.Charges = 0
	}
}
