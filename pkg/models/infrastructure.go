package models

import (
	"encoding/json"
	"time"
)

// CloudProvider is a hosting vendor (AWS, Azure, ...).
type CloudProvider struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ServiceCategory groups infrastructure services.
type ServiceCategory string

const (
	CategoryCompute    ServiceCategory = "Compute"
	CategoryStorage    ServiceCategory = "Storage"
	CategoryDatabases  ServiceCategory = "Databases"
	CategoryNetworking ServiceCategory = "Networking"
)

func (c ServiceCategory) IsValid() bool {
	switch c {
	case CategoryCompute, CategoryStorage, CategoryDatabases, CategoryNetworking:
		return true
	}
	return false
}

// InfrastructureService is a kind of managed resource offered by a cloud provider (e.g. "EC2").
type InfrastructureService struct {
	ID              int64           `json:"id"`
	Type            string          `json:"type"`
	Category        ServiceCategory `json:"category"`
	CloudProviderID int64           `json:"cloudProviderId"`
	CloudProvider   string          `json:"cloudProvider"`
}

// InfrastructureElement is one deployed resource of a service.
// MetricValues and Consumptions are loaded eagerly by the repository when requested.
type InfrastructureElement struct {
	ID                      int64                  `json:"id"`
	Name                    string                 `json:"name"`
	InfrastructureServiceID int64                  `json:"infrastructureServiceId"`
	Service                 *InfrastructureService `json:"infrastructureService,omitempty"`
	Tags                    []Tag                  `json:"tags"`
	MetricValues            []MetricValue          `json:"-"`
	Consumptions            []ElementConsumption   `json:"-"`
}

// ElementConsumption is the CO2 an element consumed on one calendar day.
// Date carries no time of day and is always UTC midnight.
type ElementConsumption struct {
	ID                      int64     `json:"id"`
	InfrastructureElementID int64     `json:"infrastructureElementId"`
	Date                    time.Time `json:"date"`
	CO2Consumption          float64   `json:"co2Consumption"`
}

// MarshalJSON renders Date as YYYY-MM-DD.
func (c ElementConsumption) MarshalJSON() ([]byte, error) {
	type alias ElementConsumption
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{
		alias: alias(c),
		Date:  c.Date.UTC().Format(time.DateOnly),
	})
}
