package models

import "time"

// DataType is the type of value a metric records.
type DataType string

const (
	DataTypeInteger DataType = "integer"
	DataTypeDecimal DataType = "decimal"
	DataTypeString  DataType = "string"
)

// IsValid reports whether t is a known data type.
func (t DataType) IsValid() bool {
	return t == DataTypeInteger || t == DataTypeDecimal || t == DataTypeString
}

// MaxKeyMetricsPerService caps how many key metrics may apply to one infrastructure service.
const MaxKeyMetricsPerService = 3

// MetricDefinition declares a metric that elements of its applicable services may record.
type MetricDefinition struct {
	ID                   int64    `json:"id"`
	MetricName           string   `json:"metricName"`
	DataType             DataType `json:"dataType"`
	IsKeyMetric          bool     `json:"isKeyMetric"`
	ApplicableServiceIDs []int64  `json:"applicableServiceIds,omitempty"`
}

// MetricValue is one observation of a metric on an element.
// Exactly one of ValueInt, ValueDecimal and ValueString is set, chosen by DataType.
// MetricName, DataType and IsKeyMetric are denormalized from the definition.
type MetricValue struct {
	ID                      int64     `json:"id"`
	InfrastructureElementID int64     `json:"infrastructureElementId"`
	MetricDefinitionID      int64     `json:"metricDefinitionId"`
	MetricName              string    `json:"metricName"`
	DataType                DataType  `json:"dataType"`
	IsKeyMetric             bool      `json:"isKeyMetric"`
	ValueInt                *int64    `json:"-"`
	ValueDecimal            *float64  `json:"-"`
	ValueString             *string   `json:"-"`
	Timestamp               time.Time `json:"timestamp"`
}

// Value returns whichever typed value is set, or nil.
func (v MetricValue) Value() any {
	switch {
	case v.ValueInt != nil:
		return *v.ValueInt
	case v.ValueDecimal != nil:
		return *v.ValueDecimal
	case v.ValueString != nil:
		return *v.ValueString
	}
	return nil
}

// AllowedMetric is a metric definition that elements of a service may record.
type AllowedMetric struct {
	MetricDefinitionID int64           `json:"metricDefinitionId"`
	ServiceType        string          `json:"serviceType"`
	ServiceCategory    ServiceCategory `json:"serviceCategory"`
	MetricName         string          `json:"metricName"`
	DataType           DataType        `json:"dataType"`
	IsKeyMetric        bool            `json:"isKeyMetric"`
}
