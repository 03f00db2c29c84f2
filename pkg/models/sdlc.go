package models

// SdlcStep names a stage of the software development lifecycle.
type SdlcStep string

const (
	SdlcDesign                SdlcStep = "design"
	SdlcImplementation        SdlcStep = "implementation"
	SdlcTesting               SdlcStep = "testing"
	SdlcIntegrationDeployment SdlcStep = "integration_deployment"
	SdlcOperations            SdlcStep = "operations"
	SdlcPlanning              SdlcStep = "planning"
)

// AllSdlcSteps lists every step in enumeration order.
// Only integration_deployment and operations are backed by data today.
var AllSdlcSteps = []SdlcStep{
	SdlcDesign,
	SdlcImplementation,
	SdlcTesting,
	SdlcIntegrationDeployment,
	SdlcOperations,
	SdlcPlanning,
}

// IsValid reports whether s is one of AllSdlcSteps.
func (s SdlcStep) IsValid() bool {
	for _, step := range AllSdlcSteps {
		if s == step {
			return true
		}
	}
	return false
}
