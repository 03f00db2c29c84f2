package models

import "time"

// StepName is the kind of work a pipeline step measurement covers.
type StepName string

const (
	StepIntegration StepName = "integration"
	StepDeployment  StepName = "deployment"
	StepOther       StepName = "other"
)

// Integration sub-steps, required when StepName is integration.
const (
	SubStepBuild           = "build"
	SubStepUnitTest        = "unit_test"
	SubStepStaticAnalysis  = "static_analysis"
	SubStepIntegrationTest = "integration_test"
	SubStepPackaging       = "packaging"
)

// Deployment stages, required when StepName is deployment.
const (
	StageDevelopment = "development"
	StageStaging     = "staging"
	StageProduction  = "production"
)

// IsValid reports whether n is a known step name.
func (n StepName) IsValid() bool {
	switch n {
	case StepIntegration, StepDeployment, StepOther:
		return true
	}
	return false
}

// IsIntegrationSubStep reports whether s names an integration sub-step.
func IsIntegrationSubStep(s string) bool {
	switch s {
	case SubStepBuild, SubStepUnitTest, SubStepStaticAnalysis, SubStepIntegrationTest, SubStepPackaging:
		return true
	}
	return false
}

// IsDeploymentStage reports whether s names a deployment stage.
func IsDeploymentStage(s string) bool {
	switch s {
	case StageDevelopment, StageStaging, StageProduction:
		return true
	}
	return false
}

// CicdPipeline is a CI/CD pipeline of a repository branch.
type CicdPipeline struct {
	ID            int64             `json:"id"`
	RepoName      string            `json:"repoName"`
	Branch        string            `json:"branch"`
	CloudProvider string            `json:"cloudProvider"`
	PipelineName  string            `json:"pipelineName"`
	Tags          []Tag             `json:"tags"`
	Runs          []CicdPipelineRun `json:"runs,omitempty"`
}

// CicdPipelineRun is one execution of a pipeline.
// A run is attributed to the calendar day of its StartTime.
type CicdPipelineRun struct {
	ID             int64                 `json:"id"`
	CicdPipelineID int64                 `json:"cicdPipelineId"`
	RunNumber      int                   `json:"runNumber"`
	StartTime      time.Time             `json:"startTime"`
	EndTime        time.Time             `json:"endTime"`
	Measurements   []CicdStepMeasurement `json:"measurements"`
}

// CicdStepMeasurement records the duration (seconds) and CO2 of one step of a run.
type CicdStepMeasurement struct {
	ID                     int64    `json:"id"`
	CicdPipelineRunID      int64    `json:"cicdPipelineRunId"`
	StepName               StepName `json:"stepName"`
	IntegrationSubStepName *string  `json:"integrationSubStepName,omitempty"`
	DeploymentStage        *string  `json:"deploymentStage,omitempty"`
	Duration               int      `json:"duration"`
	CO2Consumption         float64  `json:"co2Consumption"`
}
