package rollup

import "github.com/greensdlc/sustainability-dashboard/pkg/models"

// ProjectInputs pairs a project with the entities its tags resolve to.
type ProjectInputs struct {
	Project models.Project
	Inputs  Inputs
}

// CrossProjectRow is one project's total for one day.
type CrossProjectRow struct {
	Date                Day     `json:"date"`
	ProjectID           int64   `json:"project_id"`
	ProjectName         string  `json:"project_name"`
	TotalCO2Consumption float64 `json:"total_co2_consumption"`
}

// SdlcStepRow is one SDLC step's total for one day of a project.
type SdlcStepRow struct {
	Date                Day             `json:"date"`
	ProjectID           int64           `json:"project_id"`
	SdlcStep            models.SdlcStep `json:"sdlc_step"`
	TotalCO2Consumption float64         `json:"total_co2_consumption"`
}

// ProjectRow is a project's total for one day from a single source.
type ProjectRow struct {
	Date                Day     `json:"date"`
	ProjectID           int64   `json:"project_id"`
	TotalCO2Consumption float64 `json:"total_co2_consumption"`
}

// ServiceRow is the operations total of one infrastructure service within a project.
type ServiceRow struct {
	Date                Day     `json:"date"`
	ProjectID           int64   `json:"project_id"`
	ServiceID           int64   `json:"service_id"`
	TotalCO2Consumption float64 `json:"total_co2_consumption"`
}

// PipelineRow is the CI/CD total of one pipeline within a project.
type PipelineRow struct {
	Date                Day     `json:"date"`
	ProjectID           int64   `json:"project_id"`
	PipelineID          int64   `json:"pipeline_id"`
	TotalCO2Consumption float64 `json:"total_co2_consumption"`
}

// CrossProject rolls up each project independently and concatenates the rows in project order.
func CrossProject(projects []ProjectInputs, start, end Day) []CrossProjectRow {
	out := make([]CrossProjectRow, 0, len(projects)*DayCount(start, end))
	for _, p := range projects {
		for _, b := range Daily(p.Inputs, start, end) {
			out = append(out, CrossProjectRow{
				Date:                b.Date,
				ProjectID:           p.Project.ID,
				ProjectName:         p.Project.Name,
				TotalCO2Consumption: b.Total(),
			})
		}
	}
	return out
}

// SdlcSteps emits two rows per day: integration_deployment then operations.
func SdlcSteps(projectID int64, in Inputs, start, end Day) []SdlcStepRow {
	daily := Daily(in, start, end)
	out := make([]SdlcStepRow, 0, 2*len(daily))
	for _, b := range daily {
		out = append(out,
			SdlcStepRow{Date: b.Date, ProjectID: projectID, SdlcStep: models.SdlcIntegrationDeployment, TotalCO2Consumption: b.CICD},
			SdlcStepRow{Date: b.Date, ProjectID: projectID, SdlcStep: models.SdlcOperations, TotalCO2Consumption: b.Operations},
		)
	}
	return out
}

// OperationsOnly is the per-day element consumption of a project.
func OperationsOnly(projectID int64, in Inputs, start, end Day) []ProjectRow {
	return projectRows(projectID, Daily(Inputs{Elements: in.Elements}, start, end))
}

// CicdOnly is the per-day pipeline consumption of a project.
func CicdOnly(projectID int64, in Inputs, start, end Day) []ProjectRow {
	return projectRows(projectID, Daily(Inputs{Pipelines: in.Pipelines}, start, end))
}

// ForService restricts the operations roll-up to elements of one infrastructure service.
func ForService(projectID, serviceID int64, in Inputs, start, end Day) []ServiceRow {
	var elements []models.InfrastructureElement
	for _, e := range in.Elements {
		if e.InfrastructureServiceID == serviceID {
			elements = append(elements, e)
		}
	}

	daily := Daily(Inputs{Elements: elements}, start, end)
	out := make([]ServiceRow, 0, len(daily))
	for _, b := range daily {
		out = append(out, ServiceRow{Date: b.Date, ProjectID: projectID, ServiceID: serviceID, TotalCO2Consumption: b.Operations})
	}
	return out
}

// ForPipeline restricts the CI/CD roll-up to one pipeline.
func ForPipeline(projectID, pipelineID int64, in Inputs, start, end Day) []PipelineRow {
	var pipelines []models.CicdPipeline
	for _, p := range in.Pipelines {
		if p.ID == pipelineID {
			pipelines = append(pipelines, p)
		}
	}

	daily := Daily(Inputs{Pipelines: pipelines}, start, end)
	out := make([]PipelineRow, 0, len(daily))
	for _, b := range daily {
		out = append(out, PipelineRow{Date: b.Date, ProjectID: projectID, PipelineID: pipelineID, TotalCO2Consumption: b.CICD})
	}
	return out
}

func projectRows(projectID int64, daily []DayBreakdown) []ProjectRow {
	out := make([]ProjectRow, 0, len(daily))
	for _, b := range daily {
		out = append(out, ProjectRow{Date: b.Date, ProjectID: projectID, TotalCO2Consumption: b.Total()})
	}
	return out
}
