package adapter

var (
	WorkflowPlanSchema = schemaFor[workflowPlan]
	StripFence         = stripFence
)
