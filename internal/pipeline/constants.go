package pipeline

// Default values for the plan pipeline.
const (
	// DefaultModelName is the default Gemini model used for plan parsing.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultLocale formats the date anchor embedded in the prompt.
	DefaultLocale = "en-IN"

	// DefaultLocation is the place the owner's "today" refers to.
	DefaultLocation = "Bengaluru, India"
)

// Pipeline names used in logs and metrics.
const (
	pipelineExpense = "expense"
	pipelinePlan    = "plan"
	pipelineChat    = "chat"
)
