package clinicflow

type BuilderOption func(builder *Builder)

func WithBuilderWorkflowOptions(opts ...WorkflowOption) BuilderOption {
	return func(builder *Builder) {
		builder.workflowOpts = append(builder.workflowOpts, opts...)
	}
}

// WithBuilderAbsorbPolicy sets the absorb policy of every group the builder
// creates.
func WithBuilderAbsorbPolicy(policy AbsorbPolicy) BuilderOption {
	return func(builder *Builder) {
		builder.defaultPolicy = policy
	}
}
