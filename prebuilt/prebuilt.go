// Package prebuilt provides canonical agent graph constructors: a
// ReAct tool-calling loop, a supervisor that routes between workers,
// and a linear sequence builder. Each returns an uncompiled
// *graph.StateGraph so callers can add nodes or attach a checkpointer
// before Compile.
package prebuilt

// Option configures the prebuilt constructors. Options that do not
// apply to a given constructor are ignored by it.
type Option func(*config)

type config struct {
	systemPrompt string
	model        string
	temperature  float64
	maxTokens    int
	defaultRoute string
}

// WithSystemPrompt sets the system prompt sent ahead of the
// conversation history.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) { c.systemPrompt = prompt }
}

// WithModel sets the model name passed to the provider.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(c *config) { c.temperature = temp }
}

// WithMaxTokens caps the tokens generated per model call.
func WithMaxTokens(n int) Option {
	return func(c *config) { c.maxTokens = n }
}

// WithDefaultRoute names the route a supervisor falls back to when the
// classifier's answer matches no known label.
func WithDefaultRoute(label string) Option {
	return func(c *config) { c.defaultRoute = label }
}

func buildConfig(opts []Option) config {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
