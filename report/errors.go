package report

// ConfigurationError reports an unusable run configuration, including a
// grouping column that is absent from the sample annotation. It aborts the
// run before any metric is computed, since every downstream figure would
// inherit the mistake.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
