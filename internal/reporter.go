package internal

// Reporter is the fire-and-forget error-tracking collaborator. Report must
// never block the cycle or return a failure of its own.
type Reporter interface {
	Report(err error, context map[string]string)
}

// LogReporter is the default Reporter: it writes the failure and its context
// to the collector log.
type LogReporter struct{}

func (LogReporter) Report(err error, context map[string]string) {
	if len(context) == 0 {
		LogError("%v", err)
		return
	}
	LogError("%v (context: %v)", err, context)
}
