package metrics

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPredictions forwards the events to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPredictions(evs []PredictionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPredictions(evs); err != nil {
			return err
		}
	}
	return nil
}

// RecordEvaluationFallback forwards fallback events.
func (m *MultiSink) RecordEvaluationFallback(ev EvaluationFallbackEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(EvaluationFallbackRecorder); ok {
			if err := rec.RecordEvaluationFallback(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTraining forwards training events.
func (m *MultiSink) RecordTraining(ev TrainingEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TrainingRecorder); ok {
			if err := rec.RecordTraining(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordForecastRun forwards forecast run summaries.
func (m *MultiSink) RecordForecastRun(ev ForecastRunEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ForecastRunRecorder); ok {
			if err := rec.RecordForecastRun(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordGridPoint forwards grid point summaries.
func (m *MultiSink) RecordGridPoint(ev GridPointEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(GridPointRecorder); ok {
			if err := rec.RecordGridPoint(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that has a Close method.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
