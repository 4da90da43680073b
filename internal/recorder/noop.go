package recorder

import "LedgerSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAlert(_ model.AlertType, _ model.Severity, _, _ string) error { return nil }
func (n *NoopRecorder) RecordDetection(_ *DetectionEvent) error                            { return nil }
func (n *NoopRecorder) RecordPrediction(_ *PredictionEvent) error                          { return nil }
func (n *NoopRecorder) RecordRollover(_ *RolloverEvent) error                              { return nil }
func (n *NoopRecorder) Close() error                                                       { return nil }
