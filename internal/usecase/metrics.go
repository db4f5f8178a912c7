package usecase

import domrepo "FinAlloc/internal/domain/repository"

type nopMetrics struct{}

var _ domrepo.Metrics = nopMetrics{}

func (nopMetrics) RecordPlan(string, string)         {}
func (nopMetrics) RecordClassOutcome(string, string) {}
func (nopMetrics) RecordFallback(string, string)     {}
func (nopMetrics) RecordError(string)                {}
func (nopMetrics) RecordLatency(string, float64)     {}
func (nopMetrics) RecordForecast(string, bool)       {}
