package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClassifyRequests counts classification calls by the backend that
	// actually served them (embedding or keyword fallback).
	ClassifyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeforms_classify_requests_total",
		Help: "HS classification requests by serving backend",
	}, []string{"backend"})

	// FillRequests counts extraction calls by the arm that produced the form.
	FillRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeforms_fill_requests_total",
		Help: "Form extraction requests by serving arm (llm or heuristic)",
	}, []string{"source"})

	// LLMFailures counts LLM calls that fell back to heuristics, by cause.
	LLMFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeforms_llm_failures_total",
		Help: "LLM extraction failures that triggered the heuristic fallback",
	}, []string{"cause"})

	// HistorySearches counts similarity searches over stored submissions.
	HistorySearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeforms_history_searches_total",
		Help: "Similarity searches over submission history",
	})
)
