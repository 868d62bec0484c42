// Package metrics provides Prometheus instrumentation for ledgerlens.
package metrics

// Analyze records an account analysis.
func Analyze(status string) {
	if !enabled {
		return
	}
	analyzeTotal.WithLabelValues(status).Inc()
}

// GasEstimate records a simulated gas estimate. Outcome is "ok" or
// "revert" for completed simulations, "error" otherwise.
func GasEstimate(status, outcome string) {
	if !enabled {
		return
	}
	gasEstimateTotal.WithLabelValues(status, outcome).Inc()
}

// TreeRegister records a merkle tree registration.
func TreeRegister(status string) {
	if !enabled {
		return
	}
	treeRegisterTotal.WithLabelValues(status).Inc()
}

// TreeRemove records a merkle tree deactivation.
func TreeRemove(status string) {
	if !enabled {
		return
	}
	treeRemoveTotal.WithLabelValues(status).Inc()
}

// TreeUpdate records a merkle tree description update.
func TreeUpdate(status string) {
	if !enabled {
		return
	}
	treeUpdateTotal.WithLabelValues(status).Inc()
}

// FeedConnected records a new WebSocket event feed connection.
func FeedConnected() {
	if !enabled {
		return
	}
	wsConnections.Inc()
}

// FeedDisconnected records a closed WebSocket event feed connection.
func FeedDisconnected() {
	if !enabled {
		return
	}
	wsConnections.Dec()
}
