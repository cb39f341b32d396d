// Package personalize talks to the external personalization service. The
// service owns long-horizon taste models; this package only normalizes its
// recommend contract behind an interface the orchestrator can stub.
package personalize
