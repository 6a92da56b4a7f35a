// Package events keeps a bounded, sequenced feed of job events for HTTP
// clients.
//
// Readers poll with the last sequence number they saw and receive only newer
// events. A [JobObserver] adapts one submission's orchestrator callbacks to
// feed events.
package events
