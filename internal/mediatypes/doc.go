// Package mediatypes defines the shared vocabulary of the converter: source
// locators, operation kinds and audio quality presets.
//
// These types are used by the output resolver, the command builder and the
// orchestrator, and are kept in a leaf package so none of those depend on
// each other just to name a kind.
package mediatypes
