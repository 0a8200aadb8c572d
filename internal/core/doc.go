// Package core turns a saved map document into a choropleth render call.
//
// A map document is what an author edits: the outline to draw, a dataset
// pasted as delimited text, legend ranges typed as "100,100-200,200", and a
// handful of display toggles. Rendering runs three independent steps and
// combines them:
//
//   - [Resolver] fills in defaults and drops disabled sections
//   - [ParseDataset] reads (region key, value) rows from the dataset text
//   - [ClassifyRanges] turns the legend range text into colour classes
//
// [BuildRenderCall] merges the results with the outline's [maptype.Descriptor]
// into a [RenderCall] the page bootstrap hands to the map library.
//
// These functions are pure and share no state. [Service] wraps them with
// the operational pieces: saved maps behind [MapStore], a [RenderCache],
// metrics through [RenderObserver], and xlsx imports bounded by an
// [ImportLimiter].
//
// # Error Handling
//
// Failures are sentinel errors (see errors.go) that [MapError] maps to
// user-facing messages with a support code.
package core
