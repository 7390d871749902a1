// Package jobs runs conversions in the background, one at a time, and
// reports their progress to subscribers.
package jobs
