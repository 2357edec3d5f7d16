// Package services implements the driving port interfaces.
// Services contain the core pipeline logic and orchestrate
// calls to driven ports (adapters).
//
// The stages share a store-as-queue design: the chunk status column
// is the work queue, and each service advances chunks along the
// lifecycle with conditional writes.
package services
