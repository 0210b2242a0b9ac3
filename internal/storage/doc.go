package storage

// Package storage persists the small amount of state that must survive
// process restarts:
//   - Scheduler config and run bookkeeping
//   - Daily quota counters
//   - Publish history (per-platform outcomes)
