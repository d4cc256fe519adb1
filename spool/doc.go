// Package spool provides byte buffers that transparently spill from memory
// to disk once they grow past a configurable threshold.
//
// A [Buffer] is append-then-read: it accepts writes until the first Read
// (or String) call, then serves its content back from the start. Buffers
// start memory-backed; the first write that pushes the cumulative size
// strictly beyond the threshold copies the existing bytes to a temp file
// and routes all further writes there. The copy happens at most once and
// a buffer never moves back to memory. Callers that receive a spilled
// buffer own its backing file and must Close it when done.
//
// A [Spooler] bundles the threshold, file system, and spill directory so
// that many buffers can share one configuration.
package spool
