// Package pipeline implements the bounded multi-stage processing pipeline
// that downloads recordings and normalizes them under a global concurrency
// cap.
//
// A run wires four stages: a single fetch worker draining the work list, a
// fixed-capacity staging channel between download and processing, a
// fixed-size pool of processing workers, and a single post-processing worker
// delivering results to a sink. The staging channel is the backpressure
// boundary: when processing falls behind, the fetch worker blocks, bounding
// how many downloaded-but-unprocessed files exist at once.
//
// Termination is signaled stage-to-stage by closing channels. Cancellation is
// cooperative: it stops new work from being admitted but never interrupts a
// processing call already in flight, so a run only reports its outcome after
// every dispatched task has finished.
package pipeline
