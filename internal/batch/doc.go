// Package batch discovers audio files in one folder, transcribes them sequentially
// with a single loaded model, and aggregates the results into a transcripts table.
//
// A run follows Idle -> Running -> Completed | CompletedEmpty, with Failed for
// folder, model-load, and write errors and Cancelled when the caller's context is
// done at a file boundary. Individual file failures never stop the batch.
package batch
