// Package costs computes per-request USD costs from token usage and a
// per-million-token pricing table, and keeps running totals per model.
// Unknown models cost zero; cost tracking never fails a request.
package costs
