// Package tandem implements a hybrid retrieval-and-routing pipeline for
// question answering over locally ingested documents.
//
// Documents are split into overlapping chunks (ingest), embedded and stored
// in a flat nearest-neighbor index (index), and queries are answered by one
// of two generation backends: a fast local model or a high-capability remote
// one. A deterministic Router decides per query which backend runs, and the
// Dispatcher assembles retrieved context into a backend-agnostic grounded
// prompt and normalizes both backends into one response shape.
//
// The root package holds the domain types, the backend interfaces, and the
// pipeline components; concrete backends live under provider/, the vector
// index under index/, and document bookkeeping under registry/.
package tandem
