// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Loader: Reads one document format into normalized text
//   - LoaderRegistry: Selects the loader for a file extension
//   - PostProcessorPipeline: Splits normalized text into chunks
//   - LeaseStore, ChunkStore, ClauseStore, KeyTermsStore: Lease persistence
//   - IngestionLogStore: Processing history
//   - ConfigStore: Application configuration
//   - Reranker: Second-stage ordering of retrieval candidates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VectorIndex: Vector storage/search. Only enabled when EmbeddingService is configured.
//   - EmbeddingService: Generates vector embeddings. Without it, retrieval is keyword-only.
//   - SearchEngine: Keyword index. Without it, retrieval is vector-only.
//   - LLMService: Language model operations. Without it, clause and key-terms
//     extraction are skipped and answers are extractive.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
