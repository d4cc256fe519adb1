// Package s3 provides an Amazon S3 implementation of the
// cardstore.Store interface, plus a DynamoDB-backed revision log for
// coordinating concurrent writers.
//
// # Usage
//
//	store := s3.NewStore(client, "my-bucket", "contacts/")
//
//	err := store.Put(ctx, "alice", card)
//	card, err := store.Get(ctx, "alice")
//
// # Features
//
//   - Streaming multipart uploads for large cards (photo payloads)
//   - Range reads for partial fetches
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
//   - Optimistic revision commits through DynamoDB conditional writes
package s3
