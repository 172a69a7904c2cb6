package domain

// KeyPrefix namespaces every key the store writes into the backend.
const KeyPrefix = "docstore:"

// MaxIDsByTags caps the number of IDs a tag-filter lookup returns.
// Results past the cap are truncated silently.
const MaxIDsByTags = 10000

// BulkWriteTimeoutSec is the per-request deadline for bulk document writes,
// in seconds. The only internal deadline in the system.
const BulkWriteTimeoutSec = 30
