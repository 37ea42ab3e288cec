// GenoVault is a metadata and access management service for
// clinical-genomics datasets shared across a rare-disease research network.
// It tracks the family / participant / tissue-sample / dataset hierarchy,
// scopes every read through group permissions, and keeps those permissions
// in step with the groups, users, buckets and policies of an S3-compatible
// object store.
package main
