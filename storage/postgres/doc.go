// Package postgres provides a Postgres entity store with pgvector
// similarity ranking and filter push-down support.
//
// Unlike the badger backend, which loads every candidate into the
// application, this store can prune candidates inside the database
// using WHERE fragments generated by the filter engine, and rank
// embeddings with the pgvector cosine distance operator. It suits
// deployments whose entity counts outgrow full in-process scans.
//
// Push-down fragments are built without privacy knowledge. Results from
// SearchEntities and RankByVector are a coarse superset and must be
// re-filtered with filter.Engine.EvaluateFilters before being shown to
// a requester.
package postgres
