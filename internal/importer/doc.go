// Package importer loads YAML catalogues of categories, organizations, jobs
// and seeker profiles into a store.
//
// A catalogue is written in a single transaction. Jobs reference
// organizations by a file-local key and categories by slug; seekers reference
// impact areas by slug. After a successful commit every job and seeker is
// handed to an Enqueuer so embeddings are computed in the background.
package importer
