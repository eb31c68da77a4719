// Package projection adapts collaborator state into pageable views: cursor
// sources over metadata items and jobs, and sorted snapshots of the poll
// buckets served with offset paging. Collaborators are passed in; nothing
// here looks them up globally.
package projection
