// Package deletion implements the delete lifecycle stage: clusters that fall
// below the retention policy lose their local directories, their remote
// folder, and their catalog row.
//
// Every step treats an already absent target as success, so re-running a
// deletion is safe.
package deletion
