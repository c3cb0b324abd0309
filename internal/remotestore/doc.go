// Package remotestore adapts object stores to the narrow interface the
// lifecycle stages need: fetch an object, store a file under a folder, create
// a folder, and delete an object or folder.
//
// Identifiers are slash-separated keys relative to the store root. A folder
// id is the key prefix its children live under, so JoinID(folder, name) is
// the id of a child. Fetching or deleting something that is not there returns
// an error matching services.ErrRemoteConflict, which deletion treats as
// already done.
//
// Backends: s3 (aws-sdk-go-v2), minio (minio-go), and local (a directory
// tree, used for tests and single-host deployments).
package remotestore
