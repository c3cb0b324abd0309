// Package download implements the download lifecycle stage: fetching each
// eligible cluster's primary fragment file and its index from the remote
// store into the dataset directory.
//
// A download directory holding only part of the pair is treated as corrupt.
// It is removed and fetched again from scratch.
package download
