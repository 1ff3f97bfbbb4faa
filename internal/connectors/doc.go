// Package connectors holds the sources that feed lease files into ingestion.
// The filesystem watcher is the only source; it reports new and changed
// files to the ingestion service as they appear in a watched directory.
package connectors
