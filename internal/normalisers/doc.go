// Package normalisers provides the document loaders that turn lease files
// into normalised text. Each loader handles a fixed set of file extensions.
//
// Loaders are registered with the Registry at startup.
package normalisers
