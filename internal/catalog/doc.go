// Package catalog persists the scanned title library and cached cover art in
// SQLite.
//
// The Store is the title repository the batch pipeline records into: titles
// are upserted by directory path together with their disc paths and track
// file names, and cover images are cached by product identifier so they can
// be re-applied without the original image files. Export and Import move the
// whole catalogue through JSON.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema, since everything in it can be rebuilt by a scan.
package catalog
