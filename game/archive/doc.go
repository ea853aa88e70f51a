// Package archive exports session tick history to zstd-compressed parquet
// files, one row per applied tick. Each export gets a fresh run id so repeated
// exports of a session never overwrite one another.
package archive
