// Package server implements the HTTP API for generating and retrieving
// practice reports.
package server
