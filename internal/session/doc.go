// Package session retains recently generated reports in memory.
package session
