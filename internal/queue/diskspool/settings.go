// Package diskspool implements the DISK backend (spec.md §4.6): a
// directory of sequentially-numbered segment files, a writer cursor and a
// reader cursor advancing independently through them, and segment
// deletion once a segment has been fully consumed.
package diskspool

import (
	"fmt"
	"path/filepath"

	"github.com/njcx/logqueued/internal/queue/codec"
)

// segmentModulus is the file-name wrap point spec.md §4.6 specifies.
// Internally segment numbers are a monotonic uint64 (see Backend); only
// the rendered file name wraps.
const segmentModulus = 1_000_000

// DefaultMaxSegmentBytes matches the rsyslog original's disk backend,
// which hardcodes a 3KiB segment size (queue.c: "iMaxFileSize = 1024 * 3").
const DefaultMaxSegmentBytes = 1024 * 3

// Settings configures a DISK backend. It is decoded directly from the
// queue's YAML configuration via elastic-agent-libs/config, so field names
// double as config keys (see internal/config).
type Settings struct {
	// SpoolDir is the directory holding this queue's segment files. It
	// must be supplied explicitly -- spec.md's design notes reject the
	// source's global pszSpoolDirectory lookup.
	SpoolDir string `config:"spool_dir"`

	// MaxSegmentBytes is the writer roll-over threshold. Zero selects
	// DefaultMaxSegmentBytes.
	MaxSegmentBytes int64 `config:"max_file_bytes"`

	// PageSize is the buffered reader's page size. Zero selects
	// spoolio.DefaultPageSize.
	PageSize int `config:"read_page_bytes"`

	// LockSpoolDir takes an exclusive flock on a ".lock" file inside
	// SpoolDir so two processes can't both use the same spool directory. Off by
	// default to match the rsyslog original's behavior exactly; the
	// rest of the stack (§3 of SPEC_FULL.md) treats this as hardening.
	LockSpoolDir bool `config:"lock_spool_dir"`

	// Codec serializes/deserializes items written to this spool. It has
	// no config-tag equivalent; callers set it directly in Go.
	Codec codec.Codec
}

func (s Settings) maxSegmentBytes() int64 {
	if s.MaxSegmentBytes <= 0 {
		return DefaultMaxSegmentBytes
	}
	return s.MaxSegmentBytes
}

func (s Settings) pageSize() int {
	return s.PageSize
}

// segmentFileName renders a segment id as "mainq.<NNNNNN>.qf", wrapping
// the visible sequence number at segmentModulus as spec.md §4.6 requires.
func segmentFileName(id uint64) string {
	return fmt.Sprintf("mainq.%06d.qf", id%segmentModulus)
}

func (s Settings) segmentPath(id uint64) string {
	return filepath.Join(s.SpoolDir, segmentFileName(id))
}
