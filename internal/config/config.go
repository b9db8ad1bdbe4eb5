// Package config decodes the daemon's YAML configuration the way
// stress_pipeline/main.go decodes its own: files are loaded and merged
// into a conf.C, then conf.C.Unpack fills a plain Settings struct whose
// field tags double as config keys.
package config

import (
	"time"

	conf "github.com/elastic/elastic-agent-libs/config"
	"github.com/elastic/elastic-agent-libs/paths"
	"github.com/pkg/errors"

	"github.com/njcx/logqueued/internal/queue"
	"github.com/njcx/logqueued/internal/queue/codec"
	"github.com/njcx/logqueued/internal/queue/diskspool"
)

// Settings is the daemon's top-level configuration.
type Settings struct {
	Path    paths.Path `config:",inline"`
	Logging *conf.C    `config:"logging"`
	Queue   Queue      `config:"queue"`
}

// Queue mirrors internal/queue.Settings plus the fields only meaningful
// at configuration time (the backend kind and codec selection, which
// queue.Settings itself has no notion of).
type Queue struct {
	// Kind selects the backend: "array", "linked", "disk" or "direct".
	Kind string `config:"kind"`

	Capacity       int           `config:"capacity"`
	WorkerCount    int           `config:"worker_count"`
	EnqueueTimeout time.Duration `config:"enqueue_timeout"`

	// Codec selects the Serializable implementation for the disk
	// backend: "msgp" (default) or "json".
	Codec string `config:"codec"`

	Disk diskspool.Settings `config:"disk"`
}

// Load reads and merges one or more YAML files into a single conf.C, the
// way stress_pipeline/main.go's common.LoadFiles did for the teacher.
// With no files it returns an empty, valid config so callers can still
// apply -E overwrites on top of nothing but flag defaults.
func Load(files ...string) (*conf.C, error) {
	merged := conf.NewConfig()
	for _, f := range files {
		c, err := conf.LoadFile(f)
		if err != nil {
			return nil, errors.Wrapf(err, "config: load %s", f)
		}
		if err := merged.Merge(c); err != nil {
			return nil, errors.Wrapf(err, "config: merge %s", f)
		}
	}
	return merged, nil
}

// Unpack decodes cfg into a Settings, pre-filling defaults (array kind,
// capacity 1000, one worker, DefaultEnqueueTimeout, msgp codec) so a
// minimal config file (just spool_dir, say) is enough to run.
func Unpack(cfg *conf.C) (*Settings, error) {
	settings := &Settings{
		Queue: Queue{
			Kind:           "array",
			Capacity:       1000,
			WorkerCount:    1,
			EnqueueTimeout: queue.DefaultEnqueueTimeout,
			Codec:          "msgp",
		},
	}
	if err := cfg.Unpack(settings); err != nil {
		return nil, errors.Wrap(err, "config: unpack settings")
	}
	return settings, nil
}

// kind resolves the configured backend name to a queue.Kind.
func (q Queue) kind() (queue.Kind, error) {
	switch q.Kind {
	case "", "array":
		return queue.Array, nil
	case "linked":
		return queue.Linked, nil
	case "disk":
		return queue.Disk, nil
	case "direct":
		return queue.Direct, nil
	default:
		return 0, errors.Errorf("config: unknown queue kind %q", q.Kind)
	}
}

// codecFor resolves the configured codec name to a disk-spool codec.Codec.
// Only meaningful when Kind is "disk".
func (q Queue) codecFor() (codec.Codec, error) {
	switch q.Codec {
	case "", "msgp":
		return codec.NewLogEntryMsgpCodec(), nil
	case "json":
		return codec.NewLogEntryJSONCodec(), nil
	default:
		return nil, errors.Errorf("config: unknown codec %q", q.Codec)
	}
}

// Resolve turns the decoded Queue configuration into the arguments
// queue.New needs, filling in the disk spool's codec and rooting its
// spool_dir under the process data path resolved by paths.InitPaths
// unless an absolute path was given.
func (s *Settings) Resolve() (queue.Kind, queue.Settings, error) {
	kind, err := s.Queue.kind()
	if err != nil {
		return 0, queue.Settings{}, err
	}

	diskSettings := s.Queue.Disk
	if kind == queue.Disk {
		c, err := s.Queue.codecFor()
		if err != nil {
			return 0, queue.Settings{}, err
		}
		diskSettings.Codec = c
		if diskSettings.SpoolDir == "" {
			diskSettings.SpoolDir = paths.Resolve(paths.Data, "spool")
		} else {
			diskSettings.SpoolDir = paths.Resolve(paths.Data, diskSettings.SpoolDir)
		}
	}

	return kind, queue.Settings{
		Capacity:       s.Queue.Capacity,
		WorkerCount:    s.Queue.WorkerCount,
		EnqueueTimeout: s.Queue.EnqueueTimeout,
		Disk:           diskSettings,
	}, nil
}
