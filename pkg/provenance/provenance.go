// Package provenance builds the JSON records stored in the provenance
// table: the command that produced a file, its parameters, the host it
// ran on and the resources it used.
package provenance

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/json"
	"github.com/ajitpratap0/arbor/pkg/logger"
	"github.com/ajitpratap0/arbor/pkg/tables"
)

// SchemaVersion is written to every record.
const SchemaVersion = "1.0.0"

// Software names the program that wrote a record.
type Software struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// OS describes the host operating system.
type OS struct {
	System  string `json:"system"`
	Node    string `json:"node"`
	Release string `json:"release"`
	Version string `json:"version"`
	Machine string `json:"machine"`
}

// Environment describes where a record was produced.
type Environment struct {
	OS        OS                `json:"os"`
	Libraries map[string]string `json:"libraries"`
}

// Resources are the costs of the command, filled in by Finish.
type Resources struct {
	ElapsedTime float64 `json:"elapsed_time"`
	UserTime    float64 `json:"user_time"`
	SysTime     float64 `json:"sys_time"`
	MaxMemory   uint64  `json:"max_memory"`
}

// Record is one provenance entry.
type Record struct {
	SchemaVersion string                 `json:"schema_version"`
	Software      Software               `json:"software"`
	Parameters    map[string]interface{} `json:"parameters"`
	Environment   Environment            `json:"environment"`
	Resources     *Resources             `json:"resources,omitempty"`

	start time.Time
}

// New starts a record for command. The elapsed time reported by Finish is
// measured from this call.
func New(ctx context.Context, software Software, command string, params map[string]interface{}) *Record {
	p := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		p[k] = v
	}
	p["command"] = command
	return &Record{
		SchemaVersion: SchemaVersion,
		Software:      software,
		Parameters:    p,
		Environment:   CurrentEnvironment(ctx),
		start:         time.Now(),
	}
}

// CurrentEnvironment describes the running host. Fields gopsutil cannot
// determine fall back to the Go runtime values or are left empty.
func CurrentEnvironment(ctx context.Context) Environment {
	env := Environment{
		OS: OS{System: runtime.GOOS, Machine: runtime.GOARCH},
		Libraries: map[string]string{
			"go": runtime.Version(),
		},
	}
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		logger.WithContext(ctx).Debug("host info unavailable", zap.Error(err))
		if name, err := os.Hostname(); err == nil {
			env.OS.Node = name
		}
		return env
	}
	env.OS.Node = info.Hostname
	env.OS.Release = info.KernelVersion
	env.OS.Version = info.PlatformVersion
	if info.KernelArch != "" {
		env.OS.Machine = info.KernelArch
	}
	if info.Platform != "" {
		env.Libraries["platform"] = info.Platform
	}
	return env
}

// Finish records the resources used since New.
func (r *Record) Finish(ctx context.Context) {
	res := &Resources{ElapsedTime: time.Since(r.start).Seconds()}
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err == nil {
		if times, err := proc.TimesWithContext(ctx); err == nil {
			res.UserTime = times.User
			res.SysTime = times.System
		}
		if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
			res.MaxMemory = mem.RSS
		}
	}
	r.Resources = res
}

// Marshal encodes the record as JSON.
func (r *Record) Marshal() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode provenance record")
	}
	return string(data), nil
}

// Parse decodes a record written by Marshal. Records written by other
// software decode as far as their fields match.
func Parse(record string) (*Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(record), &r); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "invalid provenance record")
	}
	return &r, nil
}

// Append finishes r and adds it to the provenance table of tc with the
// current UTC time.
func Append(ctx context.Context, tc *tables.Collection, r *Record) error {
	r.Finish(ctx)
	record, err := r.Marshal()
	if err != nil {
		return err
	}
	_, err = tc.Provenances.AddRow(time.Now().UTC().Format(time.RFC3339), record)
	return err
}
