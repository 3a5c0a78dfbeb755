// Package sysinfo captures the host snapshot recorded alongside every
// successful execution (spec.md §3's Metadata.system, expanded by
// SPEC_FULL.md §4.N). It is grounded on the gopsutil stack used for
// host introspection elsewhere in the retrieval pack (e.g.
// rclone-rclone and DataDog-datadog-agent both depend on
// github.com/shirou/gopsutil/v3), with a golang.org/x/sys/unix.Uname
// fallback for the kernel version when gopsutil cannot supply one.
package sysinfo

import (
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"artifactexec/internal/model"
)

// Snapshot captures the current host's characteristics.
func Snapshot() (model.System, error) {
	var system model.System

	if hostname, err := os.Hostname(); err == nil {
		system.Hostname = hostname
	}

	if info, err := host.Info(); err == nil {
		system.Name = info.OS
		system.LongOSVersion = info.PlatformVersion
		system.KernelVersion = info.KernelVersion
		system.DistributionID = info.Platform
	} else if kernelVersion, unameErr := unameKernelVersion(); unameErr == nil {
		system.KernelVersion = kernelVersion
	}

	if virtualMemory, err := mem.VirtualMemory(); err == nil {
		system.TotalMemory = virtualMemory.Total
	}

	if counts, err := cpu.Counts(true); err == nil {
		system.EstimatedCPUCoreCount = uint(counts)
	}

	return system, nil
}
