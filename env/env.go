// Package env checks process-wide preconditions before training starts.
package env

import (
	"fmt"
	"log"
	"runtime/debug"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
	"github.com/sugarme/gotch"
	"golang.org/x/mod/semver"
)

const gotchModule = "github.com/sugarme/gotch"

// MinFrameworkVersion is the oldest supported gotch release.
const MinFrameworkVersion = "v0.3.0"

// FrameworkVersion returns the gotch module version linked into the binary.
// ok is false when build info is unavailable (e.g. in tests).
func FrameworkVersion() (version string, ok bool) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, dep := range bi.Deps {
		if dep.Path != gotchModule {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version, true
		}
		return dep.Version, dep.Version != ""
	}

	return "", false
}

// CheckFramework fails if the linked gotch is older than min.
// Unknown versions are accepted.
func CheckFramework(min string) error {
	v, ok := FrameworkVersion()
	if !ok {
		return nil
	}
	fmt.Printf("gotch Version: %v\n", v)

	return checkVersion(v, min)
}

func checkVersion(v, min string) error {
	if !semver.IsValid(v) {
		return errors.Errorf("invalid gotch version %q", v)
	}
	// compare releases only, v0.3.3-0.2020... counts as v0.3.3
	if semver.Compare(release(v), release(min)) < 0 {
		return errors.Errorf("Please use gotch version %v or newer. You are using %v", min, v)
	}
	return nil
}

func release(v string) string {
	if pre := semver.Prerelease(v); pre != "" {
		return v[:len(v)-len(pre)-len(semver.Build(v))]
	}
	return v
}

// SelectDevice returns CUDA when wanted and available, CPU otherwise. A
// missing GPU is always reported as a warning, not an error.
func SelectDevice(wantCuda bool) gotch.Device {
	return pickDevice(wantCuda, gotch.CUDA.IsAvailable())
}

func pickDevice(wantCuda, hasGPU bool) gotch.Device {
	if !hasGPU {
		log.Println("WARNING: No GPU found. Please use a GPU to train your neural network.")
	}

	if wantCuda && hasGPU {
		device := gotch.CudaBuilder(0)
		fmt.Printf("Default GPU Device: %v\n", device.Name)
		return device
	}

	fmt.Println(CPUReport())
	return gotch.CPU
}

// CPUReport describes the host CPU.
func CPUReport() string {
	c := cpuid.CPU
	return fmt.Sprintf("CPU: %v (%v cores, %v threads, AVX2: %v, AVX512F: %v)",
		c.BrandName, c.PhysicalCores, c.LogicalCores,
		c.Supports(cpuid.AVX2), c.Supports(cpuid.AVX512F))
}
