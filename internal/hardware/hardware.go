// Package hardware picks a default GPU layer budget when the caller doesn't
// supply one, grounded on the original service's utils/hardware.rs.
package hardware

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"
)

type appleChip int

const (
	chipUnknown appleChip = iota
	chipM1
	chipM2
	chipM3
)

type chipVariant int

const (
	variantBase chipVariant = iota
	variantPro
	variantMax
	variantUltra
)

// DetectOptimalGPULayers returns a conservative GPU layer budget for the
// current machine. It shells out to sysctl on macOS and nvidia-smi on
// Linux/Windows, the same probes the original service used, and falls back
// to a gopsutil-based memory heuristic on Linux when nvidia-smi is
// unavailable rather than the bare fallback of 12 that Windows uses.
func DetectOptimalGPULayers(log *zap.Logger) uint32 {
	switch runtime.GOOS {
	case "darwin":
		return detectMacOS(log)
	case "linux":
		return detectNvidiaOr(log, linuxMemoryFallback)
	case "windows":
		return detectNvidiaOr(log, func(*zap.Logger) uint32 { return 12 })
	default:
		return 10
	}
}

func detectMacOS(log *zap.Logger) uint32 {
	out, err := exec.CommandContext(context.Background(), "sysctl", "-n", "machdep.cpu.brand_string").Output()
	if err != nil {
		log.Debug("sysctl probe failed, using Apple-silicon unknown fallback", zap.Error(err))
		return 20
	}

	chip, variant := detectAppleChip(string(out))
	return appleLayerBudget(chip, variant)
}

func detectAppleChip(cpuBrand string) (appleChip, chipVariant) {
	lower := strings.ToLower(cpuBrand)

	chip := chipUnknown
	switch {
	case strings.Contains(lower, "m3"):
		chip = chipM3
	case strings.Contains(lower, "m2"):
		chip = chipM2
	case strings.Contains(lower, "m1"):
		chip = chipM1
	}

	variant := variantBase
	switch {
	case strings.Contains(lower, "ultra"):
		variant = variantUltra
	case strings.Contains(lower, "max"):
		variant = variantMax
	case strings.Contains(lower, "pro"):
		variant = variantPro
	}

	return chip, variant
}

func appleLayerBudget(chip appleChip, variant chipVariant) uint32 {
	if chip == chipUnknown {
		return 20
	}

	isTop := variant == variantUltra || variant == variantMax

	switch chip {
	case chipM3:
		switch {
		case isTop:
			return 99
		case variant == variantPro:
			return 60
		default:
			return 35
		}
	case chipM2:
		switch {
		case isTop:
			return 80
		case variant == variantPro:
			return 50
		default:
			return 28
		}
	case chipM1:
		switch {
		case isTop:
			return 65
		case variant == variantPro:
			return 45
		default:
			return 25
		}
	default:
		return 20
	}
}

// detectNvidiaOr runs nvidia-smi and maps total VRAM to a layer budget,
// falling back to fallback(log) when the probe is absent or unparsable.
func detectNvidiaOr(log *zap.Logger, fallback func(*zap.Logger) uint32) uint32 {
	out, err := exec.CommandContext(context.Background(), "nvidia-smi",
		"--query-gpu=memory.total", "--format=csv,noheader,nounits").Output()
	if err != nil {
		log.Debug("nvidia-smi probe unavailable, using fallback", zap.Error(err))
		return fallback(log)
	}

	vramMB, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		log.Debug("nvidia-smi output unparsable, using fallback", zap.String("output", string(out)))
		return fallback(log)
	}

	return nvidiaLayerBudget(vramMB)
}

func nvidiaLayerBudget(vramMB int) uint32 {
	switch {
	case vramMB < 4000:
		return 8
	case vramMB < 8000:
		return 20
	case vramMB < 12000:
		return 28
	case vramMB < 16000:
		return 35
	case vramMB < 24000:
		return 45
	default:
		return 60
	}
}

// linuxMemoryFallback picks a conservative CPU-only layer budget from total
// host memory when no NVIDIA GPU is present, instead of the original's bare
// fallback of 12. A machine with real but modest RAM still benefits from a
// non-trivial layer budget.
func linuxMemoryFallback(log *zap.Logger) uint32 {
	const gb = 1024 * 1024 * 1024

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Debug("gopsutil memory probe failed, using bare fallback", zap.Error(err))
		return 12
	}

	totalGB := vm.Total / gb
	switch {
	case totalGB < 8:
		return 8
	case totalGB < 16:
		return 12
	case totalGB < 32:
		return 20
	default:
		return 28
	}
}
