package engine

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceGPU  Device = "cuda"
)

func ParseDevice(s string) Device {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return DeviceCPU
	case "gpu", "cuda":
		return DeviceGPU
	default:
		return DeviceAuto
	}
}

// Resolve picks the accelerator when it is requested or allowed and present,
// and falls back to the CPU otherwise.
func (d Device) Resolve(gpuAvailable bool) Device {
	if d == DeviceCPU || !gpuAvailable {
		return DeviceCPU
	}
	return DeviceGPU
}

func GPUAvailable() bool {
	if v, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES"); ok && (v == "" || v == "-1") {
		return false
	}
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

// GPUName returns the first accelerator's name, or "" when none is reported.
func GPUName() string {
	if !GPUAvailable() {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return ""
	}
	name, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(name)
}
