// Package device produces and persists the stable per-installation identifier
// that license keys are bound to.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source obtains a raw device identifier from the platform. Implementations
// are selected once at startup; the generated source is always available and
// never fails.
type Source interface {
	DeviceID() (string, error)
}

// HardwareSource derives an identifier from stable machine factors: the
// primary MAC address, the hostname and CPU information, hashed together.
type HardwareSource struct{}

// DeviceID combines the hardware factors into a stable hashed identifier.
func (HardwareSource) DeviceID() (string, error) {
	mac, err := primaryMACAddress()
	if err != nil {
		return "", fmt.Errorf("failed to read hardware identity: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	hostname = strings.ToLower(strings.TrimSpace(hostname))

	factors := []string{mac, hostname, cpuInfo(), runtime.GOOS, runtime.GOARCH}
	hash := sha256.Sum256([]byte(strings.Join(factors, "|")))

	return "hw-" + hex.EncodeToString(hash[:12]), nil
}

// primaryMACAddress returns the MAC of the first up, non-loopback interface.
func primaryMACAddress() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to get network interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac, nil
		}
	}

	// Fallback: any interface with a MAC address.
	for _, iface := range interfaces {
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			slog.Warn("using fallback MAC address", slog.String("interface", iface.Name))
			return mac, nil
		}
	}

	return "", fmt.Errorf("no valid MAC address found")
}

// cpuInfo returns a short hashed CPU identifier, OS-specific where possible.
func cpuInfo() string {
	raw := fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)

	switch runtime.GOOS {
	case "windows":
		if procID := os.Getenv("PROCESSOR_IDENTIFIER"); procID != "" {
			raw = procID
		}
	case "linux":
		if data, err := os.ReadFile("/proc/cpuinfo"); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if strings.HasPrefix(line, "model name") {
					raw = line
					break
				}
			}
		}
	}

	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:8])
}

// GeneratedSource synthesizes an identifier embedding the current timestamp.
// It always succeeds and is the fallback when no platform identity exists.
type GeneratedSource struct{}

// DeviceID returns a fresh timestamp-based identifier.
func (GeneratedSource) DeviceID() (string, error) {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("gen-%d-%s", time.Now().UnixMilli(), suffix), nil
}

// autoSource tries the hardware source and falls back to the generated one.
type autoSource struct{}

func (autoSource) DeviceID() (string, error) {
	id, err := (HardwareSource{}).DeviceID()
	if err != nil {
		slog.Warn("hardware identity unavailable, generating device id",
			slog.String("error", err.Error()))
		return GeneratedSource{}.DeviceID()
	}
	return id, nil
}

// SourceFor returns the Source configured by name: "hardware", "generated"
// or "auto".
func SourceFor(name string) Source {
	switch name {
	case "hardware":
		return HardwareSource{}
	case "generated":
		return GeneratedSource{}
	default:
		return autoSource{}
	}
}
