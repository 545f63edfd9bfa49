//go:build linux && (amd64 || arm64)

package usbfs

import "testing"

func TestIoctlNumbers(t *testing.T) {
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"USBDEVFS_CONTROL", usbdevfsControl, 0xc0185500},
		{"USBDEVFS_BULK", usbdevfsBulk, 0xc0185502},
		{"USBDEVFS_SETCONFIGURATION", usbdevfsSetConfiguration, 0x80045505},
		{"USBDEVFS_CLAIMINTERFACE", usbdevfsClaimInterface, 0x8004550f},
		{"USBDEVFS_RELEASEINTERFACE", usbdevfsReleaseInterface, 0x80045510},
		{"USBDEVFS_IOCTL", usbdevfsIoctl, 0xc0105512},
		{"USBDEVFS_DISCONNECT", usbdevfsDisconnect, 0x5516},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = 0x%x, want 0x%x", tt.name, tt.got, tt.want)
		}
	}
}
