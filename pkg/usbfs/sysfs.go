package usbfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lourenssteyn/asic0x"
)

const (
	// SysfsRoot is where the kernel lists usb devices.
	SysfsRoot = "/sys/bus/usb/devices"
	// DevfsRoot holds the usbfs device nodes.
	DevfsRoot = "/dev/bus/usb"
)

// bmAttributes transfer types
const (
	transferTypeMask      = 0x03
	transferTypeBulk      = 0x02
	transferTypeInterrupt = 0x03
)

var ErrNoEndpoints = errors.New("no bulk endpoint pair")

// DeviceInfo is a usb device as seen in sysfs.
type DeviceInfo struct {
	SysfsPath string
	Bus       uint8
	Dev       uint8
	VendorID  uint16
	ProductID uint16
	Product   string
	Serial    string
	// Configuration is the active bConfigurationValue, 0 if unconfigured.
	Configuration uint8
}

// DevPath returns the usbfs node of the device.
func (d DeviceInfo) DevPath() string {
	return filepath.Join(DevfsRoot, fmt.Sprintf("%03d", d.Bus), fmt.Sprintf("%03d", d.Dev))
}

func (d DeviceInfo) String() string {
	s := fmt.Sprintf("%03d:%03d %04x:%04x", d.Bus, d.Dev, d.VendorID, d.ProductID)
	if d.Product != "" {
		s += " " + d.Product
	}
	if d.Serial != "" {
		s += " (" + d.Serial + ")"
	}
	return s
}

// Scan lists the usb devices below root, SysfsRoot if empty. Entries that
// are not devices (hubs' interfaces, root hubs without descriptors) are
// skipped.
func Scan(root string) ([]DeviceInfo, error) {
	if root == "" {
		root = SysfsRoot
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list usb devices: %w", err)
	}
	var out []DeviceInfo
	for _, e := range entries {
		// interfaces are named <device>:<config>.<interface>
		if strings.Contains(e.Name(), ":") {
			continue
		}
		info, err := ReadDevice(filepath.Join(root, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bus != out[j].Bus {
			return out[i].Bus < out[j].Bus
		}
		return out[i].Dev < out[j].Dev
	})
	return out, nil
}

// ScanFor returns the devices matching a vendor/product pair.
func ScanFor(root string, vid, pid uint16) ([]DeviceInfo, error) {
	all, err := Scan(root)
	if err != nil {
		return nil, err
	}
	var out []DeviceInfo
	for _, d := range all {
		if d.VendorID == vid && d.ProductID == pid {
			out = append(out, d)
		}
	}
	return out, nil
}

// ReadDevice reads the descriptor attributes of one sysfs device directory.
func ReadDevice(path string) (DeviceInfo, error) {
	info := DeviceInfo{SysfsPath: path}
	var err error
	if info.VendorID, err = readHexUint16(filepath.Join(path, "idVendor")); err != nil {
		return info, err
	}
	if info.ProductID, err = readHexUint16(filepath.Join(path, "idProduct")); err != nil {
		return info, err
	}
	if info.Bus, err = readUint8(filepath.Join(path, "busnum")); err != nil {
		return info, err
	}
	if info.Dev, err = readUint8(filepath.Join(path, "devnum")); err != nil {
		return info, err
	}
	info.Product, _ = readString(filepath.Join(path, "product"))
	info.Serial, _ = readString(filepath.Join(path, "serial"))
	// empty while unconfigured
	info.Configuration, _ = readUint8(filepath.Join(path, "bConfigurationValue"))
	return info, nil
}

// InterfaceEndpoints resolves the first bulk IN, bulk OUT and interrupt IN
// endpoints of an interface of the active configuration.
func InterfaceEndpoints(info DeviceInfo, iface uint8) (asic0x.Endpoints, error) {
	var eps asic0x.Endpoints
	dir := filepath.Join(info.SysfsPath, fmt.Sprintf("%s:%d.%d", filepath.Base(info.SysfsPath), info.Configuration, iface))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return eps, err
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "ep_") {
			continue
		}
		addr, err := readHexUint8(filepath.Join(dir, e.Name(), "bEndpointAddress"))
		if err != nil {
			continue
		}
		attr, err := readHexUint8(filepath.Join(dir, e.Name(), "bmAttributes"))
		if err != nil {
			continue
		}
		in := addr&asic0x.RequestDirIn != 0
		switch attr & transferTypeMask {
		case transferTypeBulk:
			if in && eps.In == 0 {
				eps.In = addr
			}
			if !in && eps.Out == 0 {
				eps.Out = addr
			}
		case transferTypeInterrupt:
			if in && eps.Status == 0 {
				eps.Status = addr
			}
		}
	}
	if eps.In == 0 || eps.Out == 0 {
		return eps, ErrNoEndpoints
	}
	return eps, nil
}

func readString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readUint8(path string) (uint8, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 8)
	return uint8(v), err
}

func readHex(path string, bitSize int) (uint64, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, bitSize)
}

func readHexUint8(path string) (uint8, error) {
	v, err := readHex(path, 8)
	return uint8(v), err
}

func readHexUint16(path string) (uint16, error) {
	v, err := readHex(path, 16)
	return uint16(v), err
}
