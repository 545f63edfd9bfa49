package usbfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lourenssteyn/asic0x"
)

var _ asic0x.Transport = (*Device)(nil)

func writeAttrs(t *testing.T, dir string, attrs map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, val := range attrs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(val+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func fakeSysfs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeAttrs(t, filepath.Join(root, "usb1"), map[string]string{
		"idVendor": "1d6b", "idProduct": "0002", "busnum": "1", "devnum": "1", "bConfigurationValue": "1",
	})
	writeAttrs(t, filepath.Join(root, "1-1"), map[string]string{
		"idVendor": "0482", "idProduct": "0204", "busnum": "1", "devnum": "12",
		"bConfigurationValue": "1", "product": "iBurst Terminal", "serial": "UT0012345",
	})
	iface := filepath.Join(root, "1-1", "1-1:1.0")
	writeAttrs(t, filepath.Join(iface, "ep_01"), map[string]string{"bEndpointAddress": "01", "bmAttributes": "02"})
	writeAttrs(t, filepath.Join(iface, "ep_82"), map[string]string{"bEndpointAddress": "82", "bmAttributes": "02"})
	writeAttrs(t, filepath.Join(iface, "ep_83"), map[string]string{"bEndpointAddress": "83", "bmAttributes": "03"})
	writeAttrs(t, filepath.Join(iface, "ep_84"), map[string]string{"bEndpointAddress": "84", "bmAttributes": "02"})
	// interface directories are also linked at the top level
	writeAttrs(t, filepath.Join(root, "1-1:1.0"), map[string]string{"bInterfaceNumber": "00"})
	// no descriptors
	writeAttrs(t, filepath.Join(root, "garbage"), map[string]string{"idVendor": "zz"})
	return root
}

func TestScan(t *testing.T) {
	root := fakeSysfs(t)
	devs, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(devs) != 2 {
		t.Fatalf("Scan() found %d devices, want 2: %v", len(devs), devs)
	}
	d := devs[1]
	if d.VendorID != 0x0482 || d.ProductID != 0x0204 || d.Bus != 1 || d.Dev != 12 {
		t.Errorf("device = %s", d)
	}
	if d.Product != "iBurst Terminal" || d.Serial != "UT0012345" || d.Configuration != 1 {
		t.Errorf("device = %+v", d)
	}
	if want := "/dev/bus/usb/001/012"; d.DevPath() != want {
		t.Errorf("DevPath() = %s, want %s", d.DevPath(), want)
	}

	found, err := ScanFor(root, 0x0482, 0x0204)
	if err != nil || len(found) != 1 || found[0].Dev != 12 {
		t.Errorf("ScanFor() = %v, %v", found, err)
	}
}

func TestScanMissingRoot(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Scan() of a missing directory succeeded")
	}
}

func TestInterfaceEndpoints(t *testing.T) {
	root := fakeSysfs(t)
	info, err := ReadDevice(filepath.Join(root, "1-1"))
	if err != nil {
		t.Fatal(err)
	}
	eps, err := InterfaceEndpoints(info, 0)
	if err != nil {
		t.Fatal(err)
	}
	if eps.In != 0x82 || eps.Out != 0x01 || eps.Status != 0x83 {
		t.Errorf("InterfaceEndpoints() = %s", eps)
	}

	if _, err := InterfaceEndpoints(info, 1); err == nil {
		t.Error("InterfaceEndpoints() of a missing interface succeeded")
	}

	if err := os.RemoveAll(filepath.Join(root, "1-1", "1-1:1.0", "ep_01")); err != nil {
		t.Fatal(err)
	}
	if _, err := InterfaceEndpoints(info, 0); !errors.Is(err, ErrNoEndpoints) {
		t.Errorf("InterfaceEndpoints() without bulk out error = %v", err)
	}
}
