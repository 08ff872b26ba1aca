package dbapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/graph"
)

// ExportDevice records where a running device can be reached. The record
// is kept even when the device has no configuration entry.
func (db *Database) ExportDevice(device, ior, host, pid, version string) error {
	const op = "DbExportDevice"
	p, err := strconv.Atoi(strings.TrimSpace(pid))
	if err != nil {
		return api.Malformed(op, "pid %q is not a number", pid)
	}
	return db.write(op, func(s *datasource.Source) error {
		s.SetExportInfo(device, datasource.ExportInfo{
			IOR:       ior,
			Host:      host,
			PID:       p,
			Version:   version,
			StartTime: db.now().Format(StartTimeLayout),
		})
		return nil
	})
}

func (db *Database) UnexportDevice(device string) error {
	return db.write("DbUnExportDevice", func(s *datasource.Source) error {
		s.ClearExportInfo(device)
		return nil
	})
}

// ImportDevice returns the export state of a configured device.
func (db *Database) ImportDevice(device string) (api.DeviceInfo, error) {
	return db.deviceInfo("DbImportDevice", device)
}

// GetDeviceInfo is ImportDevice under its informational command name.
func (db *Database) GetDeviceInfo(device string) (api.DeviceInfo, error) {
	return db.deviceInfo("DbGetDeviceInfo", device)
}

func (db *Database) deviceInfo(op, device string) (api.DeviceInfo, error) {
	var info api.DeviceInfo
	err := db.read(op, func(s *datasource.Source) error {
		dev, ok := s.Device(device)
		if !ok {
			return notFound(op, device)
		}
		srv := dev
		if !isServerNode(dev) {
			srv = dev.Parent()
		}
		var server string
		if srv != nil {
			server = srv.StringOr(api.KeyServer, "") + "/" + srv.StringOr(api.KeyPersonalName, "")
		}
		rec, exported := s.ExportInfo(device)
		info = api.DeviceInfo{
			Name:     graph.Normalize(device),
			IOR:      rec.IOR,
			Version:  "0",
			Server:   server,
			Host:     "?",
			Started:  "?",
			Stopped:  "?",
			Class:    dev.StringOr(api.KeyClass, datasource.ServerClass),
			Exported: exported,
			PID:      -1,
		}
		if exported {
			info.Version = rec.Version
			info.Host = rec.Host
			info.Started = rec.StartTime
			info.PID = rec.PID
		}
		return nil
	})
	return info, err
}

func (db *Database) ExportEvent(event, ior, host, pid, version string) error {
	db.unsupported("DbExportEvent", "event", event, "host", host, "pid", pid)
	return nil
}

func (db *Database) UnexportEvent(event string) error {
	db.unsupported("DbUnExportEvent", "event", event)
	return nil
}

// ImportEvent always fails: event channels are never registered.
func (db *Database) ImportEvent(event string) (api.DeviceInfo, error) {
	const op = "DbImportEvent"
	err := notFound(op, event)
	db.observe(op, time.Now(), err)
	return api.DeviceInfo{}, err
}
