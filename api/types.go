package api

// Document keys shared by the loader, the classifier and the facade.
const (
	KeyServer       = "server"
	KeyPersonalName = "personal_name"
	KeyDevice       = "device"
	KeyTangoName    = "tango_name"
	KeyClass        = "class"
	KeyAlias        = "alias"
	KeyProperties   = "properties"
)

// Keys of an exported-device-info record.
const (
	InfoIOR       = "IOR"
	InfoHost      = "host"
	InfoPID       = "pid"
	InfoVersion   = "version"
	InfoStartTime = "start-time"
)

// DeviceInfo is the answer of DbImportDevice / DbGetDeviceInfo.
type DeviceInfo struct {
	Name     string
	IOR      string
	Version  string
	Server   string // "<executable>/<instance>"
	Host     string
	Started  string
	Stopped  string
	Class    string
	Exported bool
	PID      int
}

// Longs returns the DevVarLongStringArray long part: exported flag and pid.
func (i DeviceInfo) Longs() []int {
	exported := 0
	if i.Exported {
		exported = 1
	}
	return []int{exported, i.PID}
}

// Strings returns the DevVarLongStringArray string part.
func (i DeviceInfo) Strings() []string {
	return []string{i.Name, i.IOR, i.Version, i.Server, i.Host, i.Started, i.Stopped, i.Class}
}
