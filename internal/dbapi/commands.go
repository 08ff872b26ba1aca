package dbapi

import (
	"slices"
	"strconv"
	"strings"

	"github.com/agentic-research/tangodb/api"
)

// Command binds a DataBaseds command name to a facade method. Args is the
// minimum number of arguments; Run gets them as sent.
type Command struct {
	Args int
	Run  func(db *Database, args []string) ([]string, error)
}

// Dispatch runs the named command with string arguments and returns its
// string result. Commands answering a long and a string array return the
// longs first, formatted in decimal.
func Dispatch(db *Database, name string, args []string) ([]string, error) {
	cmd, ok := Commands[name]
	if !ok {
		return nil, api.Unsupported(name)
	}
	if len(args) < cmd.Args {
		return nil, api.Malformed(name, "needs %d arguments, got %d", cmd.Args, len(args))
	}
	return cmd.Run(db, args)
}

// CommandNames returns the registered command names, sorted.
func CommandNames() []string {
	names := make([]string, 0, len(Commands))
	for name := range Commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func scalar(f func(*Database, string) (string, error)) Command {
	return Command{Args: 1, Run: func(db *Database, a []string) ([]string, error) {
		s, err := f(db, a[0])
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}}
}

func list0(f func(*Database) ([]string, error)) Command {
	return Command{Run: func(db *Database, _ []string) ([]string, error) { return f(db) }}
}

func list1(f func(*Database, string) ([]string, error)) Command {
	return Command{Args: 1, Run: func(db *Database, a []string) ([]string, error) { return f(db, a[0]) }}
}

func list2(f func(*Database, string, string) ([]string, error)) Command {
	return Command{Args: 2, Run: func(db *Database, a []string) ([]string, error) { return f(db, a[0], a[1]) }}
}

func list3(f func(*Database, string, string, string) ([]string, error)) Command {
	return Command{Args: 3, Run: func(db *Database, a []string) ([]string, error) { return f(db, a[0], a[1], a[2]) }}
}

// named passes the first argument and the rest as a list.
func named(f func(*Database, string, []string) ([]string, error)) Command {
	return Command{Args: 1, Run: func(db *Database, a []string) ([]string, error) { return f(db, a[0], a[1:]) }}
}

func exec1(f func(*Database, string) error) Command {
	return Command{Args: 1, Run: func(db *Database, a []string) ([]string, error) { return nil, f(db, a[0]) }}
}

func exec2(f func(*Database, string, string) error) Command {
	return Command{Args: 2, Run: func(db *Database, a []string) ([]string, error) { return nil, f(db, a[0], a[1]) }}
}

// variadic1 and variadic2 pass the fixed arguments and spread the rest.
func variadic1(f func(*Database, string, ...string) error) Command {
	return Command{Args: 1, Run: func(db *Database, a []string) ([]string, error) { return nil, f(db, a[0], a[1:]...) }}
}

func variadic2(f func(*Database, string, string, ...string) error) Command {
	return Command{Args: 2, Run: func(db *Database, a []string) ([]string, error) { return nil, f(db, a[0], a[1], a[2:]...) }}
}

// bag passes (name, count, entries...).
func bag(op string, f func(*Database, string, int, []string) error) Command {
	return Command{Args: 2, Run: func(db *Database, a []string) ([]string, error) {
		n, err := strconv.Atoi(strings.TrimSpace(a[1]))
		if err != nil || n < 0 {
			return nil, api.Malformed(op, "count %q is not a number", a[1])
		}
		return nil, f(db, a[0], n, a[2:])
	}}
}

func deviceInfo(f func(*Database, string) (api.DeviceInfo, error)) Command {
	return Command{Args: 1, Run: func(db *Database, a []string) ([]string, error) {
		info, err := f(db, a[0])
		if err != nil {
			return nil, err
		}
		return longString(info.Longs(), info.Strings()), nil
	}}
}

func longString(longs []int, strs []string) []string {
	out := make([]string, 0, len(longs)+len(strs))
	for _, l := range longs {
		out = append(out, strconv.Itoa(l))
	}
	return append(out, strs...)
}

// Commands is the DataBaseds command table.
var Commands = map[string]Command{
	// Device lifecycle.
	"DbAddDevice": {Args: 3, Run: func(db *Database, a []string) ([]string, error) {
		alias := ""
		if len(a) > 3 {
			alias = a[3]
		}
		return nil, db.AddDevice(a[0], a[1], a[2], alias)
	}},
	"DbAddServer": {Args: 1, Run: func(db *Database, a []string) ([]string, error) {
		return nil, db.AddServer(a[0], a[1:])
	}},
	"DbDeleteDevice":       exec1((*Database).DeleteDevice),
	"DbRenameDevice":       exec2((*Database).RenameDevice),
	"DbPutDeviceAlias":     exec2((*Database).PutDeviceAlias),
	"DbGetDeviceAlias":     scalar((*Database).GetDeviceAlias),
	"DbGetAliasDevice":     scalar((*Database).GetAliasDevice),
	"DbDeleteDeviceAlias":  exec1((*Database).DeleteDeviceAlias),
	"DbGetDeviceAliasList": list1((*Database).GetDeviceAliasList),

	// Server lifecycle.
	"DbDeleteServer":     exec1((*Database).DeleteServer),
	"DbRenameServer":     exec2((*Database).RenameServer),
	"DbUnExportServer":   exec1((*Database).UnexportServer),
	"DbGetServerInfo":    list1((*Database).GetServerInfo),
	"DbDeleteServerInfo": exec1((*Database).DeleteServerInfo),
	"DbPutServerInfo": {Run: func(db *Database, a []string) ([]string, error) {
		return nil, db.PutServerInfo(a)
	}},

	// Class properties.
	"DbGetClassProperty":     named((*Database).GetClassProperty),
	"DbPutClassProperty":     bag("DbPutClassProperty", (*Database).PutClassProperty),
	"DbDeleteClassProperty":  variadic1((*Database).DeleteClassProperty),
	"DbGetClassPropertyList": list1((*Database).GetClassPropertyList),
	"DbGetClassPropertyHist": list2((*Database).GetClassPropertyHist),

	// Device properties.
	"DbGetDeviceProperty":     named((*Database).GetDeviceProperty),
	"DbPutDeviceProperty":     bag("DbPutDeviceProperty", (*Database).PutDeviceProperty),
	"DbDeleteDeviceProperty":  variadic1((*Database).DeleteDeviceProperty),
	"DbGetDevicePropertyList": list2((*Database).GetDevicePropertyList),
	"DbGetDevicePropertyHist": list2((*Database).GetDevicePropertyHist),

	// Class attribute properties.
	"DbGetClassAttributeProperty":     named((*Database).GetClassAttributeProperty),
	"DbGetClassAttributeProperty2":    named((*Database).GetClassAttributeProperty2),
	"DbPutClassAttributeProperty":     bag("DbPutClassAttributeProperty", (*Database).PutClassAttributeProperty),
	"DbPutClassAttributeProperty2":    bag("DbPutClassAttributeProperty2", (*Database).PutClassAttributeProperty2),
	"DbDeleteClassAttribute":          exec2((*Database).DeleteClassAttribute),
	"DbDeleteClassAttributeProperty":  variadic2((*Database).DeleteClassAttributeProperty),
	"DbGetClassAttributeList":         list2((*Database).GetClassAttributeList),
	"DbGetClassAttributePropertyHist": list3((*Database).GetClassAttributePropertyHist),

	// Device attribute properties.
	"DbGetDeviceAttributeProperty":       named((*Database).GetDeviceAttributeProperty),
	"DbGetDeviceAttributeProperty2":      named((*Database).GetDeviceAttributeProperty2),
	"DbPutDeviceAttributeProperty":       bag("DbPutDeviceAttributeProperty", (*Database).PutDeviceAttributeProperty),
	"DbPutDeviceAttributeProperty2":      bag("DbPutDeviceAttributeProperty2", (*Database).PutDeviceAttributeProperty2),
	"DbDeleteDeviceAttribute":            exec2((*Database).DeleteDeviceAttribute),
	"DbDeleteDeviceAttributeProperty":    variadic2((*Database).DeleteDeviceAttributeProperty),
	"DbDeleteAllDeviceAttributeProperty": variadic1((*Database).DeleteAllDeviceAttributeProperty),
	"DbGetDeviceAttributeList":           list2((*Database).GetDeviceAttributeList),
	"DbGetDeviceAttributePropertyHist":   list3((*Database).GetDeviceAttributePropertyHist),

	// Free objects.
	"DbGetProperty":     named((*Database).GetProperty),
	"DbPutProperty":     bag("DbPutProperty", (*Database).PutProperty),
	"DbDeleteProperty":  variadic1((*Database).DeleteProperty),
	"DbGetPropertyList": list2((*Database).GetPropertyList),
	"DbGetPropertyHist": list2((*Database).GetPropertyHist),
	"DbGetObjectList":   list1((*Database).GetObjectList),

	// Attribute aliases.
	"DbPutAttributeAlias":     exec2((*Database).PutAttributeAlias),
	"DbGetAttributeAlias":     scalar((*Database).GetAttributeAlias),
	"DbDeleteAttributeAlias":  exec1((*Database).DeleteAttributeAlias),
	"DbGetAttributeAliasList": list1((*Database).GetAttributeAliasList),
	"DbGetAttributeAlias2":    list1((*Database).GetAttributeAlias2),
	"DbGetAliasAttribute":     list1((*Database).GetAliasAttribute),

	// Listing.
	"DbGetDeviceWideList":             list1((*Database).GetDeviceWideList),
	"DbGetDeviceDomainList":           list1((*Database).GetDeviceDomainList),
	"DbGetDeviceFamilyList":           list1((*Database).GetDeviceFamilyList),
	"DbGetDeviceMemberList":           list1((*Database).GetDeviceMemberList),
	"DbGetDeviceList":                 list2((*Database).GetDeviceList),
	"DbGetDeviceClassList":            list1((*Database).GetDeviceClassList),
	"DbGetDeviceServerClassList":      list1((*Database).GetDeviceServerClassList),
	"DbGetServerList":                 list1((*Database).GetServerList),
	"DbGetServerNameList":             list1((*Database).GetServerNameList),
	"DbGetInstanceNameList":           list1((*Database).GetInstanceNameList),
	"DbGetServerClassList":            list1((*Database).GetServerClassList),
	"DbGetClassList":                  list1((*Database).GetClassList),
	"DbGetDeviceExportedList":         list1((*Database).GetDeviceExportedList),
	"DbGetExportedDeviceListForClass": list1((*Database).GetExportedDeviceListForClass),
	"DbGetHostList":                   list1((*Database).GetHostList),
	"DbGetHostServerList":             list1((*Database).GetHostServerList),
	"DbGetHostServersInfo":            list1((*Database).GetHostServersInfo),
	"DbGetCSDbServerList":             list0((*Database).GetCSDbServerList),

	// Runtime export and import.
	"DbExportDevice": {Args: 5, Run: func(db *Database, a []string) ([]string, error) {
		return nil, db.ExportDevice(a[0], a[1], a[2], a[3], a[4])
	}},
	"DbUnExportDevice": exec1((*Database).UnexportDevice),
	"DbImportDevice":   deviceInfo((*Database).ImportDevice),
	"DbGetDeviceInfo":  deviceInfo((*Database).GetDeviceInfo),
	"DbExportEvent": {Args: 5, Run: func(db *Database, a []string) ([]string, error) {
		return nil, db.ExportEvent(a[0], a[1], a[2], a[3], a[4])
	}},
	"DbUnExportEvent": exec1((*Database).UnexportEvent),
	"DbImportEvent":   deviceInfo((*Database).ImportEvent),

	// Class inheritance.
	"DbGetClassForDevice":            scalar((*Database).GetClassForDevice),
	"DbGetClassInheritanceForDevice": list1((*Database).GetClassInheritanceForDevice),

	// Misc.
	"DbInfo": list0((*Database).Info),
	"StoredProcedureRelease": {Run: func(db *Database, _ []string) ([]string, error) {
		s, err := db.StoredProcedureRelease()
		return []string{s}, err
	}},
	"DbMySqlSelect": {Args: 1, Run: func(db *Database, a []string) ([]string, error) {
		longs, strs, err := db.MySQLSelect(a[0])
		if err != nil {
			return nil, err
		}
		return longString(longs, strs), nil
	}},
}
