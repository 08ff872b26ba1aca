package dbapi

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/graph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(kv ...any) *graph.Fields {
	f := graph.NewFields()
	for i := 0; i+1 < len(kv); i += 2 {
		f.Set(kv[i].(string), kv[i+1])
	}
	return f
}

func sampleForest() []any {
	return []any{
		fields(
			"server", "TangoTest",
			"personal_name", "test",
			"device", []any{
				fields("tango_name", "sys/tg_test/1", "class", "TangoTest", "alias", "tg1",
					"properties", fields("mode", "fast", "limits", []any{"0", "10"}, "nested", fields("x", "y"))),
				fields("tango_name", "sys/tg_test/2", "class", "TangoTest",
					"properties", "tg1/properties"),
			},
		),
		fields(
			"server", "Motor",
			"personal_name", "lab",
			"device", []any{
				fields("tango_name", "lab/motor/x", "class", "Motor"),
				fields("tango_name", "lab/motor/y", "class", "Motor"),
			},
		),
		fields("class", "Motor", "properties", fields("InheritedFrom", []any{"Axis", "Device_4Impl"}, "Speed", "3")),
	}
}

func newTestDB(t *testing.T, forest []any) *Database {
	t.Helper()
	return New(datasource.New(forest, "2"))
}

func TestScenario_EmptyLoadBootstraps(t *testing.T) {
	db := newTestDB(t, nil)

	info, err := db.GetDeviceInfo("sys/database/2")
	require.NoError(t, err)
	assert.Equal(t, "sys/database/2", info.Name)
	assert.Equal(t, "DataBaseds/2", info.Server)
	assert.Equal(t, "DataBase", info.Class)
	assert.False(t, info.Exported)

	info, err = db.GetDeviceInfo("dserver/databaseds/2")
	require.NoError(t, err)
	assert.Equal(t, "DServer", info.Class)
	assert.Equal(t, "DataBaseds/2", info.Server)
}

func TestScenario_DevicePropertyRoundTrip(t *testing.T) {
	db := newTestDB(t, nil)
	require.NoError(t, db.AddDevice("Srv/1", "a/b/c", "MyClass", ""))

	require.NoError(t, db.PutDeviceProperty("a/b/c", 1, []string{"p1", "1", "v1"}))

	got, err := db.GetDeviceProperty("a/b/c", []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/c", "1", "p1", "1", "v1"}, got)
}

func TestScenario_AttributeAliasCollision(t *testing.T) {
	db := newTestDB(t, nil)

	require.NoError(t, db.PutAttributeAlias("attr/x", "aliasX"))
	err := db.PutAttributeAlias("attr/y", "aliasX")
	assert.ErrorIs(t, err, api.ErrAlreadyExists)
	assert.Equal(t, api.ReasonSQLError, api.ReasonOf(err))

	// Same binding again is idempotent.
	require.NoError(t, db.PutAttributeAlias("attr/x", "ALIASX"))
	attr, err := db.GetAttributeAlias("aliasx")
	require.NoError(t, err)
	assert.Equal(t, "attr/x", attr)
}

func TestScenario_AddDeviceWithAlias(t *testing.T) {
	db := newTestDB(t, nil)
	require.NoError(t, db.AddDevice("Srv/1", "a/b/c", "MyClass", "abc"))

	name, err := db.GetAliasDevice("abc")
	require.NoError(t, err)
	assert.Equal(t, "a/b/c", name)

	alias, err := db.GetDeviceAlias("A/B/C")
	require.NoError(t, err)
	assert.Equal(t, "abc", alias)

	servers, err := db.GetServerList("*")
	require.NoError(t, err)
	assert.Contains(t, servers, "srv/1")
}

func TestScenario_DeletedDeviceIsNotFound(t *testing.T) {
	db := newTestDB(t, nil)
	require.NoError(t, db.AddDevice("Srv/1", "a/b/c", "MyClass", "abc"))
	require.NoError(t, db.PutDeviceProperty("a/b/c", 1, []string{"p1", "1", "v1"}))

	require.NoError(t, db.DeleteDevice("a/b/c"))

	_, err := db.GetDeviceProperty("a/b/c", []string{"p1"})
	assert.ErrorIs(t, err, api.ErrNotFound)
	_, err = db.GetAliasDevice("abc")
	assert.ErrorIs(t, err, api.ErrNotFound, "alias goes with the device")
	assert.ErrorIs(t, db.DeleteDevice("a/b/c"), api.ErrNotFound)

	list, err := db.GetDeviceList("Srv/1", "*")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddDevice_Idempotent(t *testing.T) {
	db := newTestDB(t, nil)
	require.NoError(t, db.AddDevice("Srv/1", "a/b/c", "MyClass", ""))
	require.NoError(t, db.AddDevice("Srv/1", "A/B/C", "Other", ""))

	class, err := db.GetClassForDevice("a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "MyClass", class)

	assert.ErrorIs(t, db.AddDevice("bad-server", "x/y/z", "C", ""), api.ErrMalformed)
	assert.ErrorIs(t, db.AddDevice("Srv/1", "x/y/z", "C", "a/b/c"), api.ErrAlreadyExists)
}

func TestDeviceAlias_Branches(t *testing.T) {
	db := newTestDB(t, sampleForest())

	require.NoError(t, db.PutDeviceAlias("sys/tg_test/1", "tg1"), "same binding is a no-op")
	err := db.PutDeviceAlias("sys/tg_test/2", "TG1")
	assert.ErrorIs(t, err, api.ErrAlreadyExists)

	require.NoError(t, db.PutDeviceAlias("sys/tg_test/1", "first"))
	_, err = db.GetAliasDevice("tg1")
	assert.ErrorIs(t, err, api.ErrNotFound, "old alias is released")
	name, err := db.GetAliasDevice("first")
	require.NoError(t, err)
	assert.Equal(t, "sys/tg_test/1", name)

	aliases, err := db.GetDeviceAliasList("*")
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, aliases)

	assert.ErrorIs(t, db.DeleteDeviceAlias("sys/tg_test/1"), api.ErrNotFound, "a device name is not an alias")
	require.NoError(t, db.DeleteDeviceAlias("first"))
	_, err = db.GetDeviceAlias("sys/tg_test/1")
	assert.ErrorIs(t, err, api.ErrNotFound)
	_, err = db.GetClassForDevice("sys/tg_test/1")
	assert.NoError(t, err, "device survives alias removal")
}

func TestDeviceAlias_OwnName(t *testing.T) {
	db := newTestDB(t, sampleForest())

	err := db.PutDeviceAlias("lab/motor/x", "LAB/motor/x")
	assert.ErrorIs(t, err, api.ErrAlreadyExists)
	_, err = db.GetDeviceAlias("lab/motor/x")
	assert.ErrorIs(t, err, api.ErrNotFound, "nothing was bound")

	err = db.AddDevice("Srv/1", "a/b/c", "C", "A/B/C")
	assert.ErrorIs(t, err, api.ErrMalformed)
	_, err = db.GetClassForDevice("a/b/c")
	assert.ErrorIs(t, err, api.ErrNotFound)

	require.NoError(t, db.AddDevice("Srv/1", "a/b/c", "C", ""))
	devices, err := db.GetDeviceWideList("a/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/c"}, devices)
}

func TestRenameDevice(t *testing.T) {
	db := newTestDB(t, sampleForest())
	require.NoError(t, db.PutDeviceAttributeProperty("lab/motor/x", 1, []string{"pos", "1", "unit", "mm"}))

	err := db.RenameDevice("lab/motor/x", "lab/motor/y")
	assert.ErrorIs(t, err, api.ErrAlreadyExists)
	_, err = db.GetClassForDevice("lab/motor/x")
	assert.NoError(t, err, "failed rename leaves both devices")
	_, err = db.GetClassForDevice("lab/motor/y")
	assert.NoError(t, err)

	assert.ErrorIs(t, db.RenameDevice("no/such/dev", "x/y/z"), api.ErrNotFound)

	require.NoError(t, db.PutDeviceProperty("lab/motor/x", 1, []string{"acc", "2", "1", "2"}))
	require.NoError(t, db.RenameDevice("lab/motor/x", "lab/motor/z"))

	_, err = db.GetClassForDevice("lab/motor/x")
	assert.ErrorIs(t, err, api.ErrNotFound)
	got, err := db.GetDeviceProperty("lab/motor/z", []string{"acc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lab/motor/z", "1", "acc", "2", "1", "2"}, got)
	attr, err := db.GetDeviceAttributeProperty("lab/motor/z", []string{"pos"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lab/motor/z", "1", "pos", "1", "unit", "mm"}, attr)
}

func TestPropertyRedirection(t *testing.T) {
	db := newTestDB(t, sampleForest())

	got, err := db.GetDeviceProperty("sys/tg_test/2", []string{"mode"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sys/tg_test/2", "1", "mode", "1", "fast"}, got)

	require.NoError(t, db.PutDeviceProperty("sys/tg_test/2", 1, []string{"mode", "1", "slow"}))

	got, err = db.GetDeviceProperty("sys/tg_test/1", []string{"mode"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sys/tg_test/1", "1", "mode", "1", "slow"}, got, "write through the reference hits the shared block")
}

func TestGetDeviceProperty_WildcardsAndMissing(t *testing.T) {
	db := newTestDB(t, sampleForest())

	got, err := db.GetDeviceProperty("sys/tg_test/1", []string{"*", "absent"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"sys/tg_test/1", "3",
		"mode", "1", "fast",
		"limits", "2", "0", "10",
		"absent", "0", "",
	}, got, "nested maps are not properties")

	got, err = db.GetDeviceProperty("lab/motor/x", []string{"p"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lab/motor/x", "1", "p", "0", ""}, got)

	list, err := db.GetDevicePropertyList("sys/tg_test/1", "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"mode", "limits"}, list)
	list, err = db.GetDevicePropertyList("nobody/at/all", "*")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteDeviceProperty(t *testing.T) {
	db := newTestDB(t, sampleForest())

	require.NoError(t, db.DeleteDeviceProperty("sys/tg_test/1", "mode"))
	assert.ErrorIs(t, db.DeleteDeviceProperty("sys/tg_test/1", "mode"), api.ErrNotFound)
	assert.ErrorIs(t, db.DeleteDeviceProperty("lab/motor/x", "mode"), api.ErrNotFound)
	assert.ErrorIs(t, db.DeleteDeviceProperty("no/such/dev", "mode"), api.ErrNotFound)

	require.NoError(t, db.DeleteProperty("free", "anything"), "free object deletes are no-ops")
}

func TestClassProperties(t *testing.T) {
	db := newTestDB(t, sampleForest())

	got, err := db.GetClassProperty("Motor", []string{"Speed", "InheritedFrom", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Motor", "3",
		"Speed", "1", "3",
		"InheritedFrom", "2", "Axis", "Device_4Impl",
		"missing", "0",
	}, got)

	require.NoError(t, db.PutClassProperty("NewClass", 2, []string{"a", "1", "x", "b", "2", "y", "z"}))
	got, err = db.GetClassProperty("newclass", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"newclass", "2", "a", "1", "x", "b", "2", "y", "z"}, got)

	names, err := db.GetClassPropertyList("NewClass")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, db.DeleteClassProperty("NewClass", "a"))
	assert.ErrorIs(t, db.DeleteClassProperty("NewClass", "a"), api.ErrNotFound)
	assert.ErrorIs(t, db.DeleteClassProperty("Nope", "a"), api.ErrNotFound)

	inh, err := db.GetClassInheritanceForDevice("lab/motor/x")
	require.NoError(t, err)
	assert.Equal(t, []string{"Motor", "Axis", "Device_4Impl"}, inh)

	_, err = db.GetClassForDevice("no/such/dev")
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, api.ReasonIncorrectArguments, api.ReasonOf(err))
}

func TestClassAttributeProperties(t *testing.T) {
	db := newTestDB(t, nil)

	require.NoError(t, db.PutClassAttributeProperty("Motor", 1, []string{"pos", "2", "unit", "mm", "format", "%6.2f"}))
	require.NoError(t, db.PutClassAttributeProperty2("Motor", 1, []string{"vel", "1", "range", "2", "0", "5"}))

	got, err := db.GetClassAttributeProperty("Motor", []string{"pos", "none"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Motor", "2", "pos", "2", "unit", "mm", "format", "%6.2f", "none", "0"}, got)

	got, err = db.GetClassAttributeProperty2("motor", []string{"vel"})
	require.NoError(t, err)
	assert.Equal(t, []string{"motor", "1", "vel", "1", "range", "2", "0", "5"}, got)

	attrs, err := db.GetClassAttributeList("Motor", "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"pos", "vel"}, attrs)

	require.NoError(t, db.DeleteClassAttributeProperty("Motor", "pos", "unit"))
	assert.ErrorIs(t, db.DeleteClassAttributeProperty("Motor", "pos", "unit"), api.ErrNotFound)
	require.NoError(t, db.DeleteClassAttribute("Motor", "vel"))
	assert.ErrorIs(t, db.DeleteClassAttribute("Motor", "vel"), api.ErrNotFound)
	attrs, err = db.GetClassAttributeList("Motor", "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"pos"}, attrs)
}

func TestDeviceAttributeProperties(t *testing.T) {
	db := newTestDB(t, sampleForest())

	assert.ErrorIs(t, db.PutDeviceAttributeProperty("no/such/dev", 1, []string{"a", "1", "k", "v"}), api.ErrNotFound)
	require.NoError(t, db.PutDeviceAttributeProperty2("lab/motor/x", 2, []string{
		"pos", "1", "unit", "1", "mm",
		"vel", "1", "range", "2", "0", "5",
	}))

	got, err := db.GetDeviceAttributeProperty2("lab/motor/x", []string{"vel", "acc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lab/motor/x", "2", "vel", "1", "range", "2", "0", "5", "acc", "0"}, got)

	attrs, err := db.GetDeviceAttributeList("lab/motor/x", "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"pos", "vel"}, attrs)
	attrs, err = db.GetDeviceAttributeList("lab/motor/y", "*")
	require.NoError(t, err)
	assert.Empty(t, attrs)

	require.NoError(t, db.DeleteDeviceAttributeProperty("lab/motor/x", "pos", "unit"))
	assert.ErrorIs(t, db.DeleteDeviceAttributeProperty("lab/motor/x", "pos", "unit"), api.ErrNotFound)
	require.NoError(t, db.DeleteDeviceAttribute("lab/motor/x", "pos"))
	assert.ErrorIs(t, db.DeleteDeviceAttribute("lab/motor/x", "pos"), api.ErrNotFound)
	require.NoError(t, db.DeleteAllDeviceAttributeProperty("lab/motor/x", "vel"))
	assert.ErrorIs(t, db.DeleteAllDeviceAttributeProperty("lab/motor/y", "vel"), api.ErrNotFound)
}

func TestAttributeAliases(t *testing.T) {
	db := newTestDB(t, nil)
	require.NoError(t, db.PutAttributeAlias("sys/tg_test/1/ampli", "amp"))
	require.NoError(t, db.PutAttributeAlias("sys/tg_test/1/ampli", "amp2"))
	require.NoError(t, db.PutAttributeAlias("sys/tg_test/1/double", "dbl"))

	list, err := db.GetAttributeAliasList("amp*")
	require.NoError(t, err)
	assert.Equal(t, []string{"amp", "amp2"}, list)

	aliases, err := db.GetAttributeAlias2("SYS/tg_test/1/ampli")
	require.NoError(t, err)
	assert.Equal(t, []string{"amp", "amp2"}, aliases)

	attr, err := db.GetAliasAttribute("dbl")
	require.NoError(t, err)
	assert.Equal(t, []string{"sys/tg_test/1/double"}, attr)

	require.NoError(t, db.DeleteAttributeAlias("amp"))
	assert.ErrorIs(t, db.DeleteAttributeAlias("amp"), api.ErrNotFound)
	_, err = db.GetAttributeAlias("amp")
	assert.ErrorIs(t, err, api.ErrNotFound)
	attr, err = db.GetAliasAttribute("amp")
	require.NoError(t, err)
	assert.Empty(t, attr)
}

func TestListing(t *testing.T) {
	db := newTestDB(t, sampleForest())

	wide, err := db.GetDeviceWideList("sys/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"sys/tg_test/1", "sys/tg_test/2", "sys/database/2"}, wide)

	none, err := db.GetDeviceWideList("data*")
	require.NoError(t, err)
	assert.Empty(t, none, "full-string match only")

	domains, err := db.GetDeviceDomainList("*")
	require.NoError(t, err)
	assert.Equal(t, []string{"dserver", "lab", "sys"}, domains)

	families, err := db.GetDeviceFamilyList("*")
	require.NoError(t, err)
	assert.Equal(t, []string{"database", "databaseds", "motor", "tangotest", "tg_test"}, families)

	members, err := db.GetDeviceMemberList("lab/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, members)

	devs, err := db.GetDeviceList("*", "motor")
	require.NoError(t, err)
	assert.Equal(t, []string{"lab/motor/x", "lab/motor/y"}, devs)
	devs, err = db.GetDeviceList("Motor/lab", "Mot")
	require.NoError(t, err)
	assert.Empty(t, devs, "class match is full-string")

	pairs, err := db.GetDeviceClassList("motor/lab")
	require.NoError(t, err)
	assert.Equal(t, []string{"lab/motor/x", "Motor", "lab/motor/y", "Motor"}, pairs)

	classes, err := db.GetDeviceServerClassList("TangoTest/test")
	require.NoError(t, err)
	assert.Equal(t, []string{"TangoTest"}, classes)

	servers, err := db.GetServerList("*")
	require.NoError(t, err)
	assert.Equal(t, []string{"tangotest/test", "motor/lab", "databaseds/2"}, servers)

	names, err := db.GetServerNameList("*")
	require.NoError(t, err)
	assert.Equal(t, []string{"databaseds", "motor", "tangotest"}, names)

	instances, err := db.GetInstanceNameList("Motor")
	require.NoError(t, err)
	assert.Equal(t, []string{"lab"}, instances)

	all, err := db.GetClassList("*")
	require.NoError(t, err)
	assert.Equal(t, []string{"DServer", "DataBase", "Motor", "TangoTest"}, all)

	srvClasses, err := db.GetServerClassList("motor/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"DServer", "Motor"}, srvClasses)

	missing, err := db.GetDeviceClassList("no/server")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestExportImport(t *testing.T) {
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	db := New(datasource.New(sampleForest(), "2"), WithClock(func() time.Time { return fixed }))

	require.NoError(t, db.ExportDevice("lab/motor/x", "IOR:0001", "host-a", "42", "5"))
	require.NoError(t, db.ExportDevice("sys/database/2", "IOR:db", "host-b", "7", "5"))
	require.NoError(t, db.ExportDevice("un/configured/dev", "IOR:x", "host-c", "9", "5"))
	assert.ErrorIs(t, db.ExportDevice("lab/motor/y", "IOR", "h", "not-a-pid", "5"), api.ErrMalformed)

	info, err := db.ImportDevice("LAB/motor/x")
	require.NoError(t, err)
	assert.Equal(t, api.DeviceInfo{
		Name:     "lab/motor/x",
		IOR:      "IOR:0001",
		Version:  "5",
		Server:   "Motor/lab",
		Host:     "host-a",
		Started:  "2024-05-06 07:08:09.000000",
		Stopped:  "?",
		Class:    "Motor",
		Exported: true,
		PID:      42,
	}, info)
	assert.Equal(t, []int{1, 42}, info.Longs())

	_, err = db.ImportDevice("un/configured/dev")
	assert.ErrorIs(t, err, api.ErrNotFound, "export alone does not configure a device")

	exported, err := db.GetDeviceExportedList("*")
	require.NoError(t, err)
	assert.Equal(t, []string{"lab/motor/x", "sys/database/2", "un/configured/dev"}, exported)

	forClass, err := db.GetExportedDeviceListForClass("Motor")
	require.NoError(t, err)
	assert.Equal(t, []string{"lab/motor/x"}, forClass)

	hosts, err := db.GetHostList("host-*")
	require.NoError(t, err)
	assert.Equal(t, []string{"host-a", "host-b", "host-c"}, hosts)

	hostServers, err := db.GetHostServerList("host-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"Motor/lab"}, hostServers)

	csdb, err := db.GetCSDbServerList()
	require.NoError(t, err)
	assert.Equal(t, []string{"IOR:db"}, csdb)

	require.NoError(t, db.UnexportServer("motor/lab"))
	info, err = db.GetDeviceInfo("lab/motor/x")
	require.NoError(t, err)
	assert.False(t, info.Exported)
	assert.Equal(t, -1, info.PID)

	_, err = db.ImportEvent("some/event")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestDeleteAndRenameServer(t *testing.T) {
	db := newTestDB(t, sampleForest())

	require.NoError(t, db.RenameServer("Motor/lab", "Motor/bench"))
	assert.ErrorIs(t, db.RenameServer("Motor/lab", "Motor/other"), api.ErrNotFound)
	assert.ErrorIs(t, db.RenameServer("Motor/bench", "TangoTest/test"), api.ErrAlreadyExists)
	assert.ErrorIs(t, db.RenameServer("Motor/bench", "nope"), api.ErrMalformed)

	info, err := db.GetDeviceInfo("lab/motor/x")
	require.NoError(t, err)
	assert.Equal(t, "Motor/bench", info.Server)
	_, err = db.GetDeviceInfo("dserver/motor/bench")
	require.NoError(t, err)

	require.NoError(t, db.DeleteServer("motor/bench"))
	assert.ErrorIs(t, db.DeleteServer("motor/gone"), api.ErrNotFound)
	servers, err := db.GetServerList("motor/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"motor/bench"}, servers, "index entries survive a server delete")
	devs, err := db.GetDeviceList("motor/bench", "*")
	require.NoError(t, err)
	assert.Empty(t, devs)
	_, err = db.GetClassForDevice("lab/motor/x")
	assert.ErrorIs(t, err, api.ErrNotFound, "devices of a deleted server are gone")
	require.NoError(t, db.AddDevice("Motor/bench", "lab/motor/x", "Motor", ""), "and their names are free again")
}

func TestStubs(t *testing.T) {
	db := newTestDB(t, nil)

	got, err := db.GetProperty("free", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"free", "2", "a", "0", "", "b", "0", ""}, got)
	require.NoError(t, db.PutProperty("free", 1, []string{"a", "1", "x"}))

	hist, err := db.GetDevicePropertyHist("sys/database/2", "x")
	require.NoError(t, err)
	assert.Empty(t, hist)

	info, err := db.GetServerInfo("x/y")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", ""}, info)

	longs, strs, err := db.MySQLSelect("select 1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, longs)
	assert.Empty(t, strs)

	release, err := db.StoredProcedureRelease()
	require.NoError(t, err)
	assert.Equal(t, "release 0.0", release)

	lines, err := db.Info()
	require.NoError(t, err)
	assert.Contains(t, lines[0], "sys/database/2")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := NewMetrics(reg)
	db := New(datasource.New(sampleForest(), "2"), WithMetrics(m))

	_, err := db.GetDeviceAlias("lab/motor/x")
	require.Error(t, err)
	_, err = db.GetDeviceAlias("sys/tg_test/1")
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.calls.WithLabelValues("DbGetDeviceAlias", "not_found")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.calls.WithLabelValues("DbGetDeviceAlias", "ok")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.servers), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	db.Swap(datasource.New(nil, "3"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.servers), 0)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	db := newTestDB(t, sampleForest())

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("dyn/dev/%d", i)
			assert.NoError(t, db.AddDevice("Dyn/1", name, "Dyn", ""))
			assert.NoError(t, db.PutDeviceProperty(name, 1, []string{"k", "1", "v"}))
			assert.NoError(t, db.RenameDevice(name, name+"r"))
		}()
		go func() {
			defer wg.Done()
			_, err := db.GetDeviceProperty("sys/tg_test/1", []string{"*"})
			assert.NoError(t, err)
			_, err = db.GetDeviceWideList("dyn/*")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	devs, err := db.GetDeviceList("dyn/1", "*")
	require.NoError(t, err)
	assert.Len(t, devs, 8)
	wide, err := db.GetDeviceWideList("dyn/dev/*")
	require.NoError(t, err)
	for _, name := range wide {
		assert.Equal(t, byte('r'), name[len(name)-1], "renamed atomically: %s", name)
	}
}
