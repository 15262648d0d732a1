package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID returns an application-specific id of this machine, or
// "unknown" when the platform doesn't expose one.
func MachineID() string {
	id, err := machineid.ProtectedID("iobus")
	if err != nil {
		glog.Warningf("machine id: %v", err)
		return "unknown"
	}
	return id
}
