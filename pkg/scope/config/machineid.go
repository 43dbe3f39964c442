package config

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "scope"

var machineIDFunc = func() (string, error) {
	return machineid.ProtectedID(appID)
}

// MachineID retrieves a short ID identifying the machine, the host name
// when the machine ID is not available.
func MachineID() string {
	id, err := machineIDFunc()
	if err != nil {
		glog.Warningf("machine id: %v", err)
		if id, err = os.Hostname(); err != nil {
			return appID
		}
		return id
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
