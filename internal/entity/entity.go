// Package entity fixes the contract between this bridge's entities and
// whatever host platform surfaces them (the HTTP API, the MQTT bridge, or a
// full home-automation frontend).
package entity

// Domain groups this bridge's entities in the host's device registry.
const Domain = "bryant_evolution"

// DeviceInfo links entities under one logical device, identified by
// (Domain, ID).
type DeviceInfo struct {
	Domain string `json:"domain"`
	ID     string `json:"id"`
	Name   string `json:"name"`
}

// Info is the registration metadata every entity carries.
type Info struct {
	UniqueID string     `json:"unique_id"`
	Name     string     `json:"name"`
	Device   DeviceInfo `json:"device"`
}

// StateWriter receives the re-render signal an entity raises after an
// optimistic local mutation, so hosts can show the new state before the
// next confirming poll.
type StateWriter interface {
	WriteState()
}

// StateWriterFunc adapts a plain function to StateWriter.
type StateWriterFunc func()

func (f StateWriterFunc) WriteState() { f() }

// NopWriter discards state-write signals.
var NopWriter StateWriter = StateWriterFunc(func() {})

// MultiWriter fans one signal out to several hosts.
func MultiWriter(writers ...StateWriter) StateWriter {
	return StateWriterFunc(func() {
		for _, w := range writers {
			w.WriteState()
		}
	})
}
