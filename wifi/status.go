package wifi

import (
	"fmt"
	"strconv"
)

// ConnState is the station status reported by the modem's state query.
// The values follow the wire encoding of +CWSTATE.
type ConnState int

const (
	// StateUninitialized means the station has not been started.
	StateUninitialized ConnState = iota
	// StateConnecting means an access point accepted the join but no
	// address has been issued yet.
	StateConnecting
	// StateConnected means the station holds an IPv4 address.
	StateConnected
	// StateReconnecting means a join or rejoin is in progress.
	StateReconnecting
	// StateDisconnected means the station is idle.
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalJSON renders the state by name so diagnostics stay readable.
func (s ConnState) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// Status is the connectivity snapshot of the node. Session operations are
// the only writers; everything else reads copies obtained from
// Session.Status.
type Status struct {
	BoardIP     string    `json:"board_ip"`
	HardwareID  string    `json:"hardware_id"`
	Conn        ConnState `json:"conn"`
	SSID        string    `json:"ssid"`
	RSSI        int       `json:"rssi"`
	SensorValue int       `json:"sensor_value"`
	LastReply   string    `json:"last_reply,omitempty"`
}
