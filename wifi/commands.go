package wifi

import (
	"fmt"
	"time"

	"github.com/nikosgri/sensornode/at"
)

// Per-command budgets. Joins and the join query are the slow ones;
// everything else answers fast or not at all.
const (
	shortBudget  = 1 * time.Second
	mediumBudget = 2 * time.Second
	joinBudget   = 5 * time.Second
	queryBudget  = 4 * time.Second
)

// Link status value meaning a UDP or TCP transmission already exists.
const linkEstablished = 3

// NetworkTime is the wall clock reported by the modem's SNTP query, still in
// protocol shape. Converting it into the RTC's encoding is the caller's job.
type NetworkTime struct {
	Weekday string
	Month   string
	Day     int
	Hour    int
	Minute  int
	Second  int
	Year    int
}

// Check verifies the modem answers commands at all.
func (s *Session) Check() error {
	_, err := s.Execute(Transaction{
		Label:    "ping",
		Command:  s.profile.Ping,
		Terminal: at.OK,
		Timeout:  shortBudget,
	})
	return err
}

// EchoOff disables command echo so responses parse cleanly.
func (s *Session) EchoOff() error {
	_, err := s.Execute(Transaction{
		Label:    "echo-off",
		Command:  s.profile.EchoOff,
		Terminal: at.OK,
		Timeout:  shortBudget,
	})
	return err
}

// Wake returns the modem to its normal power mode.
func (s *Session) Wake() error {
	_, err := s.Execute(Transaction{
		Label:    "wake",
		Command:  fmt.Sprintf(s.profile.SleepSet, 0),
		Terminal: at.OK,
		Timeout:  shortBudget,
	})
	return err
}

// PowerDown puts the modem into light sleep. The UART stays responsive, so
// the next wake cycle can talk to it again.
func (s *Session) PowerDown() error {
	_, err := s.Execute(Transaction{
		Label:    "power-down",
		Command:  fmt.Sprintf(s.profile.SleepSet, 1),
		Terminal: at.OK,
		Timeout:  mediumBudget,
	})
	return err
}

// SleepMode reports the modem's configured sleep mode.
func (s *Session) SleepMode() (int, error) {
	var mode int
	_, err := s.Execute(Transaction{
		Label:    "sleep-mode",
		Command:  s.profile.SleepQuery,
		Ack:      s.profile.TagSleep,
		Slots:    []Slot{Int(&mode)},
		Terminal: at.OK,
		Timeout:  mediumBudget,
	})
	if err != nil {
		return 0, err
	}
	return mode, nil
}

// Connect brings the station link up and negotiates the socket settings the
// report cycle relies on: single connection, passive receive. It is
// idempotent; when the last state query said connected, the join sequence is
// skipped and only the socket settings and the address query run.
func (s *Session) Connect(ssid, password string) error {
	if err := s.Check(); err != nil {
		s.log.Warn("modem not answering liveness check", "err", err)
	}

	if s.Status().Conn != StateConnected {
		if _, err := s.Execute(Transaction{
			Label:    "radio-init",
			Command:  s.profile.RadioInit,
			Terminal: at.OK,
			Timeout:  shortBudget,
		}); err != nil {
			return err
		}
		if _, err := s.Execute(Transaction{
			Label:    "station-mode",
			Command:  s.profile.StationMode,
			Terminal: at.OK,
			Timeout:  shortBudget,
		}); err != nil {
			return err
		}
		if _, err := s.Execute(Transaction{
			Label:    "join",
			Command:  fmt.Sprintf(s.profile.Join, ssid, password),
			Terminal: at.OK,
			Timeout:  joinBudget,
		}); err != nil {
			return err
		}
		if _, err := s.Execute(Transaction{
			Label:    "reconnect-config",
			Command:  s.profile.Reconnect,
			Terminal: at.OK,
			Timeout:  shortBudget,
		}); err != nil {
			return err
		}
	}

	var mux int
	if _, err := s.Execute(Transaction{
		Label:    "mux-query",
		Command:  s.profile.MuxQuery,
		Ack:      s.profile.TagMux,
		Slots:    []Slot{Int(&mux)},
		Terminal: at.OK,
		Timeout:  shortBudget,
	}); err != nil {
		return err
	}
	if mux != 0 {
		if _, err := s.Execute(Transaction{
			Label:    "mux-single",
			Command:  s.profile.MuxSingle,
			Terminal: at.OK,
			Timeout:  shortBudget,
		}); err != nil {
			return err
		}
	}

	if _, err := s.Execute(Transaction{
		Label:    "passive-receive",
		Command:  s.profile.PassiveRecv,
		Terminal: at.OK,
		Timeout:  mediumBudget,
	}); err != nil {
		return err
	}

	ip, err := s.QueryIP()
	if err != nil {
		return err
	}
	s.log.Info("station up", "ip", ip)
	return nil
}

// QueryIP asks for the station's IPv4 address and records it in the status
// snapshot.
func (s *Session) QueryIP() (string, error) {
	var ip string
	_, err := s.Execute(Transaction{
		Label:    "station-ip",
		Command:  s.profile.StationIP,
		Ack:      s.profile.TagIP,
		Slots:    []Slot{Quoted(&ip)},
		Terminal: at.OK,
		Timeout:  shortBudget,
	})
	if err != nil {
		return "", err
	}
	s.updateStatus(func(st *Status) { st.BoardIP = ip })
	return ip, nil
}

// QueryHardwareID reads the modem MAC that doubles as the node identifier
// in report payloads.
func (s *Session) QueryHardwareID() (string, error) {
	var mac string
	_, err := s.Execute(Transaction{
		Label:    "hardware-id",
		Command:  s.profile.HardwareMAC,
		Ack:      s.profile.TagMAC,
		Slots:    []Slot{Quoted(&mac)},
		Terminal: at.OK,
		Timeout:  shortBudget,
	})
	if err != nil {
		return "", err
	}
	s.updateStatus(func(st *Status) { st.HardwareID = mac })
	return mac, nil
}

// QueryRSSI reads the join details and records signal strength and SSID.
func (s *Session) QueryRSSI() (int, error) {
	var (
		ssid, bssid                            string
		channel, rssi                          int
		pci, reconnIv, listenIv, scanMode, pmf int
	)
	_, err := s.Execute(Transaction{
		Label:   "join-query",
		Command: s.profile.JoinQuery,
		Ack:     s.profile.TagJoinInfo,
		Slots: []Slot{
			Quoted(&ssid), Quoted(&bssid),
			Int(&channel), Int(&rssi),
			Int(&pci), Int(&reconnIv), Int(&listenIv), Int(&scanMode), Int(&pmf),
		},
		Terminal: at.OK,
		Timeout:  queryBudget,
	})
	if err != nil {
		return 0, err
	}
	s.updateStatus(func(st *Status) {
		st.RSSI = rssi
		st.SSID = ssid
	})
	return rssi, nil
}

// QueryState refreshes the connection state from the modem.
func (s *Session) QueryState() (ConnState, error) {
	var (
		state int
		ssid  string
	)
	_, err := s.Execute(Transaction{
		Label:    "state-query",
		Command:  s.profile.StateQuery,
		Ack:      s.profile.TagState,
		Slots:    []Slot{Int(&state), Quoted(&ssid)},
		Terminal: at.OK,
		Timeout:  mediumBudget,
	})
	if err != nil {
		return StateUninitialized, err
	}
	conn := ConnState(state)
	s.updateStatus(func(st *Status) {
		st.Conn = conn
		st.SSID = ssid
	})
	return conn, nil
}

// SyncTime configures the SNTP client and reads the network time. The
// returned value is raw protocol fields; an epoch year means the modem has
// not actually synced yet and is reported as a failure.
func (s *Session) SyncTime(timezone int, server string) (NetworkTime, error) {
	if _, err := s.Execute(Transaction{
		Label:    "sntp-config",
		Command:  fmt.Sprintf(s.profile.SNTPConfig, timezone, server),
		Ack:      s.profile.TagTimeSync,
		Terminal: at.OK,
		Timeout:  shortBudget,
	}); err != nil {
		return NetworkTime{}, err
	}

	var t NetworkTime
	if _, err := s.Execute(Transaction{
		Label:   "sntp-time",
		Command: s.profile.SNTPTime,
		Ack:     s.profile.TagSNTPTime,
		Slots: []Slot{
			Word(&t.Weekday), Word(&t.Month),
			Int(&t.Day), Int(&t.Hour), Int(&t.Minute), Int(&t.Second), Int(&t.Year),
		},
		Terminal: at.OK,
		Timeout:  mediumBudget,
	}); err != nil {
		return NetworkTime{}, err
	}

	if t.Year <= 1970 {
		return NetworkTime{}, fmt.Errorf("wifi: sntp-time: clock not synced yet (year %d)", t.Year)
	}
	return t, nil
}

// LinkStatus reports the socket transmission state.
func (s *Session) LinkStatus() (int, error) {
	var stat int
	_, err := s.Execute(Transaction{
		Label:    "link-status",
		Command:  s.profile.LinkStatus,
		Ack:      s.profile.TagLink,
		Slots:    []Slot{Int(&stat)},
		Terminal: at.OK,
		Timeout:  mediumBudget,
	})
	if err != nil {
		return 0, err
	}
	return stat, nil
}

// OpenUDP ensures the single UDP session to the report server exists. An
// already established transmission counts as success.
func (s *Session) OpenUDP(host string, port int) error {
	stat, err := s.LinkStatus()
	if err != nil {
		return err
	}
	if stat == linkEstablished {
		s.log.Info("transmission already open", "host", host, "port", port)
		return nil
	}

	_, err = s.Execute(Transaction{
		Label:    "open-udp",
		Command:  fmt.Sprintf(s.profile.OpenUDP, host, port, port),
		Ack:      at.Connect,
		Terminal: at.OK,
		Timeout:  mediumBudget,
	})
	return err
}

// SendPayload announces the payload length, waits for the prompt, then ships
// the bytes. The announced length includes the CRLF the transmit path
// appends to every command, which is how the server's framing expects it.
func (s *Session) SendPayload(payload []byte) error {
	if _, err := s.Execute(Transaction{
		Label:    "send-length",
		Command:  fmt.Sprintf(s.profile.Send, len(payload)+len(at.CRLF)),
		Terminal: at.Prompt,
		Timeout:  mediumBudget,
	}); err != nil {
		return err
	}

	_, err := s.Execute(Transaction{
		Label:    "send-payload",
		Command:  string(payload),
		Terminal: at.SendOK,
		Timeout:  mediumBudget,
	})
	return err
}

// ReceiveData drains whatever reply the server queued. A zero pending count
// is a success with no data.
func (s *Session) ReceiveData() (string, error) {
	var pending int
	if _, err := s.Execute(Transaction{
		Label:    "recv-len",
		Command:  s.profile.RecvLen,
		Ack:      s.profile.TagRecvLen,
		Slots:    []Slot{Int(&pending)},
		Terminal: at.OK,
		Timeout:  mediumBudget,
	}); err != nil {
		return "", err
	}
	if pending <= 0 {
		return "", nil
	}

	var (
		got  int
		data string
	)
	if _, err := s.Execute(Transaction{
		Label:    "recv-data",
		Command:  fmt.Sprintf(s.profile.RecvData, pending),
		Ack:      s.profile.TagRecvData,
		Slots:    []Slot{Int(&got), Line(&data)},
		Terminal: at.OK,
		Timeout:  mediumBudget,
	}); err != nil {
		return "", err
	}

	s.updateStatus(func(st *Status) { st.LastReply = data })
	return data, nil
}

// CloseUDP tears down the UDP session.
func (s *Session) CloseUDP() error {
	_, err := s.Execute(Transaction{
		Label:    "close",
		Command:  s.profile.Close,
		Ack:      at.Closed,
		Terminal: at.OK,
		Timeout:  mediumBudget,
	})
	return err
}
