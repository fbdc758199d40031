package workflow

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nikosgri/sensornode/rtc"
	"github.com/nikosgri/sensornode/wifi"
)

// Settings carries the cycle parameters the handlers need.
type Settings struct {
	SSID       string
	Password   string
	ServerHost string
	ServerPort int
	Timezone   int
	NTPServer  string
	// SleepAfter is the delay the power-down handler arms the next wake
	// alarm with.
	SleepAfter time.Duration
}

// Node binds the modem session and the clock service into the report
// cycle's handler set.
type Node struct {
	session   *wifi.Session
	scheduler *rtc.Scheduler
	settings  Settings
	log       *slog.Logger
}

func NewNode(session *wifi.Session, scheduler *rtc.Scheduler, settings Settings, log *slog.Logger) *Node {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Node{
		session:   session,
		scheduler: scheduler,
		settings:  settings,
		log:       log.With("component", "workflow"),
	}
}

// Table returns the node's transition table. Failure edges step backward to
// the state that re-establishes the broken precondition, except ConnectWifi
// itself, which gives up the cycle and powers down.
func (n *Node) Table() Table {
	return Table{
		ConnectWifi:     {Name: "connect wifi", Run: n.connectWifi, OnSuccess: SyncTime, OnFailure: PowerDown},
		SyncTime:        {Name: "sync time", Run: n.syncTime, OnSuccess: OpenConnection, OnFailure: ConnectWifi},
		OpenConnection:  {Name: "open connection", Run: n.openConnection, OnSuccess: SendData, OnFailure: ConnectWifi},
		SendData:        {Name: "send data", Run: n.sendData, OnSuccess: ReceiveData, OnFailure: ConnectWifi},
		ReceiveData:     {Name: "receive data", Run: n.receiveData, OnSuccess: CloseConnection, OnFailure: SendData},
		CloseConnection: {Name: "close connection", Run: n.closeConnection, OnSuccess: PowerDown, OnFailure: OpenConnection},
		PowerDown:       {Name: "power down", Run: n.powerDown, OnSuccess: Stop, OnFailure: ConnectWifi},
	}
}

func (n *Node) connectWifi() error {
	return n.session.Connect(n.settings.SSID, n.settings.Password)
}

func (n *Node) syncTime() error {
	nt, err := n.session.SyncTime(n.settings.Timezone, n.settings.NTPServer)
	if err != nil {
		return err
	}
	cal, err := NetworkCalendar(nt)
	if err != nil {
		return err
	}
	return n.scheduler.Commit(cal)
}

func (n *Node) openConnection() error {
	return n.session.OpenUDP(n.settings.ServerHost, n.settings.ServerPort)
}

func (n *Node) sendData() error {
	payload, err := BuildReport(n.session.Status())
	if err != nil {
		return err
	}
	return n.session.SendPayload(payload)
}

func (n *Node) receiveData() error {
	reply, err := n.session.ReceiveData()
	if err != nil {
		return err
	}
	if reply != "" {
		n.log.Info("server reply", "data", reply)
	}
	return nil
}

func (n *Node) closeConnection() error {
	return n.session.CloseUDP()
}

// powerDown puts the modem to sleep and arms the next wake alarm. An arm
// failure fails the handler, looping the run back to ConnectWifi rather
// than leaving the node awake with no scheduled wake-up.
func (n *Node) powerDown() error {
	if err := n.session.PowerDown(); err != nil {
		return err
	}
	if _, err := n.scheduler.Schedule(n.settings.SleepAfter); err != nil {
		return err
	}
	return nil
}

// NetworkCalendar converts the modem's SNTP reading into the clock device
// encoding.
func NetworkCalendar(nt wifi.NetworkTime) (rtc.Calendar, error) {
	month, ok := months[nt.Month]
	if !ok {
		return rtc.Calendar{}, fmt.Errorf("workflow: unknown month %q", nt.Month)
	}
	weekday, ok := weekdays[nt.Weekday]
	if !ok {
		return rtc.Calendar{}, fmt.Errorf("workflow: unknown weekday %q", nt.Weekday)
	}
	return rtc.NewCalendar(nt.Year, month, nt.Day, weekday, nt.Hour, nt.Minute, nt.Second), nil
}

// Month and weekday names as the SNTP time response spells them.
var months = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

var weekdays = map[string]time.Weekday{
	"Sun": time.Sunday, "Mon": time.Monday, "Tue": time.Tuesday,
	"Wed": time.Wednesday, "Thu": time.Thursday, "Fri": time.Friday,
	"Sat": time.Saturday,
}
