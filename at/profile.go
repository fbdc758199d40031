package at

// Profile holds the command formats and response tags for one AT firmware
// dialect. The zero value is unusable; start from DefaultProfile and override
// individual entries (the yaml tags allow a config file to do so wholesale).
//
// Formats containing verbs are fmt.Sprintf templates; the argument order is
// fixed by the operation that issues them.
type Profile struct {
	// Plain commands.
	Ping        string `yaml:"ping"`
	EchoOff     string `yaml:"echo_off"`
	RadioInit   string `yaml:"radio_init"`
	StationMode string `yaml:"station_mode"`
	Reconnect   string `yaml:"reconnect"`
	MuxQuery    string `yaml:"mux_query"`
	MuxSingle   string `yaml:"mux_single"`
	PassiveRecv string `yaml:"passive_recv"`
	StationIP   string `yaml:"station_ip"`
	HardwareMAC string `yaml:"hardware_mac"`
	StateQuery  string `yaml:"state_query"`
	JoinQuery   string `yaml:"join_query"`
	SNTPTime    string `yaml:"sntp_time"`
	LinkStatus  string `yaml:"link_status"`
	RecvLen     string `yaml:"recv_len"`
	Close       string `yaml:"close"`
	SleepQuery  string `yaml:"sleep_query"`

	// Templated commands. Join takes ssid, password; SNTPConfig takes
	// timezone, server; OpenUDP takes host, remote port, local port;
	// Send and RecvData take a byte count; SleepSet takes the mode.
	Join       string `yaml:"join"`
	SNTPConfig string `yaml:"sntp_config"`
	OpenUDP    string `yaml:"open_udp"`
	Send       string `yaml:"send"`
	RecvData   string `yaml:"recv_data"`
	SleepSet   string `yaml:"sleep_set"`

	// Response tags located after the terminal token to anchor field
	// extraction.
	TagMux      string `yaml:"tag_mux"`
	TagIP       string `yaml:"tag_ip"`
	TagMAC      string `yaml:"tag_mac"`
	TagState    string `yaml:"tag_state"`
	TagJoinInfo string `yaml:"tag_join_info"`
	TagSNTPTime string `yaml:"tag_sntp_time"`
	TagTimeSync string `yaml:"tag_time_sync"`
	TagLink     string `yaml:"tag_link"`
	TagRecvLen  string `yaml:"tag_recv_len"`
	TagRecvData string `yaml:"tag_recv_data"`
	TagSleep    string `yaml:"tag_sleep"`

	// Tokens whose arrival ends a pending transaction as a failure even
	// though the expected terminal never showed up.
	ErrorTokens []string `yaml:"error_tokens"`
}

// DefaultProfile returns the command set of the ESP-AT firmware the node
// ships with.
func DefaultProfile() Profile {
	return Profile{
		Ping:        "AT",
		EchoOff:     "ATE0",
		RadioInit:   "AT+CWINIT=1",
		StationMode: "AT+CWMODE=1",
		Reconnect:   "AT+CWRECONNCFG=1,100",
		MuxQuery:    "AT+CIPMUX?",
		MuxSingle:   "AT+CIPMUX=0",
		PassiveRecv: "AT+CIPRECVTYPE=1",
		StationIP:   "AT+CIPSTA?",
		HardwareMAC: "AT+CIPAPMAC?",
		StateQuery:  "AT+CWSTATE?",
		JoinQuery:   "AT+CWJAP?",
		SNTPTime:    "AT+CIPSNTPTIME?",
		LinkStatus:  "AT+CIPSTATUS",
		RecvLen:     "AT+CIPRECVLEN?",
		Close:       "AT+CIPCLOSE",
		SleepQuery:  "AT+SLEEP?",

		Join:       `AT+CWJAP="%s","%s"`,
		SNTPConfig: `AT+CIPSNTPCFG=1,%d,"%s"`,
		OpenUDP:    `AT+CIPSTART="UDP","%s",%d,%d`,
		Send:       "AT+CIPSEND=%d",
		RecvData:   "AT+CIPRECVDATA=%d",
		SleepSet:   "AT+SLEEP=%d",

		TagMux:      "+CIPMUX:",
		TagIP:       "+CIPSTA:ip:",
		TagMAC:      "+CIPAPMAC:",
		TagState:    "+CWSTATE:",
		TagJoinInfo: "+CWJAP:",
		TagSNTPTime: "+CIPSNTPTIME:",
		TagTimeSync: UrcTimeUpdated,
		TagLink:     "STATUS:",
		TagRecvLen:  "+CIPRECVLEN:",
		TagRecvData: "+CIPRECVDATA:",
		TagSleep:    "+SLEEP:",

		ErrorTokens: []string{ERROR, FAIL},
	}
}
