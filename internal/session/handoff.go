package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Credentials is the opaque, C1-owned handle derived from a client
// handoff file: name:processId:port:secret:scheme. Other components
// never see the raw bytes, only this struct.
type Credentials struct {
	Name      string
	ProcessID int
	Port      int
	Secret    string
	Scheme    string
}

// BaseURL returns the loopback base URL for the client's REST API.
func (c Credentials) BaseURL() string {
	return fmt.Sprintf("%s://127.0.0.1:%d", c.Scheme, c.Port)
}

// ParseHandoff parses a single-line handoff file. The format is five
// colon-separated fields; fewer than five is rejected. Extra trailing
// fields (seen on some client builds) are ignored.
func ParseHandoff(data []byte) (Credentials, bool) {
	line := strings.TrimSpace(string(data))
	fields := strings.Split(line, ":")
	if len(fields) < 5 {
		return Credentials{}, false
	}

	port, err := strconv.Atoi(fields[2])
	if err != nil {
		return Credentials{}, false
	}
	pid, err := strconv.Atoi(fields[1])
	if err != nil {
		return Credentials{}, false
	}

	return Credentials{
		Name:      fields[0],
		ProcessID: pid,
		Port:      port,
		Secret:    fields[3],
		Scheme:    fields[4],
	}, true
}
