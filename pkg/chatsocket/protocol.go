package chatsocket

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// engine.io v3 packet types
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioNoop    = '6'
)

// socket.io v2 packet types, carried inside an engine.io message
const (
	sioConnect    = '0'
	sioDisconnect = '1'
	sioEvent      = '2'
	sioAck        = '3'
	sioError      = '4'
)

type openPacket struct {
	SID          string
	PingInterval time.Duration
	PingTimeout  time.Duration
}

func parseOpen(body string) (openPacket, error) {
	if !gjson.Valid(body) {
		return openPacket{}, fmt.Errorf("invalid open packet: %q", body)
	}
	res := gjson.Parse(body)
	open := openPacket{
		SID:          res.Get("sid").String(),
		PingInterval: time.Duration(res.Get("pingInterval").Int()) * time.Millisecond,
		PingTimeout:  time.Duration(res.Get("pingTimeout").Int()) * time.Millisecond,
	}
	if open.PingInterval <= 0 {
		open.PingInterval = 25 * time.Second
	}
	if open.PingTimeout <= 0 {
		open.PingTimeout = 60 * time.Second
	}
	return open, nil
}

// encodeEvent renders 42["name",payload].
func encodeEvent(name string, payload any) ([]byte, error) {
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	return append([]byte{eioMessage, sioEvent}, body...), nil
}

// frame is one decoded socket.io packet.
type frame struct {
	Type    byte
	Event   string
	Payload gjson.Result
}

// decodeMessage parses the body of an engine.io message packet. Namespaces
// other than the default one are not used by the server.
func decodeMessage(body string) (frame, error) {
	if body == "" {
		return frame{}, fmt.Errorf("empty socket.io packet")
	}
	f := frame{Type: body[0]}
	rest := body[1:]
	if strings.HasPrefix(rest, "/") {
		if i := strings.IndexByte(rest, ','); i >= 0 {
			rest = rest[i+1:]
		} else {
			rest = ""
		}
	}

	switch f.Type {
	case sioConnect, sioDisconnect:
		return f, nil
	case sioError:
		f.Payload = gjson.Parse(rest)
		return f, nil
	case sioEvent, sioAck:
		// an ack id may precede the array
		if i := strings.IndexByte(rest, '['); i > 0 {
			rest = rest[i:]
		}
		if !gjson.Valid(rest) {
			return frame{}, fmt.Errorf("invalid event packet: %q", body)
		}
		arr := gjson.Parse(rest)
		if !arr.IsArray() {
			return frame{}, fmt.Errorf("event packet is not an array: %q", body)
		}
		f.Event = arr.Get("0").String()
		f.Payload = arr.Get("1")
		return f, nil
	}
	return frame{}, fmt.Errorf("unknown socket.io packet type %q", f.Type)
}
