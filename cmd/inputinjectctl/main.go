// Command inputinjectctl is a thin control client for inputinjectd: it
// opens a websocket to the daemon's control surface, sends one request
// and prints the response.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/gorilla/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "inputinjectctl:", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "127.0.0.1:7912", "inputinjectd control surface address")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		return fmt.Errorf("usage: inputinjectctl [-addr host:port] <command> [args...]\n" +
			"commands: hello | list-groups | start <group_key> <preset_name> | stop <group_key> | autoload [config_dir] | set-config-dir <path>")
	}

	env, err := buildEnvelope(args[0], args[1:])
	if err != nil {
		return err
	}

	url := "ws://" + *addr + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(env); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data,omitempty"`
		Error  string          `json:"error,omitempty"`
	}
	if err := conn.ReadJSON(&resp); err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.Status != "ok" {
		return fmt.Errorf("%s", resp.Error)
	}
	if len(resp.Data) > 0 {
		pretty, err := json.MarshalIndent(resp.Data, "", "  ")
		if err != nil {
			pretty = resp.Data
		}
		fmt.Println(string(pretty))
	}
	return nil
}

type requestEnvelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func buildEnvelope(cmd string, rest []string) (requestEnvelope, error) {
	switch cmd {
	case "hello":
		return requestEnvelope{Type: "Hello"}, nil

	case "list-groups":
		return requestEnvelope{Type: "ListGroups"}, nil

	case "start":
		if len(rest) != 2 {
			return requestEnvelope{}, fmt.Errorf("usage: start <group_key> <preset_name>")
		}
		return requestEnvelope{Type: "StartInjection", Data: map[string]string{
			"group_key":   rest[0],
			"preset_name": rest[1],
		}}, nil

	case "stop":
		if len(rest) != 1 {
			return requestEnvelope{}, fmt.Errorf("usage: stop <group_key>")
		}
		return requestEnvelope{Type: "StopInjection", Data: map[string]string{"group_key": rest[0]}}, nil

	case "autoload":
		dir := ""
		if len(rest) == 1 {
			dir = rest[0]
		}
		return requestEnvelope{Type: "Autoload", Data: map[string]string{"config_dir": dir}}, nil

	case "set-config-dir":
		if len(rest) != 1 {
			return requestEnvelope{}, fmt.Errorf("usage: set-config-dir <path>")
		}
		return requestEnvelope{Type: "SetConfigDir", Data: map[string]string{"path": rest[0]}}, nil

	default:
		return requestEnvelope{}, fmt.Errorf("unknown command %q", cmd)
	}
}
