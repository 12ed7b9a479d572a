// Command bot is a scripted client used for smoke-testing a server: it
// connects, plays either a fixed action script or a random walk, and
// reports every RESULT it gets back.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"chronocube.game/internal/protocol"
)

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/play", "ws url")
		name   = flag.String("name", "bot", "client name")
		script = flag.String("script", "", "comma-separated actions, e.g. MOVE:EAST,WAIT,PUSH:NORTH,RIFT (empty: random walk)")
		turns  = flag.Int("turns", 50, "max turns to play in random-walk mode")
		pause  = flag.Duration("pause", 100*time.Millisecond, "delay between actions")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	welcome, state := awaitWelcome(conn, logger)
	logger.Printf("WELCOME session=%s level=%s %dx%dx%d",
		welcome.SessionID, welcome.LevelParams.LevelID,
		welcome.LevelParams.Width, welcome.LevelParams.Height, welcome.LevelParams.TimeDepth)
	logger.Printf("start: %s", state.State.Status)

	actions := scriptActions(*script)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dirs := []string{"NORTH", "SOUTH", "EAST", "WEST"}

	for i := 0; ; i++ {
		var payload protocol.ActionPayload
		switch {
		case len(actions) > 0:
			if i >= len(actions) {
				logger.Printf("script done")
				return
			}
			payload = actions[i]
		default:
			if i >= *turns {
				logger.Printf("turn budget spent")
				return
			}
			if rng.Intn(5) == 0 {
				payload = protocol.ActionPayload{Kind: "WAIT"}
			} else {
				payload = protocol.ActionPayload{Kind: "MOVE", Dir: dirs[rng.Intn(len(dirs))]}
			}
		}

		act := protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			ActionID:        fmt.Sprintf("a%d", i),
			Action:          payload,
		}
		if err := conn.WriteJSON(act); err != nil {
			logger.Fatalf("send ACT: %v", err)
		}

		res, done := awaitResult(conn, logger)
		if res.Accepted {
			logger.Printf("turn %d: %s", res.Turn, res.Status)
		} else {
			logger.Printf("rejected %s %s: %s", payload.Kind, payload.Dir, res.Code)
		}
		if done {
			logger.Printf("run over: phase=%s", res.Phase)
			return
		}
		time.Sleep(*pause)
	}
}

func awaitWelcome(conn *websocket.Conn, logger *log.Logger) (protocol.WelcomeMsg, protocol.StateMsg) {
	var welcome protocol.WelcomeMsg
	var state protocol.StateMsg
	haveWelcome, haveState := false, false
	for !haveWelcome || !haveState {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			if err := json.Unmarshal(msg, &welcome); err == nil {
				haveWelcome = true
			}
		case protocol.TypeState:
			if err := json.Unmarshal(msg, &state); err == nil {
				haveState = true
			}
		case protocol.TypeError:
			var e protocol.ErrorMsg
			_ = json.Unmarshal(msg, &e)
			logger.Fatalf("server error: %s %s", e.Code, e.Message)
		}
	}
	return welcome, state
}

// awaitResult reads frames until the RESULT arrives; the paired STATE
// may land before or after it. done reports a terminal phase.
func awaitResult(conn *websocket.Conn, logger *log.Logger) (protocol.ResultMsg, bool) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeResult:
			var res protocol.ResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			done := res.Phase != "" && res.Phase != "PLAYING"
			return res, done
		case protocol.TypeError:
			var e protocol.ErrorMsg
			_ = json.Unmarshal(msg, &e)
			logger.Printf("server error: %s %s", e.Code, e.Message)
		}
	}
}

func scriptActions(script string) []protocol.ActionPayload {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil
	}
	var out []protocol.ActionPayload
	for _, step := range strings.Split(script, ",") {
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}
		kind, dir, _ := strings.Cut(step, ":")
		out = append(out, protocol.ActionPayload{
			Kind: strings.ToUpper(strings.TrimSpace(kind)),
			Dir:  strings.ToUpper(strings.TrimSpace(dir)),
		})
	}
	return out
}
