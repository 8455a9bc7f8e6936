package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"colorfulez-server/config"
	"colorfulez-server/facility"
	"colorfulez-server/network_state"
	"colorfulez-server/server"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outgoing struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Connects as a verified player and walks through every room of the layout,
// printing the spawn and destroy traffic each step produces.
//
// Usage: walk_client [ws url] [dwell]
func main() {
	cfg := config.Load()
	url := fmt.Sprintf("ws://localhost%s/ws", cfg.Addr)
	if len(os.Args) > 1 {
		url = os.Args[1]
	}
	dwell := 2 * cfg.SyncInterval
	if len(os.Args) > 2 {
		if d, err := time.ParseDuration(os.Args[2]); err == nil {
			dwell = d
		}
	}

	var (
		f   *facility.Facility
		err error
	)
	if cfg.LayoutPath != "" {
		f, err = facility.LoadLayout(cfg.LayoutPath)
	} else {
		f, err = facility.Generate(cfg.LayoutRows, cfg.LayoutCols, cfg.LayoutSeed)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: dial %s: %v\n", url, err)
		os.Exit(1)
	}
	defer conn.Close()

	var spawned, destroyed, updated atomic.Int64
	go func() {
		for {
			var msg envelope
			if err := conn.ReadJSON(&msg); err != nil {
				fmt.Fprintf(os.Stderr, "read stopped: %v\n", err)
				return
			}
			switch msg.Type {
			case server.MsgPlayerAssigned:
				fmt.Printf("assigned %s\n", msg.Payload)
			case network_state.MsgObjectSpawn:
				spawned.Add(1)
			case network_state.MsgObjectDestroy:
				destroyed.Add(1)
			case network_state.MsgObjectUpdate:
				updated.Add(1)
			}
		}
	}()

	if err := conn.WriteJSON(outgoing{Type: server.MsgPlayerVerified, Data: struct{}{}}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	for _, r := range f.Rooms() {
		state := map[string]interface{}{"position": [3]float32(r.Position), "alive": true}
		if err := conn.WriteJSON(outgoing{Type: server.MsgPlayerState, Data: state}); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		before := spawned.Load() - destroyed.Load()
		time.Sleep(dwell)
		fmt.Printf("%-8s %-20s spawned=%d destroyed=%d updates=%d visible=%d (%+d)\n",
			r.ID, r.Type, spawned.Load(), destroyed.Load(), updated.Load(),
			spawned.Load()-destroyed.Load(), spawned.Load()-destroyed.Load()-before)
	}
}
